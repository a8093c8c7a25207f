// Command catchctl runs catchment analyses and dataset integrity checks
// against the same configuration as the catchment service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/catchment-service/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "catchctl",
	Short: "Catchment analysis from the command line",
	Long: "Builds catchment reports and checks the centroid and census datasets, " +
		"reading the same environment variables as the catchment service.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		// Logs go to stderr so that stdout stays clean for reports.
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
	rootCmd.AddCommand(analyzeCmd, validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
