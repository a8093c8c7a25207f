package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/couchcryptid/catchment-service/internal/adapter/dataset"
	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var errValidationFailed = errors.New("validation failed")

var validateOpts struct {
	centroids string
	census    []string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check centroid and census dataset integrity",
	Long: "Loads the centroid and census datasets and checks code uniqueness, the " +
		"Great Britain envelope, and coverage in both directions.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		centroids := cfg.CentroidsSource
		if validateOpts.centroids != "" {
			centroids = validateOpts.centroids
		}
		census := cfg.CensusSources
		if len(validateOpts.census) > 0 {
			census = validateOpts.census
		}

		metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
		loader := dataset.NewLoader(centroids, census, cfg.DatasetTimeout, metrics, logger)
		return runValidate(cmd.Context(), loader, cmd.OutOrStdout())
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateOpts.centroids, "centroids", "", "centroid CSV path or URL (default CENTROIDS_SOURCE)")
	validateCmd.Flags().StringSliceVar(&validateOpts.census, "census", nil, "census CSV parts, in order (default CENSUS_SOURCES)")
}

type datasetSource interface {
	Load(ctx context.Context) (*domain.Datasets, error)
}

func runValidate(ctx context.Context, source datasetSource, out io.Writer) error {
	fmt.Fprintln(out, "=== Catchment Dataset Validation ===")
	fmt.Fprintln(out)

	ds, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	phases := domain.ValidateDatasets(ds)

	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.Passed() {
			status = fmt.Sprintf("FAIL (%d errors)", p.Count)
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.Name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Records: %d centroids, %d census rows\n", len(ds.Centroids), len(ds.Census))

	for _, p := range phases {
		if p.Passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.Name)
		for i, e := range p.Errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
		if hidden := p.Count - len(p.Errors); hidden > 0 {
			fmt.Fprintf(out, "  ... and %d more\n", hidden)
		}
	}

	if !allPassed {
		fmt.Fprintln(out, "\nValidation FAILED.")
		return errValidationFailed
	}
	fmt.Fprintln(out, "\nAll validations passed.")
	return nil
}
