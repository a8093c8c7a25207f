package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/catchment-service/internal/adapter/dataset"
	"github.com/couchcryptid/catchment-service/internal/adapter/mapbox"
	"github.com/couchcryptid/catchment-service/internal/adapter/sqlite"
	"github.com/couchcryptid/catchment-service/internal/config"
	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/couchcryptid/catchment-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	query   string
	lng     float64
	lat     float64
	mode    string
	value   float64
	profile string
	json    bool
	save    bool
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build a catchment report",
	Long: "Resolves an origin, builds a travel-time or distance catchment around it and " +
		"summarises the census output areas inside.",
	Example: `  catchctl analyze --query "Leeds Station" --mode time --value 20
  catchctl analyze --lng -1.5491 --lat 53.8008 --mode distance --value 5 --json`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		req, err := analyzeOpts.request(flags.Changed("lng"), flags.Changed("lat"))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		metrics := observability.NewMetricsWithRegistry(prometheus.NewRegistry())
		analyzer, closeFn, err := newAnalyzer(ctx, cfg, analyzeOpts.save, metrics, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		return runAnalyze(ctx, analyzer, req, analyzeOpts.json, cmd.OutOrStdout())
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeOpts.query, "query", "q", "", "place to geocode as the catchment origin")
	f.Float64Var(&analyzeOpts.lng, "lng", 0, "origin longitude (with --lat, instead of --query)")
	f.Float64Var(&analyzeOpts.lat, "lat", 0, "origin latitude (with --lng, instead of --query)")
	f.StringVarP(&analyzeOpts.mode, "mode", "m", string(domain.ModeTime), "catchment mode: time or distance")
	f.Float64Var(&analyzeOpts.value, "value", 15, "minutes for time mode, miles for distance mode")
	f.StringVar(&analyzeOpts.profile, "profile", "", "routing profile for time mode (default ISOCHRONE_PROFILE)")
	f.BoolVar(&analyzeOpts.json, "json", false, "print the full report as JSON")
	f.BoolVar(&analyzeOpts.save, "save", false, "store the report in REPORTS_DB_PATH")
}

func (o analyzeOptions) request(hasLng, hasLat bool) (pipeline.AnalysisRequest, error) {
	req := pipeline.AnalysisRequest{
		Query:   o.query,
		Mode:    domain.IsochroneMode(o.mode),
		Value:   o.value,
		Profile: o.profile,
	}
	switch {
	case hasLng != hasLat:
		return req, errors.New("--lng and --lat must be given together")
	case hasLng:
		req.Origin = &domain.LngLat{Lng: o.lng, Lat: o.lat}
	case o.query == "":
		return req, errors.New("either --query or --lng/--lat is required")
	}
	return req, nil
}

// newAnalyzer loads the datasets once and wires an Analyzer from cfg. The
// returned func releases any report store.
func newAnalyzer(ctx context.Context, cfg *config.Config, save bool, metrics *observability.Metrics, logger *slog.Logger) (*pipeline.Analyzer, func(), error) {
	source := dataset.NewLoader(cfg.CentroidsSource, cfg.CensusSources, cfg.DatasetTimeout, metrics, logger)
	datasets := pipeline.NewDatasetLoader(source, cfg.DatasetRetryMaxBackoff, logger, metrics)
	if err := datasets.Reload(ctx); err != nil {
		return nil, nil, err
	}

	var (
		geocoder   domain.Geocoder
		isochrones domain.IsochroneProvider
	)
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		geocoder = client
		isochrones = mapbox.NewCachedIsochrones(client, cfg.MapboxCacheSize, cfg.IsochroneTTL, clockwork.NewRealClock(), metrics)
	}

	closeFn := func() {}
	var sinks []pipeline.Sink
	if save {
		if cfg.ReportsDBPath == "" {
			return nil, nil, errors.New("--save needs REPORTS_DB_PATH")
		}
		store, err := sqlite.Open(cfg.ReportsDBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Publisher: store})
		closeFn = func() { store.Close() }
	}

	return pipeline.NewAnalyzer(datasets, geocoder, isochrones, cfg.IsochroneProfile, logger, metrics, sinks...), closeFn, nil
}

func runAnalyze(ctx context.Context, analyzer *pipeline.Analyzer, req pipeline.AnalysisRequest, asJSON bool, out io.Writer) error {
	report, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(out, report)
	return nil
}

func printReport(out io.Writer, r domain.Report) {
	place := r.Origin.PlaceName
	if place == "" {
		place = "origin"
	}
	fmt.Fprintf(out, "Catchment: %s %s around %s (%.5f, %.5f)\n",
		strconv.FormatFloat(r.Value, 'f', -1, 64), r.Mode.Unit(), place, r.Origin.Point.Lng, r.Origin.Point.Lat)
	fmt.Fprintf(out, "Report ID: %s\n\n", r.ID)
	fmt.Fprint(out, domain.RenderText(r.Summary))

	if len(r.Legend) > 0 {
		fmt.Fprintln(out, "\nSupergroups")
		for _, l := range r.Legend {
			fmt.Fprintf(out, "  %-32s %s\n", l.Name, l.Color)
		}
	}
}
