package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/catchment-service/internal/adapter/coresignal"
	"github.com/couchcryptid/catchment-service/internal/adapter/cvreview"
	"github.com/couchcryptid/catchment-service/internal/adapter/dataset"
	httpadapter "github.com/couchcryptid/catchment-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/catchment-service/internal/adapter/kafka"
	"github.com/couchcryptid/catchment-service/internal/adapter/mapbox"
	"github.com/couchcryptid/catchment-service/internal/adapter/newsapi"
	"github.com/couchcryptid/catchment-service/internal/adapter/sqlite"
	"github.com/couchcryptid/catchment-service/internal/config"
	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/couchcryptid/catchment-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Geocoding and isochrones (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var (
		geocoder   domain.Geocoder
		isochrones domain.IsochroneProvider
	)
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		isochrones = mapbox.NewCachedIsochrones(client, cfg.MapboxCacheSize, cfg.IsochroneTTL, clockwork.NewRealClock(), metrics)
		logger.Info("mapbox enabled",
			"cache_size", cfg.MapboxCacheSize,
			"timeout", cfg.MapboxTimeout,
			"rate_limit", cfg.MapboxRateLimit,
			"profile", cfg.IsochroneProfile,
		)
	} else {
		logger.Info("mapbox disabled: only distance catchments around explicit origins are available")
	}

	source := dataset.NewLoader(cfg.CentroidsSource, cfg.CensusSources, cfg.DatasetTimeout, metrics, logger)
	datasets := pipeline.NewDatasetLoader(source, cfg.DatasetRetryMaxBackoff, logger, metrics)

	// Report sinks.
	var (
		sinks   []pipeline.Sink
		closers []namedCloser
		ready   = readinessChecks{datasets}
		svc     httpadapter.Services
	)
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewReportWriter(cfg.KafkaBrokers, cfg.KafkaReportTopic, cfg.BatchSize, cfg.BatchFlushInterval, logger)
		sinks = append(sinks, pipeline.Sink{Name: "kafka", Publisher: writer})
		closers = append(closers, namedCloser{"kafka writer", writer})
		logger.Info("kafka report sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReportTopic)
	}
	if cfg.ReportsDBPath != "" {
		store, err := sqlite.Open(cfg.ReportsDBPath)
		if err != nil {
			logger.Error("failed to open report store", "path", cfg.ReportsDBPath, "error", err)
			os.Exit(1)
		}
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate report store", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pipeline.Sink{Name: "sqlite", Publisher: store})
		closers = append(closers, namedCloser{"report store", store})
		ready = append(ready, store)
		svc.Reports = store
		logger.Info("sqlite report store enabled", "path", cfg.ReportsDBPath)
	}

	svc.Ready = ready
	svc.Analyzer = pipeline.NewAnalyzer(datasets, geocoder, isochrones, cfg.IsochroneProfile, logger, metrics, sinks...)
	svc.Geocoder = geocoder

	// Research integrations are enabled by their API keys.
	if cfg.OpenAIKey != "" {
		svc.Reviewer = cvreview.NewReviewer(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAITimeout, metrics, logger)
	}
	if cfg.NewsAPIKey != "" {
		svc.News = newsapi.NewClient(cfg.NewsAPIKey, cfg.NewsAPIBaseURL, cfg.UpstreamTimeout, metrics, logger)
	}
	if cfg.CoresignalKey != "" {
		svc.People = coresignal.NewClient(cfg.CoresignalKey, cfg.CoresignalBaseURL, cfg.UpstreamTimeout, metrics, logger)
	}
	logger.Info("integrations configured",
		"cv_review", svc.Reviewer != nil,
		"news", svc.News != nil,
		"people", svc.People != nil,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.CORSAllowedOrigins, svc, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Load reference datasets, retrying until they succeed or we shut down.
	go func() {
		if err := datasets.Run(ctx); err != nil {
			logger.Error("dataset loader error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error(c.name+" close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type namedCloser struct {
	name string
	io.Closer
}

// readinessChecks is ready when every check passes.
type readinessChecks []sharedobs.ReadinessChecker

func (r readinessChecks) CheckReadiness(ctx context.Context) error {
	for _, c := range r {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
