package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Loader reads the centroid file and every census part concurrently.
type Loader struct {
	centroidsSource string
	censusSources   []string
	client          *http.Client
	metrics         *observability.Metrics
	logger          *slog.Logger
}

// NewLoader creates a Loader. Sources are local paths or http(s) URLs.
func NewLoader(centroidsSource string, censusSources []string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Loader {
	return &Loader{
		centroidsSource: centroidsSource,
		censusSources:   censusSources,
		client:          &http.Client{Timeout: timeout},
		metrics:         metrics,
		logger:          logger,
	}
}

// Load reads all sources and returns an indexed snapshot.
func (l *Loader) Load(ctx context.Context) (*domain.Datasets, error) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	var (
		centroids []domain.Centroid
		skipped   int
	)
	g.Go(func() error {
		rc, err := Open(gctx, l.client, l.centroidsSource)
		if err != nil {
			return err
		}
		defer rc.Close()

		centroids, skipped, err = ParseCentroids(rc, l.logger)
		if err != nil {
			return fmt.Errorf("centroids %s: %w", l.centroidsSource, err)
		}
		return nil
	})

	parts := make([]censusPart, len(l.censusSources))
	for i, src := range l.censusSources {
		g.Go(func() error {
			rc, err := Open(gctx, l.client, src)
			if err != nil {
				return err
			}
			defer rc.Close()

			p, err := readCensusPart(rc)
			if err != nil {
				return fmt.Errorf("census %s: %w", src, err)
			}
			parts[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	census, err := buildCensus(parts)
	if err != nil {
		return nil, err
	}

	l.metrics.DatasetRows.WithLabelValues("centroids").Set(float64(len(centroids)))
	l.metrics.DatasetRows.WithLabelValues("census").Set(float64(len(census)))
	d := domain.NewDatasets(centroids, census)
	if dup := d.Index.Duplicates(); dup > 0 {
		l.logger.Warn("census geographies repeat across rows; all rows are kept", "duplicate_rows", dup)
	}
	l.logger.Info("datasets loaded",
		"centroids", len(centroids),
		"centroids_skipped", skipped,
		"census_rows", len(census),
		"census_duplicates", d.Index.Duplicates(),
		"census_parts", len(parts),
		"duration", time.Since(start),
	)
	return d, nil
}
