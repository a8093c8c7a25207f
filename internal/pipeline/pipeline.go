package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

const initialBackoff = 200 * time.Millisecond

// DatasetSource produces a fresh snapshot of the reference datasets.
type DatasetSource interface {
	Load(ctx context.Context) (*domain.Datasets, error)
}

// DatasetLoader loads the reference datasets in the background and serves the
// current snapshot to analyses.
type DatasetLoader struct {
	source     DatasetSource
	current    atomic.Pointer[domain.Datasets]
	maxBackoff time.Duration
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewDatasetLoader creates a DatasetLoader. Failed loads are retried with
// exponential backoff capped at maxBackoff.
func NewDatasetLoader(source DatasetSource, maxBackoff time.Duration, logger *slog.Logger, metrics *observability.Metrics) *DatasetLoader {
	return &DatasetLoader{
		source:     source,
		maxBackoff: maxBackoff,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run loads the datasets, retrying until it succeeds or ctx is cancelled.
func (l *DatasetLoader) Run(ctx context.Context) error {
	backoff := min(initialBackoff, l.maxBackoff)
	for attempt := 1; ; attempt++ {
		err := l.Reload(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			l.logger.Info("dataset loader stopping", "reason", ctx.Err())
			return nil
		}
		l.logger.Error("dataset load failed", "attempt", attempt, "retry_in", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			l.logger.Info("dataset loader stopping", "reason", ctx.Err())
			return nil
		}
		backoff = retry.NextBackoff(backoff, l.maxBackoff)
	}
}

// Reload performs a single load and swaps in the new snapshot on success.
// The previous snapshot stays in service when the load fails.
func (l *DatasetLoader) Reload(ctx context.Context) error {
	d, err := l.source.Load(ctx)
	if err != nil {
		return err
	}
	l.current.Store(d)
	l.metrics.DatasetsReady.Set(1)
	return nil
}

// Datasets returns the current snapshot and whether one has been loaded.
func (l *DatasetLoader) Datasets() (*domain.Datasets, bool) {
	d := l.current.Load()
	return d, d != nil
}

// CheckReadiness returns nil once the datasets have been loaded.
func (l *DatasetLoader) CheckReadiness(_ context.Context) error {
	if l.current.Load() == nil {
		return errors.New("datasets have not been loaded yet")
	}
	return nil
}
