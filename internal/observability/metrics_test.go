package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpstream(t *testing.T) {
	m := NewMetricsForTesting()

	m.ObserveUpstream("newsapi", "success", time.Now())
	m.ObserveUpstream("newsapi", "success", time.Now())
	m.ObserveUpstream("newsapi", "error", time.Now())

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("newsapi", "success")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("newsapi", "error")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.UpstreamDuration))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestNewMetricsForTestingIsIndependent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.DatasetsReady.Set(1)

	assert.InDelta(t, 1.0, testutil.ToFloat64(a.DatasetsReady), 1e-9)
	assert.InDelta(t, 0.0, testutil.ToFloat64(b.DatasetsReady), 1e-9)
}

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.Analyses.WithLabelValues("distance", "success").Inc()
	m.DatasetRows.WithLabelValues("centroids").Set(3)

	n, err := testutil.GatherAndCount(reg, "catchment_analyses_total", "catchment_dataset_rows")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	// A second set on a fresh registry does not collide.
	assert.NotPanics(t, func() { NewMetricsWithRegistry(prometheus.NewRegistry()) })
}
