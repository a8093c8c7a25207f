package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "catchment"

// Metrics holds the Prometheus collectors for upstream calls and catchment analysis.
type Metrics struct {
	// Third-party API calls.
	UpstreamRequests *prometheus.CounterVec   // labels: service={mapbox_geocode,mapbox_isochrone,openai,newsapi,coresignal}, outcome={success,error,empty}
	UpstreamDuration *prometheus.HistogramVec // labels: service
	CacheLookups     *prometheus.CounterVec   // labels: cache={geocode,isochrone}, result={hit,miss}

	// Catchment analysis.
	Analyses         *prometheus.CounterVec // labels: mode={time,distance}, outcome={success,error}
	AnalysisDuration prometheus.Histogram
	MatchedAreas     prometheus.Histogram

	// Reference datasets.
	DatasetRows   *prometheus.GaugeVec // labels: dataset={centroids,census}
	DatasetsReady prometheus.Gauge

	ReportsPublished *prometheus.CounterVec // labels: sink={kafka,sqlite}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates all metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.Analyses,
		m.AnalysisDuration,
		m.MatchedAreas,
		m.DatasetRows,
		m.DatasetsReady,
		m.ReportsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Third-party API requests by service and outcome.",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "Third-party API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "In-memory cache lookups by cache and result.",
		}, []string{"cache", "result"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Catchment analyses by mode and outcome.",
		}, []string{"mode", "outcome"}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete catchment analysis.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		MatchedAreas: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "matched_output_areas",
			Help:      "Output areas matched per catchment.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		DatasetRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows loaded per reference dataset.",
		}, []string{"dataset"}),
		DatasetsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "datasets_ready",
			Help:      "1 once centroid and census data are loaded, 0 otherwise.",
		}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Catchment reports written to a sink.",
		}, []string{"sink"}),
	}
}

// ObserveUpstream records the outcome and latency of one third-party call.
func (m *Metrics) ObserveUpstream(service, outcome string, start time.Time) {
	m.UpstreamRequests.WithLabelValues(service, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
