package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
)

// Snapshotter exposes the currently loaded reference datasets.
type Snapshotter interface {
	Datasets() (*domain.Datasets, bool)
}

// ReportPublisher hands a finished report to a downstream sink.
type ReportPublisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// Sink is a named ReportPublisher. The name labels metrics and logs.
type Sink struct {
	Name      string
	Publisher ReportPublisher
}

// AnalysisRequest is a catchment to analyse. Origin takes precedence over Query.
type AnalysisRequest struct {
	Query   string               `json:"query,omitempty"`
	Origin  *domain.LngLat       `json:"origin,omitempty"`
	Mode    domain.IsochroneMode `json:"mode"`
	Value   float64              `json:"value"`
	Profile string               `json:"profile,omitempty"`
}

// Analyzer runs the catchment flow: resolve origin, build the boundary, join
// centroids, then aggregate and render the report.
type Analyzer struct {
	datasets   Snapshotter
	geocoder   domain.Geocoder
	isochrones domain.IsochroneProvider
	profile    string
	sinks      []Sink
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewAnalyzer creates an Analyzer. A nil geocoder disables query lookups and
// a nil isochrone provider disables time-mode catchments.
func NewAnalyzer(
	datasets Snapshotter,
	geocoder domain.Geocoder,
	isochrones domain.IsochroneProvider,
	defaultProfile string,
	logger *slog.Logger,
	metrics *observability.Metrics,
	sinks ...Sink,
) *Analyzer {
	return &Analyzer{
		datasets:   datasets,
		geocoder:   geocoder,
		isochrones: isochrones,
		profile:    defaultProfile,
		sinks:      sinks,
		logger:     logger,
		metrics:    metrics,
	}
}

// Analyze builds a catchment report. Publishing failures are logged and do
// not fail the analysis.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (domain.Report, error) {
	start := time.Now()
	report, err := a.analyze(ctx, req)

	a.metrics.Analyses.WithLabelValues(modeLabel(req.Mode), observability.Outcome(err)).Inc()
	if err != nil {
		return domain.Report{}, err
	}
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	a.metrics.MatchedAreas.Observe(float64(len(report.MatchedCodes)))

	a.logger.Info("catchment analysed",
		"report_id", report.ID,
		"mode", report.Mode,
		"value", report.Value,
		"place", report.Origin.PlaceName,
		"matched", len(report.MatchedCodes),
		"duration", time.Since(start),
	)

	a.publish(ctx, report)
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, req AnalysisRequest) (domain.Report, error) {
	profile := req.Profile
	if profile == "" {
		profile = a.profile
	}
	isoReq := domain.IsochroneRequest{Mode: req.Mode, Value: req.Value, Profile: profile}
	if err := isoReq.Validate(); err != nil {
		return domain.Report{}, err
	}

	ds, ok := a.datasets.Datasets()
	if !ok {
		return domain.Report{}, domain.ErrDatasetsNotReady
	}

	origin, err := domain.ResolveOrigin(ctx, req.Query, req.Origin, a.geocoder, a.logger)
	if err != nil {
		return domain.Report{}, err
	}
	isoReq.Origin = origin.Point

	iso, err := a.boundary(ctx, isoReq)
	if err != nil {
		return domain.Report{}, err
	}

	matched := domain.PointsWithin(ds.Centroids, iso.Geometry)
	return domain.BuildReport(origin, iso, matched, ds.Index)
}

// boundary resolves the catchment polygon: Mapbox for travel time, a local
// circular buffer for distance.
func (a *Analyzer) boundary(ctx context.Context, req domain.IsochroneRequest) (*domain.Isochrone, error) {
	if req.Mode == domain.ModeDistance {
		return domain.DistanceIsochrone(req.Origin, req.Value), nil
	}
	if a.isochrones == nil {
		return nil, fmt.Errorf("isochrone: %w", domain.ErrServiceDisabled)
	}
	mp, err := a.isochrones.Isochrone(ctx, req.Origin, req.Profile, int(req.Value))
	if err != nil {
		return nil, fmt.Errorf("isochrone: %w", err)
	}
	return &domain.Isochrone{Mode: req.Mode, Value: req.Value, Geometry: mp}, nil
}

func (a *Analyzer) publish(ctx context.Context, report domain.Report) {
	for _, s := range a.sinks {
		if err := s.Publisher.Publish(ctx, report); err != nil {
			a.logger.Error("publish report failed", "sink", s.Name, "report_id", report.ID, "error", err)
			continue
		}
		a.metrics.ReportsPublished.WithLabelValues(s.Name).Inc()
	}
}

func modeLabel(m domain.IsochroneMode) string {
	switch m {
	case domain.ModeTime, domain.ModeDistance:
		return string(m)
	default:
		return "unknown"
	}
}
