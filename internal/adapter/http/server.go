// Package http serves the catchment API, health probes and Prometheus metrics.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/catchment-service/internal/adapter/cvreview"
	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analyzer builds catchment reports.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.AnalysisRequest) (domain.Report, error)
}

// ReportStore reads previously published reports.
type ReportStore interface {
	Get(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) ([]domain.ReportSummary, error)
}

// CVReviewer streams a CV review.
type CVReviewer interface {
	Review(ctx context.Context, cv, jobSpec string, sink cvreview.ChunkSink) (string, error)
}

// Services are the backends behind the API routes. Leave a field nil to
// disable its routes; they then answer 503.
type Services struct {
	Ready    sharedobs.ReadinessChecker
	Analyzer Analyzer
	Geocoder domain.Geocoder
	Reports  ReportStore
	Reviewer CVReviewer
	News     domain.NewsSearcher
	People   domain.PeopleSearcher
}

// Server exposes the catchment API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Services
	logger     *slog.Logger
}

// NewServer creates the HTTP server and its chi router.
func NewServer(addr string, allowedOrigins []string, svc Services, logger *slog.Logger) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}
	s.httpServer.Handler = s.routes(allowedOrigins)
	return s
}

func (s *Server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", sharedobs.LivenessHandler())
	ready := s.svc.Ready
	if ready == nil {
		ready = alwaysReady{}
	}
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/geocode", s.handleGeocode)
		r.Post("/catchments", s.handleAnalyze)
		r.Get("/catchments", s.handleListReports)
		r.Get("/catchments/{id}", s.handleGetReport)
		r.Post("/cv-review", s.handleCVReview)
		r.Get("/news", s.handleNews)
		r.Post("/people/search", s.handlePeopleSearch)
	})
	return r
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

// requestLogger logs one line per request once the handler returns.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelWarn
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
