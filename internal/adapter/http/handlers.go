package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/catchment-service/internal/adapter/cvreview"
	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadSize = 10 << 20

	// cvDownloadName is the attachment filename for ?download=1 reviews.
	cvDownloadName = "generated_cv.txt"
	noResults      = "No results found."
)

type geocodeResponse struct {
	Lng              float64 `json:"lng"`
	Lat              float64 `json:"lat"`
	PlaceName        string  `json:"place_name"`
	FormattedAddress string  `json:"formatted_address"`
	Confidence       float64 `json:"confidence"`
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.svc.Geocoder == nil {
		s.writeError(w, r, disabled("geocoding"))
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.writeError(w, r, fmt.Errorf("%w: q is required", domain.ErrInvalidRequest))
		return
	}

	res, err := s.svc.Geocoder.ForwardGeocode(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Found() {
		s.writeError(w, r, fmt.Errorf("geocode %q: %w", q, domain.ErrNoResults))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, geocodeResponse{
		Lng:              res.Lon,
		Lat:              res.Lat,
		PlaceName:        res.PlaceName,
		FormattedAddress: res.FormattedAddress,
		Confidence:       res.Confidence,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.svc.Analyzer == nil {
		s.writeError(w, r, disabled("catchment analysis"))
		return
	}
	var req pipeline.AnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.svc.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeReport(w, r, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.svc.Reports == nil {
		s.writeError(w, r, disabled("report store"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be between 1 and 500", domain.ErrInvalidRequest))
			return
		}
		limit = n
	}

	reports, err := s.svc.Reports.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if reports == nil {
		reports = []domain.ReportSummary{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.svc.Reports == nil {
		s.writeError(w, r, disabled("report store"))
		return
	}
	report, err := s.svc.Reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeReport(w, r, report)
}

// writeReport answers with the report as JSON, or only its rendered summary
// for ?format=html and ?format=text.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, report domain.Report) {
	switch r.URL.Query().Get("format") {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, report.SummaryHTML)
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, domain.RenderText(report.Summary))
	default:
		sharedobs.WriteJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleCVReview(w http.ResponseWriter, r *http.Request) {
	if s.svc.Reviewer == nil {
		s.writeError(w, r, disabled("cv review"))
		return
	}
	cv, jobSpec, err := readCVForm(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Reviews outlive the server-wide write timeout.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	if r.URL.Query().Get("download") == "1" {
		text, err := s.svc.Reviewer.Review(r.Context(), cv, jobSpec, nil)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cvDownloadName))
		_, _ = io.WriteString(w, text)
		return
	}

	// Headers go out with the first chunk so that failures before any
	// output still get a proper status code.
	started := false
	_, err = s.svc.Reviewer.Review(r.Context(), cv, jobSpec, func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		return rc.Flush()
	})
	switch {
	case err != nil && !started:
		s.writeError(w, r, err)
	case err != nil:
		s.logger.Warn("cv review stream interrupted", "error", err)
	case !started:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// readCVForm reads the multipart upload. The CV comes from the "cv" file
// field or, failing that, a plain "cv" text field.
func readCVForm(w http.ResponseWriter, r *http.Request) (cv, jobSpec string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", "", fmt.Errorf("%w: expected multipart form with cv and job_spec: %v", domain.ErrInvalidRequest, err)
	}

	jobSpec = strings.TrimSpace(r.FormValue("job_spec"))

	file, header, err := r.FormFile("cv")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		cv = r.FormValue("cv")
	case err != nil:
		return "", "", fmt.Errorf("%w: read cv upload: %v", domain.ErrInvalidRequest, err)
	default:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", "", fmt.Errorf("%w: read cv upload: %v", domain.ErrInvalidRequest, err)
		}
		cv, err = cvreview.ExtractText(header.Filename, header.Header.Get("Content-Type"), data)
		if err != nil {
			return "", "", err
		}
	}

	if strings.TrimSpace(cv) == "" || jobSpec == "" {
		return "", "", fmt.Errorf("%w: both cv and job_spec are required", domain.ErrInvalidRequest)
	}
	return cv, jobSpec, nil
}

type newsResponse struct {
	Articles []domain.Article `json:"articles"`
	Message  string           `json:"message,omitempty"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.svc.News == nil {
		s.writeError(w, r, disabled("news search"))
		return
	}
	articles, err := s.svc.News.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := newsResponse{Articles: articles}
	if len(articles) == 0 {
		resp.Articles = []domain.Article{}
		resp.Message = noResults
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

type peopleResponse struct {
	People  []domain.Person `json:"people"`
	Message string          `json:"message,omitempty"`
}

func (s *Server) handlePeopleSearch(w http.ResponseWriter, r *http.Request) {
	if s.svc.People == nil {
		s.writeError(w, r, disabled("people search"))
		return
	}
	var q domain.PeopleQuery
	if err := decodeJSON(w, r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}

	people, err := s.svc.People.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := peopleResponse{People: people}
	if len(people) == 0 {
		resp.People = []domain.Person{}
		resp.Message = noResults
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}

func disabled(feature string) error {
	return fmt.Errorf("%s: %w", feature, domain.ErrServiceDisabled)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, cvreview.ErrUnreadableCV):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoResults), errors.Is(err, domain.ErrNoIsochrone):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDatasetsNotReady), errors.Is(err, domain.ErrServiceDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
