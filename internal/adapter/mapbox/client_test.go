package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const isochroneBody = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {"contour": 10, "color": "#6706ce", "fill-opacity": 0.33},
    "geometry": {
      "type": "Polygon",
      "coordinates": [[[-0.2, 51.4], [0.0, 51.4], [0.0, 51.6], [-0.2, 51.6], [-0.2, 51.4]]]
    }
  }]
}`

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocoding/v5/mapbox.places/Leeds, UK.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{-1.5491, 53.8008},
					PlaceName: "Leeds, West Yorkshire, England, United Kingdom",
					Text:      "Leeds",
					Relevance: 1,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "Leeds, UK")
	require.NoError(t, err)

	assert.Equal(t, 53.8008, result.Lat)
	assert.Equal(t, -1.5491, result.Lon)
	assert.Equal(t, "Leeds, West Yorkshire, England, United Kingdom", result.FormattedAddress)
	assert.Equal(t, "Leeds", result.PlaceName)
	assert.Equal(t, 1.0, result.Confidence)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(serviceGeocode, "success")), 1e-9)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/-1.549100,53.800800.json"), r.URL.Path)
		resp := response{
			Features: []feature{
				{
					Center:    []float64{-1.5491, 53.8008},
					PlaceName: "Leeds, West Yorkshire, England",
					Text:      "Leeds",
					Relevance: 0.98,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ReverseGeocode(context.Background(), 53.8008, -1.5491)
	require.NoError(t, err)

	assert.Equal(t, "Leeds, West Yorkshire, England", result.FormattedAddress)
	assert.Equal(t, "Leeds", result.PlaceName)
	assert.Equal(t, 0.98, result.Confidence)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	result, err := c.ForwardGeocode(context.Background(), "NONEXISTENT")
	require.NoError(t, err)
	assert.False(t, result.Found())
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(serviceGeocode, "empty")), 1e-9)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Leeds")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "mapbox", upstream.Service)
	assert.Contains(t, upstream.Body, "Not Authorized")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Leeds")
	require.Error(t, err)
}

func TestClient_Isochrone_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/isochrone/v1/mapbox/driving/-0.1278,51.5074", r.URL.Path)
		assert.Equal(t, "15", r.URL.Query().Get("contours_minutes"))
		assert.Equal(t, "true", r.URL.Query().Get("polygons"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(isochroneBody))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	mp, err := c.Isochrone(context.Background(), domain.LngLat{Lng: -0.1278, Lat: 51.5074}, "driving", 15)
	require.NoError(t, err)

	require.Equal(t, 1, mp.NumPolygons())
	assert.Equal(t, []float64{-0.2, 51.4, 0, 51.4, 0, 51.6, -0.2, 51.6, -0.2, 51.4}, mp.Polygon(0).FlatCoords())
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(serviceIsochrone, "success")), 1e-9)
}

func TestClient_Isochrone_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Isochrone(context.Background(), domain.LngLat{Lng: -0.1, Lat: 51.5}, "driving", 10)
	require.ErrorIs(t, err, domain.ErrNoIsochrone)
}

func TestClient_Isochrone_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"contours_minutes must be <= 60"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Isochrone(context.Background(), domain.LngLat{Lng: -0.1, Lat: 51.5}, "driving", 90)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusUnprocessableEntity, upstream.StatusCode)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	c := NewClient(testToken, time.Second, 0.001, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL

	_, err := c.ForwardGeocode(context.Background(), "first")
	require.NoError(t, err, "burst allows the first request")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.ForwardGeocode(ctx, "second")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoResults))
	assert.Equal(t, 1, calls)
}
