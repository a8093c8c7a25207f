package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/catchment-service/internal/domain"
	"github.com/couchcryptid/catchment-service/internal/observability"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.mapbox.com"
	geocodingPath  = "/geocoding/v5/mapbox.places"
	isochronePath  = "/isochrone/v1/mapbox"

	serviceGeocode   = "mapbox_geocode"
	serviceIsochrone = "mapbox_isochrone"
)

// Client implements domain.Geocoder and domain.IsochroneProvider using the
// Mapbox Geocoding and Isochrone APIs.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox client limited to ratePerSecond outbound requests.
func NewClient(token string, timeout time.Duration, ratePerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	burst := max(int(ratePerSecond), 1)
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode converts a free-text query to coordinates using the first match.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s%s/%s.json", c.baseURL, geocodingPath, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	return c.geocode(ctx, u+"?"+params.Encode(), "forward")
}

// ReverseGeocode converts coordinates to place details.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	coord := fmt.Sprintf("%.6f,%.6f", lon, lat)
	u := fmt.Sprintf("%s%s/%s.json", c.baseURL, geocodingPath, coord)
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
	}

	return c.geocode(ctx, u+"?"+params.Encode(), "reverse")
}

// Isochrone fetches the travel-time polygon reachable from origin within minutes.
func (c *Client) Isochrone(ctx context.Context, origin domain.LngLat, profile string, minutes int) (*geom.MultiPolygon, error) {
	start := time.Now()
	u := fmt.Sprintf("%s%s/%s/%s,%s", c.baseURL, isochronePath, url.PathEscape(profile),
		strconv.FormatFloat(origin.Lng, 'f', -1, 64), strconv.FormatFloat(origin.Lat, 'f', -1, 64))
	params := url.Values{
		"contours_minutes": {strconv.Itoa(minutes)},
		"polygons":         {"true"},
		"access_token":     {c.token},
	}

	var fc geojson.FeatureCollection
	if err := c.get(ctx, u+"?"+params.Encode(), "isochrone", &fc); err != nil {
		c.metrics.ObserveUpstream(serviceIsochrone, "error", start)
		return nil, err
	}

	if len(fc.Features) == 0 {
		c.metrics.ObserveUpstream(serviceIsochrone, "empty", start)
		return nil, domain.ErrNoIsochrone
	}

	geoms := make([]geom.T, 0, len(fc.Features))
	for _, f := range fc.Features {
		geoms = append(geoms, f.Geometry)
	}
	mp, err := domain.MultiPolygonFrom(geoms)
	if err != nil {
		c.metrics.ObserveUpstream(serviceIsochrone, "error", start)
		return nil, fmt.Errorf("isochrone geometry: %w", err)
	}
	if mp.NumPolygons() == 0 {
		c.metrics.ObserveUpstream(serviceIsochrone, "empty", start)
		return nil, domain.ErrNoIsochrone
	}

	c.metrics.ObserveUpstream(serviceIsochrone, "success", start)
	return mp, nil
}

func (c *Client) geocode(ctx context.Context, fullURL, method string) (domain.GeocodingResult, error) {
	start := time.Now()

	var mapboxResp response
	if err := c.get(ctx, fullURL, method+" geocode", &mapboxResp); err != nil {
		c.metrics.ObserveUpstream(serviceGeocode, "error", start)
		return domain.GeocodingResult{}, err
	}

	if len(mapboxResp.Features) == 0 {
		c.metrics.ObserveUpstream(serviceGeocode, "empty", start)
		return domain.GeocodingResult{}, nil
	}
	c.metrics.ObserveUpstream(serviceGeocode, "success", start)

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, fullURL, op string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limit: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("mapbox request failed", "op", op, "error", err)
		return fmt.Errorf("%s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("mapbox API error", "op", op, "status", resp.StatusCode)
		return &domain.UpstreamError{Service: "mapbox", StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// Mapbox geocoding response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
