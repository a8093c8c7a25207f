package domain

import (
	"context"

	"github.com/twpayne/go-geom"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider relevance score
}

// Found reports whether the provider matched anything.
func (r GeocodingResult) Found() bool {
	return r.FormattedAddress != "" || r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-text places to coordinates and back.
type Geocoder interface {
	// ForwardGeocode converts a free-text query to coordinates.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// IsochroneProvider computes travel-time polygons around an origin.
type IsochroneProvider interface {
	Isochrone(ctx context.Context, origin LngLat, profile string, minutes int) (*geom.MultiPolygon, error)
}
