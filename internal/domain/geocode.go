package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Origin is the resolved centre of a catchment.
type Origin struct {
	Point     LngLat `json:"point"`
	PlaceName string `json:"place_name,omitempty"`
	Source    string `json:"source"` // "forward", "reverse", "original"
}

// ResolveOrigin turns a query or explicit coordinate into an Origin.
//
// A query is forward geocoded and fails with ErrNoResults when the provider
// finds nothing. An explicit coordinate is reverse geocoded for its label only;
// reverse failures degrade to an unlabelled origin.
func ResolveOrigin(ctx context.Context, query string, point *LngLat, geocoder Geocoder, logger *slog.Logger) (Origin, error) {
	query = strings.TrimSpace(query)

	if point != nil {
		if !point.Valid() {
			return Origin{}, invalidf("origin %v,%v out of range", point.Lng, point.Lat)
		}
		origin := Origin{Point: *point, Source: "original"}
		if geocoder == nil {
			return origin, nil
		}
		result, err := geocoder.ReverseGeocode(ctx, point.Lat, point.Lng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"lat", point.Lat,
				"lng", point.Lng,
				"error", err,
			)
			return origin, nil
		}
		if result.FormattedAddress != "" {
			origin.PlaceName = result.FormattedAddress
			origin.Source = "reverse"
		}
		return origin, nil
	}

	if query == "" {
		return Origin{}, invalidf("either a query or an origin coordinate is required")
	}
	if geocoder == nil {
		return Origin{}, fmt.Errorf("geocode %q: %w", query, ErrServiceDisabled)
	}

	result, err := geocoder.ForwardGeocode(ctx, query)
	if err != nil {
		return Origin{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	if !result.Found() {
		return Origin{}, fmt.Errorf("geocode %q: %w", query, ErrNoResults)
	}
	return Origin{
		Point:     LngLat{Lng: result.Lon, Lat: result.Lat},
		PlaceName: result.FormattedAddress,
		Source:    "forward",
	}, nil
}
