package domain

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/twpayne/go-geom"
)

const (
	// MilesToMeters converts distance-mode catchment radii.
	MilesToMeters = 1609.34
	// CircleSteps is the vertex count of a distance-mode catchment.
	CircleSteps = 64

	earthRadiusMeters = 6371008.8
)

// Circle returns a closed geodesic ring of steps vertices around center.
// The ring is counter-clockwise in lng/lat space.
func Circle(center LngLat, radiusMeters float64, steps int) *geom.Polygon {
	if steps < 3 {
		steps = CircleSteps
	}
	c := s2.PointFromLatLng(s2.LatLngFromDegrees(center.Lat, center.Lng))
	loop := s2.RegularLoop(c, s1.Angle(radiusMeters/earthRadiusMeters), steps)

	flat := make([]float64, 0, (steps+1)*2)
	for _, v := range loop.Vertices() {
		ll := s2.LatLngFromPoint(v)
		flat = append(flat, ll.Lng.Degrees(), ll.Lat.Degrees())
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
}

// DistanceIsochrone builds a distance-mode catchment of the given radius in miles.
func DistanceIsochrone(center LngLat, miles float64) *Isochrone {
	mp := geom.NewMultiPolygon(geom.XY)
	// Push only fails on layout mismatch.
	_ = mp.Push(Circle(center, miles*MilesToMeters, CircleSteps))
	return &Isochrone{Mode: ModeDistance, Value: miles, Geometry: mp}
}
