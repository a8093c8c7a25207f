package domain

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Centroid is a population-weighted output-area centroid.
type Centroid struct {
	FID      string `json:"fid"`
	Code     string `json:"code"`
	GlobalID string `json:"global_id"`
	Point    LngLat `json:"point"`
}

// PointsWithin returns the centroids inside any polygon of the boundary,
// preserving input order. Points on a ring count as inside.
func PointsWithin(centroids []Centroid, boundary *geom.MultiPolygon) []Centroid {
	if boundary == nil || boundary.NumPolygons() == 0 {
		return nil
	}

	polys := make([]*geom.Polygon, boundary.NumPolygons())
	boxes := make([]*geom.Bounds, len(polys))
	for k := range polys {
		polys[k] = boundary.Polygon(k)
		boxes[k] = geom.NewBounds(geom.XY).Extend(polys[k])
	}

	var out []Centroid
	for _, c := range centroids {
		p := c.Point.coord()
		for k, poly := range polys {
			if boxes[k].OverlapsPoint(geom.XY, p) && polygonContains(poly, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// polygonContains tests the shell then excludes hole interiors; hole
// boundaries belong to the polygon.
func polygonContains(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(geom.XY, p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for k := 1; k < poly.NumLinearRings(); k++ {
		if xy.LocatePointInRing(geom.XY, p, poly.LinearRing(k).FlatCoords()) == location.Interior {
			return false
		}
	}
	return true
}
