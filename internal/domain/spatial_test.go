package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func codesOf(cs []Centroid) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Code
	}
	return out
}

func TestPointsWithin(t *testing.T) {
	boundary := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		// Square with a hole in the middle.
		{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
		},
		// Disjoint second part.
		{{{20, 20}, {22, 20}, {22, 22}, {20, 22}, {20, 20}}},
	})

	centroids := []Centroid{
		{Code: "E1", Point: LngLat{Lng: 1, Lat: 1}},
		{Code: "HOLE", Point: LngLat{Lng: 5, Lat: 5}},
		{Code: "HOLE_EDGE", Point: LngLat{Lng: 4, Lat: 5}},
		{Code: "OUTSIDE", Point: LngLat{Lng: 15, Lat: 15}},
		{Code: "EDGE", Point: LngLat{Lng: 10, Lat: 5}},
		{Code: "PART2", Point: LngLat{Lng: 21, Lat: 21}},
		{Code: "VERTEX", Point: LngLat{Lng: 0, Lat: 0}},
	}

	got := PointsWithin(centroids, boundary)

	assert.Equal(t, []string{"E1", "HOLE_EDGE", "EDGE", "PART2", "VERTEX"}, codesOf(got))
}

func TestPointsWithin_EmptyBoundary(t *testing.T) {
	centroids := []Centroid{{Code: "E1", Point: LngLat{Lng: 1, Lat: 1}}}
	assert.Empty(t, PointsWithin(centroids, nil))
	assert.Empty(t, PointsWithin(centroids, geom.NewMultiPolygon(geom.XY)))
}

func TestPointsWithin_OverlappingPartsCountOnce(t *testing.T) {
	boundary := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}}},
		{{{1, 1}, {3, 1}, {3, 3}, {1, 3}, {1, 1}}},
	})
	got := PointsWithin([]Centroid{{Code: "BOTH", Point: LngLat{Lng: 1.5, Lat: 1.5}}}, boundary)
	assert.Len(t, got, 1)
}
