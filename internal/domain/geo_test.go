package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func TestIsochroneRequestValidate(t *testing.T) {
	london := LngLat{Lng: -0.1278, Lat: 51.5074}

	tests := []struct {
		name    string
		req     IsochroneRequest
		wantErr bool
	}{
		{"time minimum", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 1}, false},
		{"time maximum", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 60}, false},
		{"time zero", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 0}, true},
		{"time above limit", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 61}, true},
		{"time walking profile", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 15, Profile: "walking"}, false},
		{"time unknown profile", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 15, Profile: "flying"}, true},
		{"time fractional", IsochroneRequest{Origin: london, Mode: ModeTime, Value: 7.5}, true},
		{"distance fractional", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: 0.5}, false},
		{"distance maximum", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: 100}, false},
		{"distance zero", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: 0}, true},
		{"distance negative", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: -3}, true},
		{"distance above limit", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: 101}, true},
		{"distance NaN", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: math.NaN()}, true},
		{"distance infinite", IsochroneRequest{Origin: london, Mode: ModeDistance, Value: math.Inf(1)}, true},
		{"time NaN", IsochroneRequest{Origin: london, Mode: ModeTime, Value: math.NaN()}, true},
		{"NaN origin", IsochroneRequest{Origin: LngLat{Lng: math.NaN(), Lat: 51.5}, Mode: ModeDistance, Value: 1}, true},
		{"unknown mode", IsochroneRequest{Origin: london, Mode: "walking", Value: 5}, true},
		{"bad origin", IsochroneRequest{Origin: LngLat{Lng: 0, Lat: 95}, Mode: ModeTime, Value: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIsochroneJSONRoundTrip(t *testing.T) {
	iso := &Isochrone{Mode: ModeTime, Value: 15, Geometry: unitSquare(t)}

	data, err := json.Marshal(iso)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
	assert.Contains(t, string(data), `"unit":"minutes"`)

	var decoded Isochrone
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ModeTime, decoded.Mode)
	assert.InDelta(t, 15.0, decoded.Value, 1e-9)
	require.Equal(t, 1, decoded.Geometry.NumPolygons())
	assert.Equal(t, iso.Geometry.FlatCoords(), decoded.Geometry.FlatCoords())
}

func TestIsochroneBBox(t *testing.T) {
	iso := &Isochrone{Mode: ModeTime, Value: 10, Geometry: unitSquare(t)}
	assert.Equal(t, [4]float64{0, 0, 1, 1}, iso.BBox())

	empty := &Isochrone{Geometry: geom.NewMultiPolygon(geom.XY)}
	assert.Equal(t, [4]float64{}, empty.BBox())
}

func TestMultiPolygonFrom(t *testing.T) {
	square := geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}})
	pair := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{2, 2}, {3, 2}, {3, 3}, {2, 2}}},
		{{{4, 4}, {5, 4}, {5, 5}, {4, 4}}},
	})
	withZ := geom.NewPolygon(geom.XYZ).MustSetCoords([][]geom.Coord{{{0, 0, 9}, {1, 0, 9}, {1, 1, 9}, {0, 0, 9}}})

	mp, err := MultiPolygonFrom([]geom.T{square, pair, withZ, nil})
	require.NoError(t, err)
	assert.Equal(t, 4, mp.NumPolygons())
	assert.Equal(t, []float64{0, 0, 1, 0, 1, 1, 0, 0}, mp.Polygon(3).FlatCoords())

	_, err = MultiPolygonFrom([]geom.T{geom.NewPointFlat(geom.XY, []float64{0, 0})})
	require.Error(t, err)
}

func unitSquare(t *testing.T) *geom.MultiPolygon {
	t.Helper()
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
	})
}
