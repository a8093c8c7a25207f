package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"
)

func TestSupergroupColor(t *testing.T) {
	assert.Equal(t, "#E9730C", SupergroupColor("Multicultural Metropolitans"))
	assert.Equal(t, "#42E8E0", SupergroupColor("Rural Residents"))
	assert.Equal(t, DefaultAreaColor, SupergroupColor("Martians"))
	assert.Equal(t, DefaultAreaColor, SupergroupColor(""))
}

func TestClassify(t *testing.T) {
	classes := Classify([]string{"E00000002", "E00000099", "E00000001", "E00000002"}, testIndex())

	// Census table order, not match order.
	want := []AreaClass{
		{
			Code:       "E00000001",
			Supergroup: "Urbanites",
			Group:      "Ageing Urban Communities",
			Subgroup:   "Retired Communities",
			Color:      "#FF5C67",
		},
		{Code: "E00000002", Supergroup: "Suburbanites", Color: "#8BB340"},
	}
	if diff := cmp.Diff(want, classes); diff != "" {
		t.Errorf("Classify mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_DuplicateRowKeepsFirstPositionAndLastLabels(t *testing.T) {
	index := NewCensusIndex([]CensusRecord{
		censusRow("E1", map[string]string{FieldSupergroup: "Urbanites"}),
		censusRow("E2", map[string]string{FieldSupergroup: "Suburbanites"}),
		censusRow("E1", map[string]string{FieldSupergroup: "Cosmopolitans"}),
	})

	classes := Classify([]string{"E2", "E1"}, index)

	assert.Equal(t, []AreaClass{
		{Code: "E1", Supergroup: "Cosmopolitans", Color: "#1C76FD"},
		{Code: "E2", Supergroup: "Suburbanites", Color: "#8BB340"},
	}, classes)
}

func TestLegendFollowsCensusOrder(t *testing.T) {
	index := NewCensusIndex([]CensusRecord{
		censusRow("A", map[string]string{FieldSupergroup: "Urbanites"}),
		censusRow("B", map[string]string{FieldSupergroup: "Suburbanites"}),
	})

	legend := BuildLegend(Classify([]string{"B", "A"}, index))

	assert.Equal(t, []LegendEntry{
		{Name: "Urbanites", Color: "#FF5C67"},
		{Name: "Suburbanites", Color: "#8BB340"},
	}, legend)
}

func TestBuildLegend(t *testing.T) {
	classes := []AreaClass{
		{Supergroup: "Urbanites", Color: "#FF5C67"},
		{Supergroup: "Suburbanites", Color: "#8BB340"},
		{Supergroup: "Urbanites", Color: "#FF5C67"},
		{Supergroup: "Unknown", Color: DefaultAreaColor},
	}

	assert.Equal(t, []LegendEntry{
		{Name: "Urbanites", Color: "#FF5C67"},
		{Name: "Suburbanites", Color: "#8BB340"},
		{Name: "Unknown", Color: DefaultAreaColor},
	}, BuildLegend(classes))
	assert.Empty(t, BuildLegend(nil))
}

func TestBuildOverlay(t *testing.T) {
	iso := &Isochrone{Mode: ModeTime, Value: 10, Geometry: geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{
		{{{-1, 50}, {0, 50}, {0, 51}, {-1, 51}, {-1, 50}}},
	})}
	classes := []AreaClass{
		{Code: "E1", Supergroup: "Urbanites", Color: "#FF5C67"},
		{Code: "E2", Supergroup: "Rural Residents", Color: "#42E8E0"},
	}

	o := BuildOverlay(iso, []string{"E1", "E2", "E3"}, classes)

	assert.Equal(t, [4]float64{-1, 50, 0, 51}, o.BBox)
	assert.Equal(t, IsochroneLayerID, o.Isochrone.ID)
	assert.Equal(t, IsochroneFillColor, o.Isochrone.FillColor)
	assert.InDelta(t, 0.5, o.Isochrone.FillOpacity, 1e-9)
	assert.Equal(t, OutputAreaLayerID, o.OutputAreas.ID)
	assert.Equal(t, []any{"in", "OA21CD", "E1", "E2", "E3"}, o.OutputAreas.Filter)
	assert.Equal(t, []any{
		"match", []any{"get", "OA21CD"},
		"E1", "#FF5C67",
		"E2", "#42E8E0",
		"#ccc",
	}, o.OutputAreas.FillColor)
	assert.Equal(t, classes, o.Popups)
}

func TestBuildOverlay_NoClassifiedAreas(t *testing.T) {
	iso := &Isochrone{Geometry: geom.NewMultiPolygon(geom.XY)}
	o := BuildOverlay(iso, []string{"E1"}, nil)
	assert.Equal(t, DefaultAreaColor, o.OutputAreas.FillColor)
	assert.Equal(t, []any{"in", "OA21CD", "E1"}, o.OutputAreas.Filter)
}

func TestContrastColor(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"#fff", "black"},
		{"", "black"},
		{"#ccc", "white"},
		{"#FFF", "white"},
		{"#F5D423", "black"},
		{"#42E8E0", "black"},
		{"#786EB6", "white"},
		{"#1C76FD", "white"},
		{"#000000", "white"},
		{"not-a-color", "white"},
		{"#zzzzzz", "white"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ContrastColor(tt.in), tt.in)
	}
}
