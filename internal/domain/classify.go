package domain

import (
	"strconv"
	"strings"
)

// DefaultAreaColor fills areas whose supergroup has no palette entry.
const DefaultAreaColor = "#ccc"

// Map layer identifiers and paint shared with the front end.
const (
	IsochroneLayerID   = "isochrone"
	OutputAreaLayerID  = "output-areas"
	IsochroneFillColor = "#00766f"
	LayerFillOpacity   = 0.5
	outputAreaCodeProp = "OA21CD"
)

// supergroupPalette lists the classification supergroups in legend order.
var supergroupPalette = []LegendEntry{
	{"Multicultural Metropolitans", "#E9730C"},
	{"Ethnicity Central", "#F755C9"},
	{"Constrained City Dwellers", "#F5D423"},
	{"Hard-Pressed Living", "#786EB6"},
	{"Cosmopolitans", "#1C76FD"},
	{"Urbanites", "#FF5C67"},
	{"Suburbanites", "#8BB340"},
	{"Rural Residents", "#42E8E0"},
}

var supergroupColors = func() map[string]string {
	m := make(map[string]string, len(supergroupPalette))
	for _, e := range supergroupPalette {
		m[e.Name] = e.Color
	}
	return m
}()

// SupergroupColor returns the palette colour for a supergroup name.
func SupergroupColor(name string) string {
	if c, ok := supergroupColors[name]; ok {
		return c
	}
	return DefaultAreaColor
}

// AreaClass is the classification of one matched output area. It doubles as
// the popup payload for that area.
type AreaClass struct {
	Code       string `json:"code"`
	Supergroup string `json:"supergroup"`
	Group      string `json:"group"`
	Subgroup   string `json:"subgroup"`
	Color      string `json:"color"`
}

// Classify returns the classification of each code that has a census row,
// in census table order. A code on several rows keeps its first position and
// takes the labels of its last row.
func Classify(codes []string, index CensusIndex) []AreaClass {
	rows := index.Lookup(codes)
	out := make([]AreaClass, 0, len(rows))
	at := make(map[string]int, len(rows))
	for _, r := range rows {
		c := AreaClass{
			Code:       r.Geography,
			Supergroup: r.Supergroup(),
			Group:      r.Group(),
			Subgroup:   r.Subgroup(),
			Color:      SupergroupColor(r.Supergroup()),
		}
		if i, ok := at[c.Code]; ok {
			out[i] = c
			continue
		}
		at[c.Code] = len(out)
		out = append(out, c)
	}
	return out
}

// LegendEntry pairs a supergroup with its fill colour.
type LegendEntry struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// BuildLegend lists the distinct supergroups in first-seen order.
func BuildLegend(classes []AreaClass) []LegendEntry {
	seen := make(map[string]bool)
	var legend []LegendEntry
	for _, c := range classes {
		if seen[c.Supergroup] {
			continue
		}
		seen[c.Supergroup] = true
		legend = append(legend, LegendEntry{Name: c.Supergroup, Color: c.Color})
	}
	return legend
}

// FillLayer is the data-driven part of a Mapbox GL fill layer.
type FillLayer struct {
	ID          string  `json:"id"`
	FillColor   any     `json:"fill_color"`
	FillOpacity float64 `json:"fill_opacity"`
	Filter      []any   `json:"filter,omitempty"`
}

// Overlay is everything a map client needs to draw a catchment.
type Overlay struct {
	BBox        [4]float64  `json:"bbox"`
	Isochrone   FillLayer   `json:"isochrone_layer"`
	OutputAreas FillLayer   `json:"output_areas_layer"`
	Popups      []AreaClass `json:"popups"`
}

// BuildOverlay produces the layer filter and colour expressions for the
// matched output areas.
func BuildOverlay(iso *Isochrone, matched []string, classes []AreaClass) Overlay {
	filter := []any{"in", outputAreaCodeProp}
	for _, code := range dedupe(matched) {
		filter = append(filter, code)
	}

	return Overlay{
		BBox: iso.BBox(),
		Isochrone: FillLayer{
			ID:          IsochroneLayerID,
			FillColor:   IsochroneFillColor,
			FillOpacity: LayerFillOpacity,
		},
		OutputAreas: FillLayer{
			ID:          OutputAreaLayerID,
			FillColor:   colorExpression(classes),
			FillOpacity: LayerFillOpacity,
			Filter:      filter,
		},
		Popups: classes,
	}
}

// colorExpression builds a match expression keyed on area code. A match
// needs at least one branch, so an empty set falls back to a constant.
func colorExpression(classes []AreaClass) any {
	if len(classes) == 0 {
		return DefaultAreaColor
	}
	expr := make([]any, 0, 2*len(classes)+3)
	expr = append(expr, "match", []any{"get", outputAreaCodeProp})
	for _, c := range classes {
		expr = append(expr, c.Code, c.Color)
	}
	return append(expr, DefaultAreaColor)
}

// ContrastColor picks black or white text for a #rrggbb background using YIQ
// luminance. Empty and "#fff" get black. Any other value that is not six hex
// digits, shorthand colours included, gets white.
func ContrastColor(hex string) string {
	if hex == "" || hex == "#fff" {
		return "black"
	}
	r, g, b, ok := parseHex(hex)
	if !ok {
		return "white"
	}
	if (r*299+g*587+b*114)/1000 >= 128 {
		return "black"
	}
	return "white"
}

func parseHex(hex string) (int, int, int, bool) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
