package domain

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LngLat is a WGS84 coordinate in Mapbox order.
type LngLat struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (p LngLat) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p LngLat) coord() geom.Coord {
	return geom.Coord{p.Lng, p.Lat}
}

// IsochroneMode selects how a catchment boundary is computed.
type IsochroneMode string

const (
	ModeTime     IsochroneMode = "time"
	ModeDistance IsochroneMode = "distance"
)

// Limits for catchment requests. Mapbox rejects contours above 60 minutes.
const (
	MaxTravelMinutes = 60
	MaxDistanceMiles = 100
)

// IsochroneRequest describes a catchment boundary to build.
type IsochroneRequest struct {
	Origin  LngLat
	Mode    IsochroneMode
	Value   float64 // minutes for ModeTime, miles for ModeDistance
	Profile string  // routing profile, time mode only
}

// Validate checks mode, value range and origin.
func (r IsochroneRequest) Validate() error {
	if !r.Origin.Valid() {
		return invalidf("origin %v,%v out of range", r.Origin.Lng, r.Origin.Lat)
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return invalidf("value must be a finite number")
	}
	switch r.Mode {
	case ModeTime:
		if r.Value < 1 || r.Value > MaxTravelMinutes || r.Value != float64(int(r.Value)) {
			return invalidf("travel time must be a whole number of minutes between 1 and %d", MaxTravelMinutes)
		}
		if r.Profile != "" && !ValidProfile(r.Profile) {
			return invalidf("unknown routing profile %q", r.Profile)
		}
	case ModeDistance:
		if r.Value <= 0 || r.Value > MaxDistanceMiles {
			return invalidf("distance must be greater than 0 and at most %d miles", MaxDistanceMiles)
		}
	default:
		return invalidf("unknown mode %q", r.Mode)
	}
	return nil
}

var routingProfiles = map[string]bool{
	"driving":         true,
	"driving-traffic": true,
	"walking":         true,
	"cycling":         true,
}

// ValidProfile reports whether p is a Mapbox isochrone routing profile.
func ValidProfile(p string) bool {
	return routingProfiles[p]
}

// Unit returns the unit label for the request value.
func (m IsochroneMode) Unit() string {
	if m == ModeDistance {
		return "miles"
	}
	return "minutes"
}

// Isochrone is a resolved catchment boundary.
type Isochrone struct {
	Mode     IsochroneMode
	Value    float64
	Geometry *geom.MultiPolygon
}

// Bounds returns the bounding box of the boundary.
func (i *Isochrone) Bounds() *geom.Bounds {
	if i.Geometry == nil {
		return geom.NewBounds(geom.XY)
	}
	return geom.NewBounds(geom.XY).Extend(i.Geometry)
}

// BBox returns [minLng, minLat, maxLng, maxLat] for fitting a map view.
func (i *Isochrone) BBox() [4]float64 {
	b := i.Bounds()
	if b.IsEmpty() {
		return [4]float64{}
	}
	return [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}

// FeatureCollection exports the boundary with one polygon feature per part.
func (i *Isochrone) FeatureCollection() *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{}
	if i.Geometry == nil {
		return fc
	}
	for k := 0; k < i.Geometry.NumPolygons(); k++ {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: i.Geometry.Polygon(k),
			Properties: map[string]interface{}{
				"mode":  string(i.Mode),
				"value": i.Value,
				"unit":  i.Mode.Unit(),
			},
		})
	}
	return fc
}

func (i *Isochrone) MarshalJSON() ([]byte, error) {
	return i.FeatureCollection().MarshalJSON()
}

func (i *Isochrone) UnmarshalJSON(data []byte) error {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("decode isochrone: %w", err)
	}
	geoms := make([]geom.T, 0, len(fc.Features))
	for _, f := range fc.Features {
		geoms = append(geoms, f.Geometry)
	}
	mp, err := MultiPolygonFrom(geoms)
	if err != nil {
		return err
	}
	i.Geometry = mp
	if len(fc.Features) > 0 {
		props := fc.Features[0].Properties
		if m, ok := props["mode"].(string); ok {
			i.Mode = IsochroneMode(m)
		}
		if v, ok := props["value"].(float64); ok {
			i.Value = v
		}
	}
	return nil
}

// MultiPolygonFrom flattens polygon and multipolygon geometries into one
// multipolygon. Other geometry types are rejected.
func MultiPolygonFrom(geoms []geom.T) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	push := func(p *geom.Polygon) error {
		if p.Layout() != geom.XY {
			p = geom.NewPolygonFlat(geom.XY, dropZ(p.FlatCoords(), p.Stride()), xyEnds(p.Ends(), p.Stride()))
		}
		return mp.Push(p)
	}
	for _, g := range geoms {
		switch g := g.(type) {
		case *geom.Polygon:
			if err := push(g); err != nil {
				return nil, fmt.Errorf("add polygon: %w", err)
			}
		case *geom.MultiPolygon:
			for k := 0; k < g.NumPolygons(); k++ {
				if err := push(g.Polygon(k)); err != nil {
					return nil, fmt.Errorf("add polygon: %w", err)
				}
			}
		case nil:
			continue
		default:
			return nil, fmt.Errorf("unsupported geometry %T", g)
		}
	}
	return mp, nil
}

func dropZ(flat []float64, stride int) []float64 {
	out := make([]float64, 0, len(flat)/stride*2)
	for k := 0; k+1 < len(flat); k += stride {
		out = append(out, flat[k], flat[k+1])
	}
	return out
}

func xyEnds(ends []int, stride int) []int {
	out := make([]int, len(ends))
	for k, e := range ends {
		out[k] = e / stride * 2
	}
	return out
}
