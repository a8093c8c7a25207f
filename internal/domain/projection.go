package domain

import (
	"math"

	"github.com/wroge/wgs84"
)

// British National Grid (EPSG:27700) true origin and scale factor.
const (
	gridScale  = 0.9996012717
	gridLat0   = 49 * math.Pi / 180
	gridLon0   = -2 * math.Pi / 180
	gridE0     = 400000.0
	gridN0     = -100000.0
	convergeTo = 1e-5 // metres of meridional arc
)

// osgbToWGS84 runs grid coordinates through the OSGB36 datum and its
// seven-parameter Helmert shift onto WGS84.
var osgbToWGS84 = wgs84.Transform(
	wgs84.ProjectedReferenceSystem{Datum: wgs84.OSGB36(), Projection: nationalGrid{}},
	wgs84.LonLat(),
)

// OSGBToWGS84 converts a British National Grid easting/northing in metres
// to a WGS84 longitude/latitude in degrees.
func OSGBToWGS84(easting, northing float64) LngLat {
	lng, lat, _ := osgbToWGS84(easting, northing, 0)
	return LngLat{Lng: lng, Lat: lat}
}

// nationalGrid is the Ordnance Survey Transverse Mercator series. It
// implements wgs84.Projection in place of wgs84's own Transverse Mercator,
// whose inverse drifts by several metres towards the edges of the grid.
type nationalGrid struct{}

func (nationalGrid) ToLonLat(east, north float64, s wgs84.Spheroid) (float64, float64) {
	lat, lon := gridToLatLon(east, north, s.A(), semiMinor(s))
	return lon * 180 / math.Pi, lat * 180 / math.Pi
}

func (nationalGrid) FromLonLat(lon, lat float64, s wgs84.Spheroid) (float64, float64) {
	return latLonToGrid(lat*math.Pi/180, lon*math.Pi/180, s.A(), semiMinor(s))
}

func semiMinor(s wgs84.Spheroid) float64 {
	return s.A() * (1 - 1/s.Fi())
}

// meridionalArc is the scaled meridian distance from the true origin latitude.
func meridionalArc(lat, b, n float64) float64 {
	n2, n3 := n*n, n*n*n
	dLat, sLat := lat-gridLat0, lat+gridLat0
	ma := (1 + n + 1.25*n2 + 1.25*n3) * dLat
	mb := (3*n + 3*n2 + 21.0/8*n3) * math.Sin(dLat) * math.Cos(sLat)
	mc := (15.0/8*n2 + 15.0/8*n3) * math.Sin(2*dLat) * math.Cos(2*sLat)
	md := 35.0 / 24 * n3 * math.Sin(3*dLat) * math.Cos(3*sLat)
	return b * gridScale * (ma - mb + mc - md)
}

// radii returns the transverse and meridional radii of curvature at lat,
// scaled to the grid.
func radii(lat, a, e2 float64) (nu, rho float64) {
	sin := math.Sin(lat)
	w := 1 - e2*sin*sin
	return a * gridScale / math.Sqrt(w), a * gridScale * (1 - e2) / math.Pow(w, 1.5)
}

// gridToLatLon is the inverse projection, returning latitude and longitude
// in radians on the ellipsoid with semi-axes a and b.
func gridToLatLon(easting, northing, a, b float64) (float64, float64) {
	e2 := 1 - (b*b)/(a*a)
	n := (a - b) / (a + b)

	lat := gridLat0
	m := 0.0
	for {
		lat = (northing-gridN0-m)/(a*gridScale) + lat
		m = meridionalArc(lat, b, n)
		if math.Abs(northing-gridN0-m) < convergeTo {
			break
		}
	}

	nu, rho := radii(lat, a, e2)
	eta2 := nu/rho - 1

	tan := math.Tan(lat)
	tan2, tan4, tan6 := tan*tan, math.Pow(tan, 4), math.Pow(tan, 6)
	sec := 1 / math.Cos(lat)
	nu3, nu5, nu7 := math.Pow(nu, 3), math.Pow(nu, 5), math.Pow(nu, 7)

	vii := tan / (2 * rho * nu)
	viii := tan / (24 * rho * nu3) * (5 + 3*tan2 + eta2 - 9*tan2*eta2)
	ix := tan / (720 * rho * nu5) * (61 + 90*tan2 + 45*tan4)
	x := sec / nu
	xi := sec / (6 * nu3) * (nu/rho + 2*tan2)
	xii := sec / (120 * nu5) * (5 + 28*tan2 + 24*tan4)
	xiia := sec / (5040 * nu7) * (61 + 662*tan2 + 1320*tan4 + 720*tan6)

	dE := easting - gridE0
	dE2 := dE * dE
	dE3 := dE2 * dE
	dE4 := dE3 * dE
	dE5 := dE4 * dE
	dE6 := dE5 * dE
	dE7 := dE6 * dE

	outLat := lat - vii*dE2 + viii*dE4 - ix*dE6
	outLon := gridLon0 + x*dE - xi*dE3 + xii*dE5 - xiia*dE7
	return outLat, outLon
}

// latLonToGrid is the forward projection from radians to easting/northing.
func latLonToGrid(lat, lon, a, b float64) (float64, float64) {
	e2 := 1 - (b*b)/(a*a)
	n := (a - b) / (a + b)

	nu, rho := radii(lat, a, e2)
	eta2 := nu/rho - 1

	sin, cos := math.Sin(lat), math.Cos(lat)
	cos3, cos5 := math.Pow(cos, 3), math.Pow(cos, 5)
	tan2 := math.Pow(math.Tan(lat), 2)
	tan4 := tan2 * tan2

	i := meridionalArc(lat, b, n) + gridN0
	ii := nu / 2 * sin * cos
	iii := nu / 24 * sin * cos3 * (5 - tan2 + 9*eta2)
	iiia := nu / 720 * sin * cos5 * (61 - 58*tan2 + tan4)
	iv := nu * cos
	v := nu / 6 * cos3 * (nu/rho - tan2)
	vi := nu / 120 * cos5 * (5 - 18*tan2 + tan4 + 14*eta2 - 58*tan2*eta2)

	dL := lon - gridLon0
	dL2 := dL * dL
	northing := i + ii*dL2 + iii*dL2*dL2 + iiia*dL2*dL2*dL2
	easting := gridE0 + iv*dL + v*dL2*dL + vi*dL2*dL2*dL
	return easting, northing
}
