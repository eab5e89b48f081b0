package domain

import "github.com/paulmach/orb"

// Point is a validated (latitude, longitude) pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pair returns the point as a [lat, lon] array, the shape the legacy API emits.
func (p Point) Pair() [2]float64 {
	return [2]float64{p.Lat, p.Lon}
}

// Orb converts the point to an orb.Point. Orb follows GeoJSON axis order, so
// longitude comes first.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Valid reports whether the point lies inside the WGS 84 coordinate range.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Route is an ordered sequence of waypoints. Consecutive points form the
// travel segments.
type Route struct {
	Points []Point `json:"points"`
}

// Segments returns the number of travel segments in the route.
func (r Route) Segments() int {
	if len(r.Points) < 2 {
		return 0
	}
	return len(r.Points) - 1
}

// LineString converts the route to an orb.LineString.
func (r Route) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(r.Points))
	for _, p := range r.Points {
		ls = append(ls, p.Orb())
	}
	return ls
}
