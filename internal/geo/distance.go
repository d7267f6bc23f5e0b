// Package geo provides great-circle distance and nearest-neighbour search
// over clinic coordinates.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusMeters is the mean Earth radius used by Haversine.
const EarthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the latitude [-90, 90] and
// longitude [-180, 180] ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// Validate returns an error describing an out-of-range point.
func (p Point) Validate() error {
	if !p.Valid() {
		return eris.Errorf("geo: invalid coordinates (%f, %f)", p.Lat, p.Lon)
	}
	return nil
}

// FromPtr builds a point from optional coordinates. ok is false when
// either coordinate is missing.
func FromPtr(lat, lon *float64) (Point, bool) {
	if lat == nil || lon == nil {
		return Point{}, false
	}
	return Point{Lat: *lat, Lon: *lon}, true
}

// Haversine returns the great-circle distance in meters between a and b.
// Inputs must be valid; callers validate beforehand. The result is
// symmetric and exactly 0 for identical points.
func Haversine(a, b Point) float64 {
	if a == b {
		return 0
	}
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Rounding can push h just outside [0, 1] near antipodes.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}
