// Package geo computes great-circle distances and keeps points inside a
// playable bounding box.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Finite reports whether both components are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.Lat) && !math.IsInf(p.Lat, 0) &&
		!math.IsNaN(p.Lng) && !math.IsInf(p.Lng, 0)
}

// Bounds is a latitude/longitude box, edges inclusive.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

var ErrInvalidBounds = errors.New("invalid bounds")

// Validate rejects empty, inverted or non-finite boxes.
func (b Bounds) Validate() error {
	lo := Point{Lat: b.MinLat, Lng: b.MinLng}
	hi := Point{Lat: b.MaxLat, Lng: b.MaxLng}
	if !lo.Finite() || !hi.Finite() {
		return ErrInvalidBounds
	}
	if b.MinLat >= b.MaxLat || b.MinLng >= b.MaxLng {
		return ErrInvalidBounds
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return ErrInvalidBounds
	}
	return nil
}

func (b Bounds) Center() Point {
	return Point{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lng: (b.MinLng + b.MaxLng) / 2,
	}
}

func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Clamp moves p onto the nearest point inside b. Infinite components clamp
// to the matching edge; callers must reject NaN before clamping.
func (b Bounds) Clamp(p Point) Point {
	return Point{
		Lat: min(max(p.Lat, b.MinLat), b.MaxLat),
		Lng: min(max(p.Lng, b.MinLng), b.MaxLng),
	}
}

// DistanceKm returns the haversine distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// Rounding can push h a hair outside [0, 1] for antipodal points.
	h = min(max(h, 0), 1)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// IsCorrect reports whether a guess distanceKm away is strictly within
// toleranceKm.
func IsCorrect(distanceKm, toleranceKm float64) bool {
	return distanceKm < toleranceKm
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
