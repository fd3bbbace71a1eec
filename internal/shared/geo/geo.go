// Package geo resolves the caller's position with a fixed fallback.
package geo

import (
	"math"
	"strconv"
)

type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Kathmandu is used whenever the caller's position is unknown.
var Kathmandu = Point{Lat: 27.7172, Lng: 85.3240}

// Resolve parses lat/lng query values. Missing, malformed or out-of-range
// input yields Kathmandu and fallback=true.
func Resolve(lat, lng string) (p Point, fallback bool) {
	la, errLat := strconv.ParseFloat(lat, 64)
	ln, errLng := strconv.ParseFloat(lng, 64)
	if errLat != nil || errLng != nil || math.IsNaN(la) || math.IsNaN(ln) ||
		la < -90 || la > 90 || ln < -180 || ln > 180 {
		return Kathmandu, true
	}
	return Point{Lat: la, Lng: ln}, false
}

const earthRadiusKm = 6371.0

func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

func (p Point) DistanceKm(q Point) float64 {
	return HaversineKm(p.Lat, p.Lng, q.Lat, q.Lng)
}
