package grading

import "math"

const earthRadiusMeters = 6371000.0

// DistanceFunc returns the distance in meters between two coordinates.
type DistanceFunc func(lat1, lon1, lat2, lon2 float64) float64

// Haversine is the great-circle distance between two points in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
