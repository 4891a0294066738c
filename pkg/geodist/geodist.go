// Package geodist provides great-circle distance computation between
// geographic coordinates.
package geodist

import "math"

// EarthRadiusMeters is the mean Earth radius used for great-circle math.
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two
// (lat, lon) points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// HaversineMetersInt returns Haversine truncated to whole meters, the unit
// used throughout cost matrices.
func HaversineMetersInt(lat1, lon1, lat2, lon2 float64) int {
	return int(Haversine(lat1, lon1, lat2, lon2))
}
