package geo

import (
	"math"

	"github.com/urbanquest/quest-progression/pkg/domain"
)

// EarthRadiusMeters is the IUGG mean Earth radius.
const EarthRadiusMeters = 6371008.8

// DefaultArrivalRadiusMeters applies to stops that do not set their own radius.
const DefaultArrivalRadiusMeters = 50.0

// DistanceMeters returns the great-circle (haversine) distance between a and b.
func DistanceMeters(a, b domain.Location) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := lat2 - lat1
	dLng := toRadians(b.Longitude - a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	// Clamp against floating point drift for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Within reports whether a and b are no more than radiusMeters apart.
func Within(a, b domain.Location, radiusMeters float64) bool {
	return DistanceMeters(a, b) <= radiusMeters
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
