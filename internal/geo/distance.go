package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusInMeters is the Earth's volumetric mean radius
const earthRadiusInMeters = 6371000

// Coordinates is a latitude/longitude pair in degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance in meters between a and b
// using the Haversine formula.
func Distance(a, b Coordinates) float64 {
	phi1 := toRadians(a.Latitude)
	phi2 := toRadians(b.Latitude)
	deltaPhi := toRadians(b.Latitude - a.Latitude)
	deltaLambda := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)

	return earthRadiusInMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ValidCoordinates reports whether c is a finite point inside the
// latitude/longitude ranges.
func ValidCoordinates(c Coordinates) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude).IsValid()
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
