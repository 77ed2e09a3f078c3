// Package geo holds the pure distance and delivery-time math. No side
// effects, no error cases: invalid coordinates yield NaN and propagate.
package geo

import (
	"math"

	"github.com/Stephani-e/food-delivery-app/internal/models"
)

const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle (haversine) distance between two
// coordinates in kilometers. Symmetric, and zero for identical points.
func DistanceKm(a, b models.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// EtaMinutes projects a delivery time from a distance using a fixed
// average speed in km/h.
func EtaMinutes(distanceKm, avgSpeedKmh float64) float64 {
	return distanceKm / avgSpeedKmh * 60
}
