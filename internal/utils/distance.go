package utils

import (
	"math"
)

// CalculateDistance returns the great-circle distance in kilometers between
// two points given as (latitude, longitude) pairs.
func CalculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	return haversineDistance(lat1, lon1, lat2, lon2)
}

func haversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180

	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

func IsWithinRadius(centerLat, centerLon, pointLat, pointLon, radiusKM float64) bool {
	return CalculateDistance(centerLat, centerLon, pointLat, pointLon) <= radiusKM
}

// EstimateDurationMinutes converts a distance into a trip duration estimate
// at average city speed.
func EstimateDurationMinutes(distanceKM float64) int {
	timeHours := distanceKM / DefaultCitySpeedKMH
	return int(math.Ceil(timeHours * 60))
}
