package utils

import "time"

// Application constants
const (
	AppName    = "PoolRide"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Pooling. The candidate cap is deliberate: pooling is opportunistic,
	// not globally optimal.
	PoolMatchRadiusKM = 3.0
	PoolMatchWindow   = 30 * time.Minute
	MaxPoolCandidates = 3

	// Chat
	MaxMessageLength = 1000

	// Driver location cache TTL
	DriverLocationTTL = 5 * time.Minute
)

// HTTP status messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Geographic constants
const (
	EarthRadiusKM = 6371.0

	// Average city speed used for duration estimates, km/h.
	DefaultCitySpeedKMH = 30.0
)
