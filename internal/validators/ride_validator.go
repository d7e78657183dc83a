package validators

import (
	"time"
)

type DestinationRequest struct {
	Address  string          `json:"address" validate:"required,min=3,max=255"`
	Location LocationRequest `json:"location" validate:"required"`
}

type LocationRequest struct {
	Coordinates []float64 `json:"coordinates" validate:"required,coordinates"` // [lng, lat]
}

type CreateRideRequest struct {
	PickupLandmarkID string             `json:"pickup_landmark_id" validate:"required,object_id"`
	Destination      DestinationRequest `json:"destination" validate:"required"`
	ScheduledTime    time.Time          `json:"scheduled_time" validate:"required"`
	PassengerCount   int                `json:"passenger_count" validate:"omitempty,min=1,max=4"`
}

// CancelRideRequest carries no required fields: the reason is optional for
// a driver backing out of an assigned ride, and the service enforces it for
// true cancellations.
type CancelRideRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

type RateRideRequest struct {
	Rating  int    `json:"rating" validate:"required,rating_value"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

type RideMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=1000"`
}

type DriverLocationRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lng float64 `json:"lng" validate:"min=-180,max=180"`
}

func ValidateCreateRide(req *CreateRideRequest) ValidationErrors {
	errors := ValidateStruct(req)

	if len(req.Destination.Location.Coordinates) != 2 {
		errors = append(errors, ValidationError{
			Field:   "destination.location.coordinates",
			Message: "Destination coordinates are required",
		})
	}

	if !req.ScheduledTime.IsZero() && req.ScheduledTime.Before(time.Now().Add(-time.Hour)) {
		errors = append(errors, ValidationError{
			Field:   "scheduled_time",
			Message: "Scheduled time is too far in the past",
		})
	}

	return errors
}

func ValidateCancelRide(req *CancelRideRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateRateRide(req *RateRideRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateRideMessage(req *RideMessageRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateDriverLocation(req *DriverLocationRequest) ValidationErrors {
	return ValidateStruct(req)
}
