package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideEventType string

const (
	EventRideCreated   RideEventType = "ride_created"
	EventRidePooled    RideEventType = "ride_pooled"
	EventRideCompleted RideEventType = "ride_completed"
)

// RideEvent is one entry of the domain-event ledger. Stat counters on
// users, cities and landmarks are never incremented directly from lifecycle
// call sites; every increment is driven by one of these events so the
// projection is testable on its own.
type RideEvent struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Type         RideEventType        `json:"type" bson:"type"`
	RideID       primitive.ObjectID   `json:"ride_id" bson:"ride_id"`
	CityID       primitive.ObjectID   `json:"city_id,omitempty" bson:"city_id,omitempty"`
	LandmarkID   primitive.ObjectID   `json:"landmark_id,omitempty" bson:"landmark_id,omitempty"`
	DriverID     *primitive.ObjectID  `json:"driver_id,omitempty" bson:"driver_id,omitempty"`
	PassengerIDs []primitive.ObjectID `json:"passenger_ids,omitempty" bson:"passenger_ids,omitempty"`
	TotalFare    float64              `json:"total_fare,omitempty" bson:"total_fare,omitempty"`
	DistanceKM   float64              `json:"distance_km,omitempty" bson:"distance_km,omitempty"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
}
