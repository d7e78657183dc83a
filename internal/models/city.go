package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type City struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Country   string             `json:"country" bson:"country"`
	Center    Location           `json:"center" bson:"center"`
	Stats     CityStats          `json:"stats" bson:"stats"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type CityStats struct {
	TotalRides   int     `json:"total_rides" bson:"total_rides"`
	TotalRevenue float64 `json:"total_revenue" bson:"total_revenue"`
}

// Landmark is a fixed, named pickup location within a city. Rides can only
// be booked from landmarks.
type Landmark struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CityID    primitive.ObjectID `json:"city_id" bson:"city_id" validate:"required"`
	Name      string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Location  Location           `json:"location" bson:"location" validate:"required"`
	Stats     LandmarkStats      `json:"stats" bson:"stats"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type LandmarkStats struct {
	PickupCount int `json:"pickup_count" bson:"pickup_count"`
}
