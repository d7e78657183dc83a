package models

import (
	"time"
)

// Location is a GeoJSON point as stored in MongoDB (longitude first).
type Location struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"required,len=2"`
	Address     string    `json:"address" bson:"address"`
}

func NewPoint(lng, lat float64) Location {
	return Location{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}

func (l Location) Latitude() float64 {
	if len(l.Coordinates) >= 2 {
		return l.Coordinates[1]
	}
	return 0
}

func (l Location) Longitude() float64 {
	if len(l.Coordinates) >= 1 {
		return l.Coordinates[0]
	}
	return 0
}

func (l Location) HasCoordinates() bool {
	return len(l.Coordinates) == 2
}

// DriverLocation is the last-known driver position on a ride.
// Overwritten on every update, last write wins.
type DriverLocation struct {
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}
