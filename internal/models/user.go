package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string

const (
	RolePassenger UserRole = "passenger"
	RoleDriver    UserRole = "driver"
	RoleAdmin     UserRole = "admin"
)

type User struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FirstName     string             `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName      string             `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email         string             `json:"email" bson:"email" validate:"required,email"`
	Phone         string             `json:"phone" bson:"phone"`
	Role          UserRole           `json:"role" bson:"role" validate:"required"`
	DriverDetails *DriverDetails     `json:"driver_details,omitempty" bson:"driver_details,omitempty"`
	Stats         UserStats          `json:"stats" bson:"stats"`
	Rating        UserRating         `json:"rating" bson:"rating"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

type DriverDetails struct {
	LicenseNumber string `json:"license_number" bson:"license_number"`
	VehicleModel  string `json:"vehicle_model" bson:"vehicle_model"`
	VehiclePlate  string `json:"vehicle_plate" bson:"vehicle_plate"`
	IsVerified    bool   `json:"is_verified" bson:"is_verified"`
	IsAvailable   bool   `json:"is_available" bson:"is_available"`
}

// UserStats are cumulative counters incremented by the stats projection.
type UserStats struct {
	RidesCompleted int     `json:"rides_completed" bson:"rides_completed"`
	TotalDistance  float64 `json:"total_distance" bson:"total_distance"` // kilometers
	TotalEarnings  float64 `json:"total_earnings" bson:"total_earnings"` // drivers only
}

// UserRating is a running average maintained incrementally:
// newAverage = (oldAverage*oldCount + rating) / (oldCount + 1).
type UserRating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

// Add folds one rating into the running average.
func (r UserRating) Add(rating int) UserRating {
	return UserRating{
		Average: (r.Average*float64(r.Count) + float64(rating)) / float64(r.Count+1),
		Count:   r.Count + 1,
	}
}

func (u *User) IsDriver() bool {
	return u.Role == RoleDriver
}

// IsVerifiedDriver reports whether the user may accept rides.
func (u *User) IsVerifiedDriver() bool {
	return u.Role == RoleDriver && u.DriverDetails != nil && u.DriverDetails.IsVerified
}
