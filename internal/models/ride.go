package models

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type PassengerStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusPooling   RideStatus = "pooling"
	RideStatusAssigned  RideStatus = "assigned"
	RideStatusStarted   RideStatus = "started"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"

	PassengerStatusPending   PassengerStatus = "pending"
	PassengerStatusConfirmed PassengerStatus = "confirmed"
	PassengerStatusCompleted PassengerStatus = "completed"
	PassengerStatusCancelled PassengerStatus = "cancelled"
)

// Audit log actions. A driver backing out of an assigned ride is logged as
// driver_cancelled, distinct from a true cancellation.
const (
	LogActionCreated         = "created"
	LogActionPooled          = "pooled"
	LogActionAccepted        = "accepted"
	LogActionStarted         = "started"
	LogActionCompleted       = "completed"
	LogActionCancelled       = "cancelled"
	LogActionDriverCancelled = "driver_cancelled"
	LogActionRated           = "rated"
)

// Entity-level rule violations. The service layer maps these onto the API
// error taxonomy.
var (
	ErrAlreadyRated       = errors.New("passenger has already rated this ride")
	ErrRatingNotAllowed   = errors.New("rating requires a completed ride and a completed passenger entry")
	ErrPassengerNotOnRide = errors.New("user is not a passenger of this ride")
)

// InvalidTransitionError reports an action illegal for the ride's current
// status. The message always names the current status.
type InvalidTransitionError struct {
	Current RideStatus
	Target  RideStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move ride from status %q to %q", e.Current, e.Target)
}

// rideTransitions is the full transition table. The assigned->pending edge
// is the driver self-cancel rollback.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusPending:  {RideStatusPooling, RideStatusAssigned, RideStatusCancelled},
	RideStatusPooling:  {RideStatusAssigned, RideStatusCancelled},
	RideStatusAssigned: {RideStatusStarted, RideStatusPending, RideStatusCancelled},
	RideStatusStarted:  {RideStatusCompleted},
}

type Ride struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	CityID             primitive.ObjectID  `json:"city_id" bson:"city_id"`
	PickupLandmarkID   primitive.ObjectID  `json:"pickup_landmark_id" bson:"pickup_landmark_id" validate:"required"`
	PickupLandmarkName string              `json:"pickup_landmark_name" bson:"pickup_landmark_name"`
	Destination        Location            `json:"destination" bson:"destination" validate:"required"`
	ScheduledTime      time.Time           `json:"scheduled_time" bson:"scheduled_time"`
	EstimatedDistance  float64             `json:"estimated_distance" bson:"estimated_distance"` // kilometers
	EstimatedDuration  int                 `json:"estimated_duration" bson:"estimated_duration"` // minutes
	PoolID             string              `json:"pool_id" bson:"pool_id"`
	Passengers         []RidePassenger     `json:"passengers" bson:"passengers"`
	DriverID           *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	Route              []Location          `json:"route" bson:"route"` // reserved for route drawing
	Status             RideStatus          `json:"status" bson:"status"`
	Fare               *Fare               `json:"fare" bson:"fare"`
	StartedAt          *time.Time          `json:"started_at" bson:"started_at"`
	CompletedAt        *time.Time          `json:"completed_at" bson:"completed_at"`
	CancellationReason string              `json:"cancellation_reason" bson:"cancellation_reason"`
	Logs               []RideLog           `json:"logs" bson:"logs"`
	Messages           []RideMessage       `json:"messages" bson:"messages"`
	DriverLocation     *DriverLocation     `json:"driver_location" bson:"driver_location"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

type RidePassenger struct {
	UserID      primitive.ObjectID `json:"user_id" bson:"user_id"`
	Fare        float64            `json:"fare" bson:"fare"`
	Status      PassengerStatus    `json:"status" bson:"status"`
	PickupTime  *time.Time         `json:"pickup_time" bson:"pickup_time"`
	DropoffTime *time.Time         `json:"dropoff_time" bson:"dropoff_time"`
	Rating      *PassengerRating   `json:"rating,omitempty" bson:"rating,omitempty"`
}

// PassengerRating is settable once, after both the ride and the passenger's
// own entry are completed.
type PassengerRating struct {
	Value     int       `json:"value" bson:"value" validate:"min=1,max=5"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// RideLog is one entry of the append-only audit trail. Never mutated.
type RideLog struct {
	Action    string             `json:"action" bson:"action"`
	Actor     primitive.ObjectID `json:"actor" bson:"actor"`
	Detail    string             `json:"detail" bson:"detail"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// RideMessage is one entry of the ride-scoped chat, append-only.
type RideMessage struct {
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Text      string             `json:"text" bson:"text"`
	Read      bool               `json:"read" bson:"read"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// CanTransition reports whether moving to the target status is legal.
func (r *Ride) CanTransition(to RideStatus) bool {
	for _, next := range rideTransitions[r.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the ride to the target status after checking the
// transition table.
func (r *Ride) Transition(to RideStatus) error {
	if !r.CanTransition(to) {
		return &InvalidTransitionError{Current: r.Status, Target: to}
	}
	r.Status = to
	return nil
}

func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

func (r *Ride) IsDriver(userID primitive.ObjectID) bool {
	return r.DriverID != nil && *r.DriverID == userID
}

func (r *Ride) IsPassenger(userID primitive.ObjectID) bool {
	return r.PassengerEntry(userID) != nil
}

// IsParticipant reports whether the user is the driver or a listed
// passenger of this ride.
func (r *Ride) IsParticipant(userID primitive.ObjectID) bool {
	return r.IsDriver(userID) || r.IsPassenger(userID)
}

func (r *Ride) PassengerEntry(userID primitive.ObjectID) *RidePassenger {
	for i := range r.Passengers {
		if r.Passengers[i].UserID == userID {
			return &r.Passengers[i]
		}
	}
	return nil
}

func (r *Ride) AppendLog(action string, actor primitive.ObjectID, detail string) RideLog {
	entry := RideLog{
		Action:    action,
		Actor:     actor,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	r.Logs = append(r.Logs, entry)
	return entry
}

func (r *Ride) AppendMessage(sender primitive.ObjectID, text string) RideMessage {
	msg := RideMessage{
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now(),
	}
	r.Messages = append(r.Messages, msg)
	return msg
}

// ConfirmPassengers moves every pending passenger to confirmed. Called when
// a driver is assigned.
func (r *Ride) ConfirmPassengers() {
	for i := range r.Passengers {
		if r.Passengers[i].Status == PassengerStatusPending {
			r.Passengers[i].Status = PassengerStatusConfirmed
		}
	}
}

// MarkPassengersPickedUp stamps pickup time on confirmed passengers when the
// ride starts.
func (r *Ride) MarkPassengersPickedUp(now time.Time) {
	for i := range r.Passengers {
		if r.Passengers[i].Status == PassengerStatusConfirmed {
			t := now
			r.Passengers[i].PickupTime = &t
		}
	}
}

// CompleteConfirmedPassengers moves confirmed passengers to completed with a
// dropoff time and returns their user ids. Cancelled passengers are left
// untouched.
func (r *Ride) CompleteConfirmedPassengers(now time.Time) []primitive.ObjectID {
	var completed []primitive.ObjectID
	for i := range r.Passengers {
		if r.Passengers[i].Status == PassengerStatusConfirmed {
			t := now
			r.Passengers[i].Status = PassengerStatusCompleted
			r.Passengers[i].DropoffTime = &t
			completed = append(completed, r.Passengers[i].UserID)
		}
	}
	return completed
}

// RateByPassenger stores a one-shot rating on the passenger's own entry.
// Requires the ride completed, the passenger's entry completed, and no prior
// rating.
func (r *Ride) RateByPassenger(userID primitive.ObjectID, value int, comment string, now time.Time) error {
	entry := r.PassengerEntry(userID)
	if entry == nil {
		return ErrPassengerNotOnRide
	}
	if r.Status != RideStatusCompleted || entry.Status != PassengerStatusCompleted {
		return ErrRatingNotAllowed
	}
	if entry.Rating != nil {
		return ErrAlreadyRated
	}
	entry.Rating = &PassengerRating{
		Value:     value,
		Comment:   comment,
		CreatedAt: now,
	}
	return nil
}
