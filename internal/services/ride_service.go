package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/internal/utils"
	"poolride/internal/validators"
	"poolride/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated principal supplied by the auth boundary. The
// core never authenticates, it only authorizes by role and ownership.
type Actor struct {
	ID   primitive.ObjectID
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// RideNotifier fans ride-scoped events out to the realtime channel.
// Delivery is at-most-once and best effort; nothing is persisted beyond the
// ride's own message and log history. NotifyUser targets a single user's
// personal room, for events on rides whose room has gone quiet.
type RideNotifier interface {
	NotifyRide(rideID primitive.ObjectID, event string, data map[string]interface{})
	NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{})
}

type RideService interface {
	CreateRide(ctx context.Context, actor Actor, req *validators.CreateRideRequest) (*models.Ride, error)
	GetRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error)
	GetRidesForUser(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	ListRides(ctx context.Context, status models.RideStatus, cityID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	CancelRide(ctx context.Context, actor Actor, id primitive.ObjectID, reason string) (*models.Ride, error)
	AcceptRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error)
	StartRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error)
	CompleteRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error)
	RateRide(ctx context.Context, actor Actor, id primitive.ObjectID, rating int, comment string) (*models.Ride, error)
	AddMessage(ctx context.Context, actor Actor, id primitive.ObjectID, text string) (*models.RideMessage, error)
	UpdateDriverLocation(ctx context.Context, actor Actor, id primitive.ObjectID, lat, lng float64) error
}

type rideService struct {
	rides    interfaces.RideRepository
	users    interfaces.UserRepository
	cities   interfaces.CityRepository
	pooling  PoolingService
	stats    StatsService
	cache    CacheService
	notifier RideNotifier
	logger   *logger.Logger
}

func NewRideService(
	rides interfaces.RideRepository,
	users interfaces.UserRepository,
	cities interfaces.CityRepository,
	pooling PoolingService,
	stats StatsService,
	cache CacheService,
	notifier RideNotifier,
	log *logger.Logger,
) RideService {
	return &rideService{
		rides:    rides,
		users:    users,
		cities:   cities,
		pooling:  pooling,
		stats:    stats,
		cache:    cache,
		notifier: notifier,
		logger:   log,
	}
}

// CreateRide books a ride from a landmark, prices it, and attempts to merge
// it into an existing pool. Distance, duration and fare are computed once
// here and never recomputed afterwards.
func (s *rideService) CreateRide(ctx context.Context, actor Actor, req *validators.CreateRideRequest) (*models.Ride, error) {
	if actor.Role != models.RolePassenger {
		return nil, utils.ForbiddenError("only passengers can book rides")
	}

	if len(req.Destination.Location.Coordinates) != 2 {
		return nil, utils.ValidationError("destination coordinates are required")
	}

	landmarkID, err := primitive.ObjectIDFromHex(req.PickupLandmarkID)
	if err != nil {
		return nil, utils.ValidationError("invalid pickup landmark id")
	}

	landmark, err := s.cities.GetLandmark(ctx, landmarkID)
	if err != nil {
		return nil, err
	}

	destination := models.NewPoint(
		req.Destination.Location.Coordinates[0],
		req.Destination.Location.Coordinates[1],
	)
	destination.Address = req.Destination.Address

	distanceKM := utils.CalculateDistance(
		landmark.Location.Latitude(), landmark.Location.Longitude(),
		destination.Latitude(), destination.Longitude(),
	)

	passengerCount := req.PassengerCount
	if passengerCount < 1 {
		passengerCount = 1
	}
	fare := models.CalculateFare(distanceKM, passengerCount)

	ride := &models.Ride{
		CityID:             landmark.CityID,
		PickupLandmarkID:   landmark.ID,
		PickupLandmarkName: landmark.Name,
		Destination:        destination,
		ScheduledTime:      req.ScheduledTime,
		EstimatedDistance:  distanceKM,
		EstimatedDuration:  utils.EstimateDurationMinutes(distanceKM),
		PoolID:             uuid.NewString(),
		Status:             models.RideStatusPending,
		Fare:               fare,
		Passengers: []models.RidePassenger{
			{
				UserID: actor.ID,
				Fare:   fare.FarePerPassenger,
				Status: models.PassengerStatusPending,
			},
		},
	}
	ride.AppendLog(models.LogActionCreated, actor.ID,
		fmt.Sprintf("ride booked from %s, %.1f km", landmark.Name, distanceKM))

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	if _, err := s.pooling.MatchAndMerge(ctx, ride, actor.ID); err != nil {
		// Pooling is opportunistic; a failed match leaves the ride pending.
		s.logger.WithError(err).WithRideID(ride.ID).Warn("pool matching failed")
	}

	if err := s.stats.Record(ctx, &models.RideEvent{
		Type:       models.EventRideCreated,
		RideID:     ride.ID,
		CityID:     ride.CityID,
		LandmarkID: ride.PickupLandmarkID,
	}); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to record creation event")
	}

	s.logger.LogRideEvent(ride.ID, models.LogActionCreated, map[string]interface{}{
		"pool_id":  ride.PoolID,
		"status":   ride.Status,
		"distance": distanceKM,
	})

	return ride, nil
}

func (s *rideService) GetRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !ride.IsParticipant(actor.ID) {
		return nil, utils.ForbiddenError("not a participant of this ride")
	}

	return ride, nil
}

func (s *rideService) GetRidesForUser(ctx context.Context, actor Actor, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	if actor.Role == models.RoleDriver {
		return s.rides.GetByDriver(ctx, actor.ID, params)
	}
	return s.rides.GetByPassenger(ctx, actor.ID, params)
}

func (s *rideService) ListRides(ctx context.Context, status models.RideStatus, cityID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	return s.rides.List(ctx, status, cityID, params)
}

// CancelRide ends a ride, or rolls it back to pending when the assigned
// driver backs out so another driver may accept it.
func (s *rideService) CancelRide(ctx context.Context, actor Actor, id primitive.ObjectID, reason string) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !ride.IsParticipant(actor.ID) {
		return nil, utils.ForbiddenError("not a participant of this ride")
	}

	// Driver self-cancel from assigned is a rollback, not a cancellation:
	// no cancellation reason, passengers untouched, distinct log action.
	if ride.Status == models.RideStatusAssigned && ride.IsDriver(actor.ID) {
		return s.rollbackDriverCancel(ctx, actor, ride)
	}

	if reason == "" {
		return nil, utils.ValidationError("cancellation reason is required")
	}

	if err := ride.Transition(models.RideStatusCancelled); err != nil {
		return nil, utils.InvalidStateError("cancel", string(ride.Status))
	}
	ride.CancellationReason = reason

	if entry := ride.PassengerEntry(actor.ID); entry != nil {
		entry.Status = models.PassengerStatusCancelled
	}

	updates := map[string]interface{}{
		"status":              ride.Status,
		"cancellation_reason": reason,
		"passengers":          ride.Passengers,
	}
	if err := s.rides.Update(ctx, ride.ID, updates); err != nil {
		return nil, err
	}

	entry := ride.AppendLog(models.LogActionCancelled, actor.ID, reason)
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append cancel log")
	}

	s.notifier.NotifyRide(ride.ID, "ride_cancelled", map[string]interface{}{
		"reason": reason,
	})

	return ride, nil
}

func (s *rideService) rollbackDriverCancel(ctx context.Context, actor Actor, ride *models.Ride) (*models.Ride, error) {
	if err := ride.Transition(models.RideStatusPending); err != nil {
		return nil, utils.InvalidStateError("cancel", string(ride.Status))
	}
	ride.DriverID = nil

	updates := map[string]interface{}{
		"status":    ride.Status,
		"driver_id": nil,
	}
	if err := s.rides.Update(ctx, ride.ID, updates); err != nil {
		return nil, err
	}

	entry := ride.AppendLog(models.LogActionDriverCancelled, actor.ID, "driver withdrew from assigned ride")
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append driver cancel log")
	}

	if err := s.users.SetDriverAvailability(ctx, actor.ID, true); err != nil {
		s.logger.WithError(err).WithUserID(actor.ID).Warn("failed to release driver")
	}

	s.notifier.NotifyRide(ride.ID, "driver_cancelled", map[string]interface{}{
		"status": ride.Status,
	})

	return ride, nil
}

// AcceptRide assigns a verified driver to the ride and to every pooling
// sibling sharing its pool id. The conditional repository update settles
// concurrent accepts: exactly one wins, the loser observes a conflict.
func (s *rideService) AcceptRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error) {
	driver, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if !driver.IsVerifiedDriver() {
		return nil, utils.ForbiddenError("only verified drivers can accept rides")
	}

	active, err := s.rides.GetActiveByDriver(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, utils.ConflictError("driver already has an active ride")
	}

	// Fetch pooling siblings before the assignment so their logs can be
	// appended afterwards.
	current, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := s.rides.GetPoolSiblings(ctx, current.PoolID, current.ID)
	if err != nil {
		s.logger.WithError(err).WithRideID(id).Warn("failed to load pool siblings")
	}

	ride, err := s.rides.AcceptRide(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if ride == nil {
		// Lost the race or wrong state; report which.
		current, err := s.rides.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.DriverID != nil {
			return nil, utils.ConflictError("ride is already assigned to a driver")
		}
		return nil, utils.InvalidStateError("accept", string(current.Status))
	}

	// Propagate the assignment across the pool. Not atomic as a unit: a
	// crash here leaves the pool partially assigned.
	if _, err := s.rides.AssignPoolSiblings(ctx, ride.PoolID, actor.ID, ride.ID); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to assign pool siblings")
	}

	entry := ride.AppendLog(models.LogActionAccepted, actor.ID, "driver accepted ride")
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append accept log")
	}
	for _, sibling := range siblings {
		if sibling.Status != models.RideStatusPooling {
			continue
		}
		siblingEntry := models.RideLog{
			Action:    models.LogActionAccepted,
			Actor:     actor.ID,
			Detail:    "driver accepted pooled ride",
			Timestamp: time.Now(),
		}
		if err := s.rides.AppendLog(ctx, sibling.ID, siblingEntry); err != nil {
			s.logger.WithError(err).WithRideID(sibling.ID).Warn("failed to append accept log")
		}
	}

	if err := s.users.SetDriverAvailability(ctx, actor.ID, false); err != nil {
		s.logger.WithError(err).WithUserID(actor.ID).Warn("failed to mark driver busy")
	}

	s.notifier.NotifyRide(ride.ID, "ride_accepted", map[string]interface{}{
		"driver_id": actor.ID.Hex(),
	})

	return ride, nil
}

func (s *rideService) StartRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ride.IsDriver(actor.ID) {
		return nil, utils.ForbiddenError("only the assigned driver can start the ride")
	}

	if ride.Status != models.RideStatusAssigned {
		return nil, utils.InvalidStateError("start", string(ride.Status))
	}

	now := time.Now()
	if err := ride.Transition(models.RideStatusStarted); err != nil {
		return nil, utils.InvalidStateError("start", string(ride.Status))
	}
	ride.StartedAt = &now
	ride.MarkPassengersPickedUp(now)

	updates := map[string]interface{}{
		"status":     ride.Status,
		"started_at": now,
		"passengers": ride.Passengers,
	}
	if err := s.rides.Update(ctx, ride.ID, updates); err != nil {
		return nil, err
	}

	entry := ride.AppendLog(models.LogActionStarted, actor.ID, "ride started")
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append start log")
	}

	s.notifier.NotifyRide(ride.ID, "ride_started", map[string]interface{}{
		"started_at": now,
	})

	return ride, nil
}

// CompleteRide finishes the trip: confirmed passengers are dropped off and
// the completion event drives the driver, passenger and city counters.
func (s *rideService) CompleteRide(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Ride, error) {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ride.IsDriver(actor.ID) {
		return nil, utils.ForbiddenError("only the assigned driver can complete the ride")
	}

	if ride.Status != models.RideStatusStarted {
		return nil, utils.InvalidStateError("complete", string(ride.Status))
	}

	now := time.Now()
	if err := ride.Transition(models.RideStatusCompleted); err != nil {
		return nil, utils.InvalidStateError("complete", string(ride.Status))
	}
	ride.CompletedAt = &now
	completedPassengers := ride.CompleteConfirmedPassengers(now)

	updates := map[string]interface{}{
		"status":       ride.Status,
		"completed_at": now,
		"passengers":   ride.Passengers,
	}
	if err := s.rides.Update(ctx, ride.ID, updates); err != nil {
		return nil, err
	}

	entry := ride.AppendLog(models.LogActionCompleted, actor.ID,
		fmt.Sprintf("ride completed, %d passengers dropped off", len(completedPassengers)))
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append complete log")
	}

	if err := s.stats.Record(ctx, &models.RideEvent{
		Type:         models.EventRideCompleted,
		RideID:       ride.ID,
		CityID:       ride.CityID,
		LandmarkID:   ride.PickupLandmarkID,
		DriverID:     ride.DriverID,
		PassengerIDs: completedPassengers,
		TotalFare:    ride.Fare.TotalFare,
		DistanceKM:   ride.EstimatedDistance,
	}); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to record completion event")
	}

	if err := s.users.SetDriverAvailability(ctx, actor.ID, true); err != nil {
		s.logger.WithError(err).WithUserID(actor.ID).Warn("failed to release driver")
	}

	s.notifier.NotifyRide(ride.ID, "ride_completed", map[string]interface{}{
		"completed_at": now,
	})

	return ride, nil
}

// RateRide stores a passenger's one-shot rating and folds it into the
// driver's running average.
func (s *rideService) RateRide(ctx context.Context, actor Actor, id primitive.ObjectID, rating int, comment string) (*models.Ride, error) {
	if rating < 1 || rating > 5 {
		return nil, utils.ValidationError("rating must be between 1 and 5")
	}

	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := ride.RateByPassenger(actor.ID, rating, comment, now); err != nil {
		switch {
		case errors.Is(err, models.ErrPassengerNotOnRide):
			return nil, utils.ForbiddenError("not a passenger of this ride")
		case errors.Is(err, models.ErrAlreadyRated):
			return nil, utils.ConflictError("ride has already been rated by this passenger")
		default:
			return nil, utils.InvalidStateError("rate", string(ride.Status))
		}
	}

	updates := map[string]interface{}{
		"passengers": ride.Passengers,
	}
	if err := s.rides.Update(ctx, ride.ID, updates); err != nil {
		return nil, err
	}

	if ride.DriverID != nil {
		driver, err := s.users.GetByID(ctx, *ride.DriverID)
		if err != nil {
			s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to load driver for rating")
		} else {
			newRating := driver.Rating.Add(rating)
			if err := s.users.UpdateRating(ctx, driver.ID, newRating); err != nil {
				s.logger.WithError(err).WithUserID(driver.ID).Warn("failed to update driver rating")
			}

			// The ride is terminal, so its room may be empty; reach the
			// driver directly.
			s.notifier.NotifyUser(driver.ID, "ride_rated", map[string]interface{}{
				"ride_id": ride.ID.Hex(),
				"rating":  rating,
			})
		}
	}

	entry := ride.AppendLog(models.LogActionRated, actor.ID, fmt.Sprintf("rated %d/5", rating))
	if err := s.rides.AppendLog(ctx, ride.ID, entry); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to append rating log")
	}

	return ride, nil
}

// AddMessage appends to the ride-scoped chat and broadcasts it to the ride
// room.
func (s *rideService) AddMessage(ctx context.Context, actor Actor, id primitive.ObjectID, text string) (*models.RideMessage, error) {
	if text == "" || len(text) > utils.MaxMessageLength {
		return nil, utils.ValidationError("message text must be 1-1000 characters")
	}

	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && !ride.IsParticipant(actor.ID) {
		return nil, utils.ForbiddenError("not a participant of this ride")
	}

	if ride.IsTerminal() {
		return nil, utils.InvalidStateError("message", string(ride.Status))
	}

	msg := ride.AppendMessage(actor.ID, text)
	if err := s.rides.AppendMessage(ctx, ride.ID, msg); err != nil {
		return nil, err
	}

	s.notifier.NotifyRide(ride.ID, "chat_message", map[string]interface{}{
		"sender": actor.ID.Hex(),
		"text":   text,
	})

	return &msg, nil
}

// UpdateDriverLocation overwrites the ride's last-known driver position.
// Last write wins; there is no ordering guarantee beyond that.
func (s *rideService) UpdateDriverLocation(ctx context.Context, actor Actor, id primitive.ObjectID, lat, lng float64) error {
	ride, err := s.rides.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !ride.IsDriver(actor.ID) {
		return utils.ForbiddenError("only the assigned driver can update location")
	}

	if ride.Status != models.RideStatusAssigned && ride.Status != models.RideStatusStarted {
		return utils.InvalidStateError("update location on", string(ride.Status))
	}

	loc := &models.DriverLocation{
		Coordinates: []float64{lng, lat},
		UpdatedAt:   time.Now(),
	}
	if err := s.rides.UpdateDriverLocation(ctx, ride.ID, loc); err != nil {
		return err
	}

	if s.cache != nil {
		cacheKey := fmt.Sprintf("driver_location:%s", actor.ID.Hex())
		if err := s.cache.Set(ctx, cacheKey, loc, utils.DriverLocationTTL); err != nil {
			s.logger.WithError(err).WithUserID(actor.ID).Debug("failed to cache driver location")
		}
	}

	s.notifier.NotifyRide(ride.ID, "location_update", map[string]interface{}{
		"lat": lat,
		"lng": lng,
	})

	return nil
}
