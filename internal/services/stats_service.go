package services

import (
	"context"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/pkg/logger"
)

// StatsService is the projection that turns ride events into counter
// increments on users, cities and landmarks. Lifecycle code never touches
// the counters directly; it records an event and this projection applies it.
type StatsService interface {
	Record(ctx context.Context, event *models.RideEvent) error
}

type statsService struct {
	events interfaces.EventRepository
	users  interfaces.UserRepository
	cities interfaces.CityRepository
	logger *logger.Logger
}

func NewStatsService(events interfaces.EventRepository, users interfaces.UserRepository, cities interfaces.CityRepository, log *logger.Logger) StatsService {
	return &statsService{
		events: events,
		users:  users,
		cities: cities,
		logger: log,
	}
}

// Record persists the event to the ledger and applies its counter
// increments. Increments run after the primary state change has committed;
// a partial failure is logged, not rolled back, so counters may under-count.
func (s *statsService) Record(ctx context.Context, event *models.RideEvent) error {
	if err := s.events.Insert(ctx, event); err != nil {
		s.logger.WithError(err).WithRideID(event.RideID).Warn("failed to persist ride event")
	}

	switch event.Type {
	case models.EventRideCreated:
		return s.applyRideCreated(ctx, event)
	case models.EventRideCompleted:
		return s.applyRideCompleted(ctx, event)
	}

	return nil
}

func (s *statsService) applyRideCreated(ctx context.Context, event *models.RideEvent) error {
	// Pickup count increments once per creation regardless of pooling
	// outcome.
	if err := s.cities.IncrementLandmarkPickups(ctx, event.LandmarkID); err != nil {
		s.logger.WithError(err).WithRideID(event.RideID).Warn("failed to increment landmark pickups")
		return err
	}
	return nil
}

func (s *statsService) applyRideCompleted(ctx context.Context, event *models.RideEvent) error {
	var firstErr error

	if event.DriverID != nil {
		if err := s.users.IncrementDriverStats(ctx, *event.DriverID, event.DistanceKM, event.TotalFare); err != nil {
			s.logger.WithError(err).WithRideID(event.RideID).Warn("failed to increment driver stats")
			firstErr = err
		}
	}

	for _, passengerID := range event.PassengerIDs {
		if err := s.users.IncrementPassengerStats(ctx, passengerID, event.DistanceKM); err != nil {
			s.logger.WithError(err).WithRideID(event.RideID).Warn("failed to increment passenger stats")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := s.cities.IncrementCityRideStats(ctx, event.CityID, event.TotalFare); err != nil {
		s.logger.WithError(err).WithRideID(event.RideID).Warn("failed to increment city stats")
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
