package services

import (
	"context"
	"fmt"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/internal/utils"
	"poolride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PoolingService merges a newly created ride with compatible pending rides.
// Pooling is opportunistic: at most MaxPoolCandidates rides are merged per
// creation event, and merging never recomputes fares across the pool.
type PoolingService interface {
	MatchAndMerge(ctx context.Context, ride *models.Ride, actor primitive.ObjectID) (bool, error)
}

type poolingService struct {
	rides  interfaces.RideRepository
	stats  StatsService
	logger *logger.Logger
}

func NewPoolingService(rides interfaces.RideRepository, stats StatsService, log *logger.Logger) PoolingService {
	return &poolingService{
		rides:  rides,
		stats:  stats,
		logger: log,
	}
}

// MatchAndMerge searches for pending rides at the same pickup landmark,
// scheduled within ±30 minutes and bound for a destination within 3 km of
// the new ride's. Matches adopt the new ride's pool id and every affected
// ride, the new one included, moves to pooling.
func (s *poolingService) MatchAndMerge(ctx context.Context, ride *models.Ride, actor primitive.ObjectID) (bool, error) {
	query := &interfaces.PoolCandidateQuery{
		PickupLandmarkID: ride.PickupLandmarkID,
		Destination:      ride.Destination,
		ScheduledTime:    ride.ScheduledTime,
		Window:           utils.PoolMatchWindow,
		RadiusKM:         utils.PoolMatchRadiusKM,
		ExcludePoolID:    ride.PoolID,
		Limit:            utils.MaxPoolCandidates,
	}

	candidates, err := s.rides.FindPoolCandidates(ctx, query)
	if err != nil {
		return false, fmt.Errorf("pool candidate search failed: %w", err)
	}

	// The geo query narrows the set; confirm each candidate with the exact
	// geodesic distance and window before merging.
	var matched []*models.Ride
	for _, candidate := range candidates {
		if len(matched) >= utils.MaxPoolCandidates {
			break
		}
		if !s.isCompatible(ride, candidate) {
			continue
		}
		matched = append(matched, candidate)
	}

	if len(matched) == 0 {
		return false, nil
	}

	ids := make([]primitive.ObjectID, 0, len(matched)+1)
	for _, m := range matched {
		ids = append(ids, m.ID)
	}
	ids = append(ids, ride.ID)

	if err := s.rides.MergeIntoPool(ctx, ids, ride.PoolID); err != nil {
		return false, fmt.Errorf("pool merge failed: %w", err)
	}

	ride.Status = models.RideStatusPooling

	detail := fmt.Sprintf("pooled %d rides under pool %s", len(ids), ride.PoolID)
	for _, id := range ids {
		entry := models.RideLog{
			Action:    models.LogActionPooled,
			Actor:     actor,
			Detail:    detail,
			Timestamp: time.Now(),
		}
		if err := s.rides.AppendLog(ctx, id, entry); err != nil {
			s.logger.WithError(err).WithRideID(id).Warn("failed to append pooling log")
		}
	}

	if err := s.stats.Record(ctx, &models.RideEvent{
		Type:       models.EventRidePooled,
		RideID:     ride.ID,
		CityID:     ride.CityID,
		LandmarkID: ride.PickupLandmarkID,
	}); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Warn("failed to record pooling event")
	}

	s.logger.WithRideID(ride.ID).WithPoolID(ride.PoolID).
		Infof("pooled ride with %d candidates", len(matched))

	return true, nil
}

func (s *poolingService) isCompatible(ride, candidate *models.Ride) bool {
	if candidate.Status != models.RideStatusPending {
		return false
	}
	if candidate.PickupLandmarkID != ride.PickupLandmarkID {
		return false
	}
	if candidate.PoolID == ride.PoolID {
		return false
	}

	delta := candidate.ScheduledTime.Sub(ride.ScheduledTime)
	if delta < 0 {
		delta = -delta
	}
	if delta > utils.PoolMatchWindow {
		return false
	}

	return utils.IsWithinRadius(
		ride.Destination.Latitude(), ride.Destination.Longitude(),
		candidate.Destination.Latitude(), candidate.Destination.Longitude(),
		utils.PoolMatchRadiusKM,
	)
}
