package services

import (
	"context"
	"testing"
	"time"

	"poolride/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Central London pickup, destinations a few hundred meters apart.
var (
	poolTestLandmarkID = primitive.NewObjectID()
	poolTestBase       = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
)

func newPoolingFixture() (*fakeRideRepository, *fakeEventRepository, PoolingService) {
	repo := newFakeRideRepository()
	events := &fakeEventRepository{}
	stats := NewStatsService(events, newFakeUserRepository(), newFakeCityRepository(), testLogger())
	return repo, events, NewPoolingService(repo, stats, testLogger())
}

func pendingRide(landmarkID primitive.ObjectID, destLat, destLng float64, scheduled time.Time) *models.Ride {
	return &models.Ride{
		ID:               primitive.NewObjectID(),
		PickupLandmarkID: landmarkID,
		Destination:      models.NewPoint(destLng, destLat),
		ScheduledTime:    scheduled,
		PoolID:           uuid.NewString(),
		Status:           models.RideStatusPending,
		Passengers: []models.RidePassenger{
			{UserID: primitive.NewObjectID(), Status: models.PassengerStatusPending},
		},
	}
}

func TestMatchAndMergePoolsCompatibleRides(t *testing.T) {
	repo, events, svc := newPoolingFixture()
	ctx := context.Background()

	existing := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
	require.NoError(t, repo.Create(ctx, existing))

	// Destination ~1 km away, scheduled 10 minutes later.
	newRide := pendingRide(poolTestLandmarkID, 51.5164, -0.1278, poolTestBase.Add(10*time.Minute))
	require.NoError(t, repo.Create(ctx, newRide))

	merged, err := svc.MatchAndMerge(ctx, newRide, newRide.Passengers[0].UserID)
	require.NoError(t, err)
	assert.True(t, merged)

	assert.Equal(t, models.RideStatusPooling, newRide.Status)
	assert.Equal(t, models.RideStatusPooling, existing.Status)
	assert.Equal(t, newRide.PoolID, existing.PoolID)

	// Both rides carry a pooled log entry.
	require.NotEmpty(t, existing.Logs)
	assert.Equal(t, models.LogActionPooled, existing.Logs[len(existing.Logs)-1].Action)

	// The merge lands in the event ledger.
	pooled := events.eventsOfType(models.EventRidePooled)
	require.Len(t, pooled, 1)
	assert.Equal(t, newRide.ID, pooled[0].RideID)
}

func TestMatchAndMergeRejectsIncompatibleRides(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name      string
		candidate *models.Ride
	}{
		{
			name:      "different landmark",
			candidate: pendingRide(primitive.NewObjectID(), 51.5074, -0.1278, poolTestBase),
		},
		{
			name:      "outside time window",
			candidate: pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase.Add(45*time.Minute)),
		},
		{
			// Destination ~10 km away.
			name:      "destination too far",
			candidate: pendingRide(poolTestLandmarkID, 51.5974, -0.1278, poolTestBase),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, _, svc := newPoolingFixture()

			require.NoError(t, repo.Create(ctx, tc.candidate))

			ride := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
			require.NoError(t, repo.Create(ctx, ride))

			merged, err := svc.MatchAndMerge(ctx, ride, ride.Passengers[0].UserID)
			require.NoError(t, err)
			assert.False(t, merged)
			assert.Equal(t, models.RideStatusPending, ride.Status)
			assert.Equal(t, models.RideStatusPending, tc.candidate.Status)
		})
	}
}

func TestMatchAndMergeSkipsNonPendingRides(t *testing.T) {
	repo, _, svc := newPoolingFixture()
	ctx := context.Background()

	assigned := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
	assigned.Status = models.RideStatusAssigned
	require.NoError(t, repo.Create(ctx, assigned))

	ride := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
	require.NoError(t, repo.Create(ctx, ride))

	merged, err := svc.MatchAndMerge(ctx, ride, ride.Passengers[0].UserID)
	require.NoError(t, err)
	assert.False(t, merged)
}

func TestMatchAndMergeCapsCandidates(t *testing.T) {
	repo, _, svc := newPoolingFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		candidate := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
		require.NoError(t, repo.Create(ctx, candidate))
	}

	ride := pendingRide(poolTestLandmarkID, 51.5074, -0.1278, poolTestBase)
	require.NoError(t, repo.Create(ctx, ride))

	merged, err := svc.MatchAndMerge(ctx, ride, ride.Passengers[0].UserID)
	require.NoError(t, err)
	assert.True(t, merged)

	// At most three candidates join the new ride's pool.
	siblings, err := repo.GetPoolSiblings(ctx, ride.PoolID, ride.ID)
	require.NoError(t, err)
	assert.Len(t, siblings, 3)
}
