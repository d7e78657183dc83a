package interfaces

import (
	"context"
	"time"

	"poolride/internal/models"
	"poolride/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PoolCandidateQuery narrows the pool search to pending rides at the same
// pickup landmark, scheduled inside the window, destination inside the
// radius, and not already in the excluded pool.
type PoolCandidateQuery struct {
	PickupLandmarkID primitive.ObjectID
	Destination      models.Location
	ScheduledTime    time.Time
	Window           time.Duration
	RadiusKM         float64
	ExcludePoolID    string
	Limit            int
}

type RideRepository interface {
	Create(ctx context.Context, ride *models.Ride) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error

	// Append-only sub-documents
	AppendLog(ctx context.Context, id primitive.ObjectID, entry models.RideLog) error
	AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.RideMessage) error

	// Pooling
	FindPoolCandidates(ctx context.Context, query *PoolCandidateQuery) ([]*models.Ride, error)
	MergeIntoPool(ctx context.Context, rideIDs []primitive.ObjectID, poolID string) error
	GetPoolSiblings(ctx context.Context, poolID string, exclude primitive.ObjectID) ([]*models.Ride, error)

	// Driver assignment. AcceptRide is a single conditional update: it only
	// succeeds while the ride is unassigned and pending/pooling, so exactly
	// one concurrent accept wins.
	AcceptRide(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID) (*models.Ride, error)
	AssignPoolSiblings(ctx context.Context, poolID string, driverID primitive.ObjectID, exclude primitive.ObjectID) (int64, error)
	GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ride, error)

	// Location
	UpdateDriverLocation(ctx context.Context, id primitive.ObjectID, loc *models.DriverLocation) error

	// Listings
	GetByPassenger(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
	List(ctx context.Context, status models.RideStatus, cityID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error)
}
