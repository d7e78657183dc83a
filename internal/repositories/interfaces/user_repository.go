package interfaces

import (
	"context"

	"poolride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	// Stat counters, applied with $inc by the stats projection.
	IncrementDriverStats(ctx context.Context, id primitive.ObjectID, distanceKM, earnings float64) error
	IncrementPassengerStats(ctx context.Context, id primitive.ObjectID, distanceKM float64) error

	UpdateRating(ctx context.Context, id primitive.ObjectID, rating models.UserRating) error
	SetDriverAvailability(ctx context.Context, id primitive.ObjectID, available bool) error
}
