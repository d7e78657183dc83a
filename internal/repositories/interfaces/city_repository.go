package interfaces

import (
	"context"

	"poolride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CityRepository interface {
	GetCity(ctx context.Context, id primitive.ObjectID) (*models.City, error)
	GetLandmark(ctx context.Context, id primitive.ObjectID) (*models.Landmark, error)

	IncrementCityRideStats(ctx context.Context, cityID primitive.ObjectID, revenue float64) error
	IncrementLandmarkPickups(ctx context.Context, landmarkID primitive.ObjectID) error
}
