package mongodb

import (
	"context"
	"fmt"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type cityRepository struct {
	cities    *mongo.Collection
	landmarks *mongo.Collection
}

func NewCityRepository(db *mongo.Database) interfaces.CityRepository {
	return &cityRepository{
		cities:    db.Collection("cities"),
		landmarks: db.Collection("landmarks"),
	}
}

func (r *cityRepository) GetCity(ctx context.Context, id primitive.ObjectID) (*models.City, error) {
	var city models.City
	err := r.cities.FindOne(ctx, bson.M{"_id": id}).Decode(&city)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("city")
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}

	return &city, nil
}

func (r *cityRepository) GetLandmark(ctx context.Context, id primitive.ObjectID) (*models.Landmark, error) {
	var landmark models.Landmark
	err := r.landmarks.FindOne(ctx, bson.M{"_id": id}).Decode(&landmark)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("landmark")
		}
		return nil, fmt.Errorf("failed to get landmark: %w", err)
	}

	return &landmark, nil
}

func (r *cityRepository) IncrementCityRideStats(ctx context.Context, cityID primitive.ObjectID, revenue float64) error {
	_, err := r.cities.UpdateOne(
		ctx,
		bson.M{"_id": cityID},
		bson.M{
			"$inc": bson.M{
				"stats.total_rides":   1,
				"stats.total_revenue": revenue,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment city stats: %w", err)
	}

	return nil
}

func (r *cityRepository) IncrementLandmarkPickups(ctx context.Context, landmarkID primitive.ObjectID) error {
	_, err := r.landmarks.UpdateOne(
		ctx,
		bson.M{"_id": landmarkID},
		bson.M{
			"$inc": bson.M{"stats.pickup_count": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment landmark pickups: %w", err)
	}

	return nil
}
