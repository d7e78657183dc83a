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

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("user")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) IncrementDriverStats(ctx context.Context, id primitive.ObjectID, distanceKM, earnings float64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{
				"stats.rides_completed": 1,
				"stats.total_distance":  distanceKM,
				"stats.total_earnings":  earnings,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment driver stats: %w", err)
	}

	return nil
}

func (r *userRepository) IncrementPassengerStats(ctx context.Context, id primitive.ObjectID, distanceKM float64) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{
				"stats.rides_completed": 1,
				"stats.total_distance":  distanceKM,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment passenger stats: %w", err)
	}

	return nil
}

func (r *userRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, rating models.UserRating) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"rating":     rating,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user rating: %w", err)
	}

	return nil
}

func (r *userRepository) SetDriverAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "role": models.RoleDriver},
		bson.M{"$set": bson.M{
			"driver_details.is_available": available,
			"updated_at":                  time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set driver availability: %w", err)
	}

	return nil
}
