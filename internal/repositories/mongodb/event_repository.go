package mongodb

import (
	"context"
	"fmt"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type eventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) interfaces.EventRepository {
	return &eventRepository{
		collection: db.Collection("ride_events"),
	}
}

func (r *eventRepository) Insert(ctx context.Context, event *models.RideEvent) error {
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		return fmt.Errorf("failed to insert ride event: %w", err)
	}

	return nil
}
