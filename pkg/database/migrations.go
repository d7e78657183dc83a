package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
	Down        func(*mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
}

func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up() error {
	// Create migrations collection if it doesn't exist
	err := m.createMigrationsCollection()
	if err != nil {
		return err
	}

	// Get current version
	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	// Run migrations
	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			err := migration.Up(m.db)
			if err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			err = m.updateVersion(migration.Version)
			if err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collections, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}

	for _, name := range collections {
		if name == "migrations" {
			return nil
		}
	}

	return m.db.CreateCollection(ctx, "migrations")
}

func (m *Migrator) getCurrentVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(version int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users collection with indexes",
			Up: func(db *mongo.Database) error {
				return createUsersIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("users").Drop(context.Background())
			},
		},
		{
			Version:     2,
			Description: "Create cities and landmarks collections with indexes",
			Up: func(db *mongo.Database) error {
				return createLandmarksIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				if err := db.Collection("landmarks").Drop(context.Background()); err != nil {
					return err
				}
				return db.Collection("cities").Drop(context.Background())
			},
		},
		{
			Version:     3,
			Description: "Create rides collection with indexes",
			Up: func(db *mongo.Database) error {
				return createRidesIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("rides").Drop(context.Background())
			},
		},
		{
			Version:     4,
			Description: "Create ride_events collection with indexes",
			Up: func(db *mongo.Database) error {
				return createRideEventsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("ride_events").Drop(context.Background())
			},
		},
	}
}

func createUsersIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("users")

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "driver_details.is_available", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createLandmarksIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("landmarks")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "city_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRidesIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("rides")

	// The 2dsphere index on destination backs the pool candidate search;
	// the compound status index backs the same query's non-geo filters.
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "destination", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "pickup_landmark_id", Value: 1}, {Key: "scheduled_time", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "pool_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "passengers.user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRideEventsIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("ride_events")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "ride_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
