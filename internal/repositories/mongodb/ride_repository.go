package mongodb

import (
	"context"
	"fmt"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/internal/services"
	"poolride/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type rideRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewRideRepository(db *mongo.Database, cache services.CacheService) interfaces.RideRepository {
	return &rideRepository{
		collection: db.Collection("rides"),
		cache:      cache,
	}
}

func (r *rideRepository) Create(ctx context.Context, ride *models.Ride) error {
	ride.ID = primitive.NewObjectID()
	ride.CreatedAt = time.Now()
	ride.UpdatedAt = ride.CreatedAt

	_, err := r.collection.InsertOne(ctx, ride)
	if err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}

	r.cacheRide(ctx, ride)

	return nil
}

func (r *rideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NotFoundError("ride")
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}

	return &ride, nil
}

func (r *rideRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

// Append-only sub-documents

func (r *rideRepository) AppendLog(ctx context.Context, id primitive.ObjectID, entry models.RideLog) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"logs": entry}},
	)
	if err != nil {
		return fmt.Errorf("failed to append ride log: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

func (r *rideRepository) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.RideMessage) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return fmt.Errorf("failed to append ride message: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return nil
}

// Pooling

func (r *rideRepository) FindPoolCandidates(ctx context.Context, query *interfaces.PoolCandidateQuery) ([]*models.Ride, error) {
	filter := bson.M{
		"status":             models.RideStatusPending,
		"pickup_landmark_id": query.PickupLandmarkID,
		"pool_id":            bson.M{"$ne": query.ExcludePoolID},
		"scheduled_time": bson.M{
			"$gte": query.ScheduledTime.Add(-query.Window),
			"$lte": query.ScheduledTime.Add(query.Window),
		},
		"destination": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": []interface{}{
					query.Destination.Coordinates,
					query.RadiusKM / utils.EarthRadiusKM,
				},
			},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scheduled_time", Value: 1}}).
		SetLimit(int64(query.Limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pool candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, nil
}

func (r *rideRepository) MergeIntoPool(ctx context.Context, rideIDs []primitive.ObjectID, poolID string) error {
	_, err := r.collection.UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": rideIDs}},
		bson.M{"$set": bson.M{
			"pool_id":    poolID,
			"status":     models.RideStatusPooling,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to merge rides into pool: %w", err)
	}

	for _, id := range rideIDs {
		r.invalidateRideCache(ctx, id.Hex())
	}

	return nil
}

func (r *rideRepository) GetPoolSiblings(ctx context.Context, poolID string, exclude primitive.ObjectID) ([]*models.Ride, error) {
	filter := bson.M{
		"pool_id": poolID,
		"_id":     bson.M{"$ne": exclude},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find pool siblings: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, nil
}

// Driver assignment

// AcceptRide performs the conditional update that settles concurrent
// accepts: it matches only while the ride is unassigned and still
// pending/pooling. Returns (nil, nil) when another driver already won.
func (r *rideRepository) AcceptRide(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID) (*models.Ride, error) {
	filter := bson.M{
		"_id":       id,
		"driver_id": nil,
		"status":    bson.M{"$in": []models.RideStatus{models.RideStatusPending, models.RideStatusPooling}},
	}

	update := bson.M{
		"$set": bson.M{
			"driver_id":                 driverID,
			"status":                    models.RideStatusAssigned,
			"passengers.$[elem].status": models.PassengerStatusConfirmed,
			"updated_at":                time.Now(),
		},
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.status": models.PassengerStatusPending}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetArrayFilters(arrayFilters)

	var ride models.Ride
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to accept ride: %w", err)
	}

	r.invalidateRideCache(ctx, id.Hex())

	return &ride, nil
}

// AssignPoolSiblings propagates the driver assignment to every pooling ride
// sharing the pool id. Best effort: a crash mid-propagation leaves the pool
// partially assigned.
func (r *rideRepository) AssignPoolSiblings(ctx context.Context, poolID string, driverID primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"pool_id": poolID,
		"_id":     bson.M{"$ne": exclude},
		"status":  models.RideStatusPooling,
	}

	update := bson.M{
		"$set": bson.M{
			"driver_id":                 driverID,
			"status":                    models.RideStatusAssigned,
			"passengers.$[elem].status": models.PassengerStatusConfirmed,
			"updated_at":                time.Now(),
		},
	}

	arrayFilters := options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.status": models.PassengerStatusPending}},
	}
	opts := options.Update().SetArrayFilters(arrayFilters)

	result, err := r.collection.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to assign pool siblings: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *rideRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ride, error) {
	filter := bson.M{
		"driver_id": driverID,
		"status":    bson.M{"$in": []models.RideStatus{models.RideStatusAssigned, models.RideStatusStarted}},
	}

	var ride models.Ride
	err := r.collection.FindOne(ctx, filter).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active ride for driver: %w", err)
	}

	return &ride, nil
}

// Location

func (r *rideRepository) UpdateDriverLocation(ctx context.Context, id primitive.ObjectID, loc *models.DriverLocation) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"driver_location": loc}},
	)
	if err != nil {
		return fmt.Errorf("failed to update driver location: %w", err)
	}

	return nil
}

// Listings

func (r *rideRepository) GetByPassenger(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{"passengers.user_id": userID}
	return r.findRidesWithFilter(ctx, filter, params)
}

func (r *rideRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{"driver_id": driverID}
	return r.findRidesWithFilter(ctx, filter, params)
}

func (r *rideRepository) List(ctx context.Context, status models.RideStatus, cityID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if !cityID.IsZero() {
		filter["city_id"] = cityID
	}
	return r.findRidesWithFilter(ctx, filter, params)
}

func (r *rideRepository) findRidesWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	if params.Search != "" {
		searchFields := []string{"pickup_landmark_name", "destination.address"}
		searchFilter := params.GetSearchFilter(searchFields)
		if len(searchFilter) > 0 {
			filter = bson.M{
				"$and": []bson.M{filter, searchFilter},
			}
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	opts := params.GetSortOptions()
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	for cursor.Next(ctx) {
		var ride models.Ride
		if err := cursor.Decode(&ride); err != nil {
			return nil, 0, fmt.Errorf("failed to decode ride: %w", err)
		}
		rides = append(rides, &ride)
	}

	return rides, total, nil
}

// Cache operations

func (r *rideRepository) cacheRide(ctx context.Context, ride *models.Ride) {
	if r.cache != nil && !ride.IsTerminal() {
		cacheKey := fmt.Sprintf("ride:%s", ride.ID.Hex())
		r.cache.Set(ctx, cacheKey, ride, 15*time.Minute)
	}
}

func (r *rideRepository) invalidateRideCache(ctx context.Context, rideID string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf("ride:%s", rideID)
		r.cache.Delete(ctx, cacheKey)
	}
}
