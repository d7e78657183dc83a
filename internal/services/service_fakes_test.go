package services

import (
	"context"
	"sync"
	"time"

	"poolride/internal/models"
	"poolride/internal/repositories/interfaces"
	"poolride/internal/utils"
	"poolride/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testLogger() *logger.Logger {
	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.ErrorLevel,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		panic(err)
	}
	return log
}

// fakeRideRepository is an in-memory stand-in for the Mongo repository. It
// mirrors the persistence semantics the services rely on: the conditional
// accept, pool merging and sibling propagation.
type fakeRideRepository struct {
	mu    sync.Mutex
	rides map[primitive.ObjectID]*models.Ride
}

func newFakeRideRepository() *fakeRideRepository {
	return &fakeRideRepository{
		rides: make(map[primitive.ObjectID]*models.Ride),
	}
}

func (r *fakeRideRepository) Create(ctx context.Context, ride *models.Ride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	r.rides[ride.ID] = ride
	return nil
}

func (r *fakeRideRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, utils.NotFoundError("ride")
	}
	return ride, nil
}

func (r *fakeRideRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return utils.NotFoundError("ride")
	}
	ride.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRideRepository) AppendLog(ctx context.Context, id primitive.ObjectID, entry models.RideLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return utils.NotFoundError("ride")
	}
	// The service already appended to its own copy; only sibling logs are new.
	if len(ride.Logs) == 0 || ride.Logs[len(ride.Logs)-1] != entry {
		ride.Logs = append(ride.Logs, entry)
	}
	return nil
}

func (r *fakeRideRepository) AppendMessage(ctx context.Context, id primitive.ObjectID, msg models.RideMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return utils.NotFoundError("ride")
	}
	if len(ride.Messages) == 0 || ride.Messages[len(ride.Messages)-1] != msg {
		ride.Messages = append(ride.Messages, msg)
	}
	return nil
}

func (r *fakeRideRepository) FindPoolCandidates(ctx context.Context, query *interfaces.PoolCandidateQuery) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var candidates []*models.Ride
	for _, ride := range r.rides {
		if ride.Status != models.RideStatusPending {
			continue
		}
		if ride.PickupLandmarkID != query.PickupLandmarkID {
			continue
		}
		if ride.PoolID == query.ExcludePoolID {
			continue
		}

		delta := ride.ScheduledTime.Sub(query.ScheduledTime)
		if delta < 0 {
			delta = -delta
		}
		if delta > query.Window {
			continue
		}

		if !utils.IsWithinRadius(
			query.Destination.Latitude(), query.Destination.Longitude(),
			ride.Destination.Latitude(), ride.Destination.Longitude(),
			query.RadiusKM,
		) {
			continue
		}

		candidates = append(candidates, ride)
		if query.Limit > 0 && len(candidates) >= query.Limit {
			break
		}
	}
	return candidates, nil
}

func (r *fakeRideRepository) MergeIntoPool(ctx context.Context, rideIDs []primitive.ObjectID, poolID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range rideIDs {
		if ride, ok := r.rides[id]; ok {
			ride.PoolID = poolID
			ride.Status = models.RideStatusPooling
		}
	}
	return nil
}

func (r *fakeRideRepository) GetPoolSiblings(ctx context.Context, poolID string, exclude primitive.ObjectID) ([]*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Return copies, as a decode from the database would.
	var siblings []*models.Ride
	for _, ride := range r.rides {
		if ride.PoolID == poolID && ride.ID != exclude {
			snapshot := *ride
			siblings = append(siblings, &snapshot)
		}
	}
	return siblings, nil
}

func (r *fakeRideRepository) AcceptRide(ctx context.Context, id primitive.ObjectID, driverID primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return nil, utils.NotFoundError("ride")
	}
	if ride.DriverID != nil {
		return nil, nil
	}
	if ride.Status != models.RideStatusPending && ride.Status != models.RideStatusPooling {
		return nil, nil
	}

	d := driverID
	ride.DriverID = &d
	ride.Status = models.RideStatusAssigned
	ride.ConfirmPassengers()
	return ride, nil
}

func (r *fakeRideRepository) AssignPoolSiblings(ctx context.Context, poolID string, driverID primitive.ObjectID, exclude primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, ride := range r.rides {
		if ride.ID == exclude || ride.PoolID != poolID {
			continue
		}
		if ride.Status != models.RideStatusPooling || ride.DriverID != nil {
			continue
		}

		d := driverID
		ride.DriverID = &d
		ride.Status = models.RideStatusAssigned
		ride.ConfirmPassengers()
		count++
	}
	return count, nil
}

func (r *fakeRideRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ride := range r.rides {
		if ride.DriverID == nil || *ride.DriverID != driverID {
			continue
		}
		if ride.Status == models.RideStatusAssigned || ride.Status == models.RideStatusStarted {
			return ride, nil
		}
	}
	return nil, nil
}

func (r *fakeRideRepository) UpdateDriverLocation(ctx context.Context, id primitive.ObjectID, loc *models.DriverLocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ride, ok := r.rides[id]
	if !ok {
		return utils.NotFoundError("ride")
	}
	ride.DriverLocation = loc
	return nil
}

func (r *fakeRideRepository) GetByPassenger(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range r.rides {
		if ride.IsPassenger(userID) {
			rides = append(rides, ride)
		}
	}
	return rides, int64(len(rides)), nil
}

func (r *fakeRideRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range r.rides {
		if ride.DriverID != nil && *ride.DriverID == driverID {
			rides = append(rides, ride)
		}
	}
	return rides, int64(len(rides)), nil
}

func (r *fakeRideRepository) List(ctx context.Context, status models.RideStatus, cityID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rides []*models.Ride
	for _, ride := range r.rides {
		if status != "" && ride.Status != status {
			continue
		}
		if !cityID.IsZero() && ride.CityID != cityID {
			continue
		}
		rides = append(rides, ride)
	}
	return rides, int64(len(rides)), nil
}

type fakeUserRepository struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{
		users: make(map[primitive.ObjectID]*models.User),
	}
}

func (r *fakeUserRepository) add(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return user
}

func (r *fakeUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, utils.NotFoundError("user")
	}
	return user, nil
}

func (r *fakeUserRepository) IncrementDriverStats(ctx context.Context, id primitive.ObjectID, distanceKM, earnings float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return utils.NotFoundError("user")
	}
	user.Stats.RidesCompleted++
	user.Stats.TotalDistance += distanceKM
	user.Stats.TotalEarnings += earnings
	return nil
}

func (r *fakeUserRepository) IncrementPassengerStats(ctx context.Context, id primitive.ObjectID, distanceKM float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return utils.NotFoundError("user")
	}
	user.Stats.RidesCompleted++
	user.Stats.TotalDistance += distanceKM
	return nil
}

func (r *fakeUserRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, rating models.UserRating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return utils.NotFoundError("user")
	}
	user.Rating = rating
	return nil
}

func (r *fakeUserRepository) SetDriverAvailability(ctx context.Context, id primitive.ObjectID, available bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return utils.NotFoundError("user")
	}
	if user.DriverDetails != nil {
		user.DriverDetails.IsAvailable = available
	}
	return nil
}

type fakeCityRepository struct {
	mu        sync.Mutex
	cities    map[primitive.ObjectID]*models.City
	landmarks map[primitive.ObjectID]*models.Landmark
}

func newFakeCityRepository() *fakeCityRepository {
	return &fakeCityRepository{
		cities:    make(map[primitive.ObjectID]*models.City),
		landmarks: make(map[primitive.ObjectID]*models.Landmark),
	}
}

func (r *fakeCityRepository) addCity(city *models.City) *models.City {
	r.mu.Lock()
	defer r.mu.Unlock()

	if city.ID.IsZero() {
		city.ID = primitive.NewObjectID()
	}
	r.cities[city.ID] = city
	return city
}

func (r *fakeCityRepository) addLandmark(landmark *models.Landmark) *models.Landmark {
	r.mu.Lock()
	defer r.mu.Unlock()

	if landmark.ID.IsZero() {
		landmark.ID = primitive.NewObjectID()
	}
	r.landmarks[landmark.ID] = landmark
	return landmark
}

func (r *fakeCityRepository) GetCity(ctx context.Context, id primitive.ObjectID) (*models.City, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	city, ok := r.cities[id]
	if !ok {
		return nil, utils.NotFoundError("city")
	}
	return city, nil
}

func (r *fakeCityRepository) GetLandmark(ctx context.Context, id primitive.ObjectID) (*models.Landmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	landmark, ok := r.landmarks[id]
	if !ok {
		return nil, utils.NotFoundError("landmark")
	}
	return landmark, nil
}

func (r *fakeCityRepository) IncrementCityRideStats(ctx context.Context, cityID primitive.ObjectID, revenue float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	city, ok := r.cities[cityID]
	if !ok {
		return utils.NotFoundError("city")
	}
	city.Stats.TotalRides++
	city.Stats.TotalRevenue += revenue
	return nil
}

func (r *fakeCityRepository) IncrementLandmarkPickups(ctx context.Context, landmarkID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	landmark, ok := r.landmarks[landmarkID]
	if !ok {
		return utils.NotFoundError("landmark")
	}
	landmark.Stats.PickupCount++
	return nil
}

type fakeEventRepository struct {
	mu     sync.Mutex
	events []*models.RideEvent
}

func (r *fakeEventRepository) Insert(ctx context.Context, event *models.RideEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepository) eventsOfType(t models.RideEventType) []*models.RideEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*models.RideEvent
	for _, event := range r.events {
		if event.Type == t {
			matched = append(matched, event)
		}
	}
	return matched
}

type notification struct {
	RideID primitive.ObjectID
	Event  string
	Data   map[string]interface{}
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []notification
	userEvents    map[primitive.ObjectID][]string
}

func (n *fakeNotifier) NotifyRide(rideID primitive.ObjectID, event string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.notifications = append(n.notifications, notification{
		RideID: rideID,
		Event:  event,
		Data:   data,
	})
}

func (n *fakeNotifier) NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.userEvents == nil {
		n.userEvents = make(map[primitive.ObjectID][]string)
	}
	n.userEvents[userID] = append(n.userEvents[userID], event)
}

func (n *fakeNotifier) eventsFor(rideID primitive.ObjectID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var events []string
	for _, note := range n.notifications {
		if note.RideID == rideID {
			events = append(events, note.Event)
		}
	}
	return events
}

func (n *fakeNotifier) userEventsFor(userID primitive.ObjectID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.userEvents[userID]
}

type fakeCache struct {
	mu    sync.Mutex
	store map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	return utils.NotFoundError("cache entry")
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.store, key)
	}
	return nil
}

func (c *fakeCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.store[key]; exists {
		return false, nil
	}
	c.store[key] = value
	return true, nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, exists := c.store[key]
	return exists, nil
}
