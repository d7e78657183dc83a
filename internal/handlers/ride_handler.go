package handlers

import (
	"poolride/internal/models"
	"poolride/internal/services"
	"poolride/internal/utils"
	"poolride/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideHandler struct {
	rideService services.RideService
}

func NewRideHandler(rideService services.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// CreateRide books a new ride from a landmark
func (h *RideHandler) CreateRide(c *gin.Context) {
	var request validators.CreateRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateCreateRide(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), actor, &request)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride booked successfully", ride)
}

// GetRide retrieves ride details
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride retrieved successfully", ride)
}

// GetMyRides retrieves the caller's ride history
func (h *RideHandler) GetMyRides(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	rides, total, err := h.rideService.GetRidesForUser(c.Request.Context(), actor, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	response := map[string]interface{}{
		"rides": rides,
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", response, meta)
}

// ListRides lists rides with optional status and city filters (admin only)
func (h *RideHandler) ListRides(c *gin.Context) {
	status := models.RideStatus(c.Query("status"))

	var cityID primitive.ObjectID
	if cityIDStr := c.Query("city_id"); cityIDStr != "" {
		id, err := primitive.ObjectIDFromHex(cityIDStr)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid city ID")
			return
		}
		cityID = id
	}

	params := utils.GetPaginationParams(c)
	rides, total, err := h.rideService.ListRides(c.Request.Context(), status, cityID, params)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	meta := &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
	}

	response := map[string]interface{}{
		"rides": rides,
	}

	utils.SuccessResponseWithMeta(c, "Rides retrieved successfully", response, meta)
}

// CancelRide cancels a ride, or rolls it back to pending on driver self-cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	// The body is optional; a driver backing out of an assigned ride sends
	// none.
	var request validators.CancelRideRequest
	_ = c.ShouldBindJSON(&request)

	if errs := validators.ValidateCancelRide(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), actor, rideID, request.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled successfully", ride)
}

// AcceptRide assigns the calling driver to the ride and its pool
func (h *RideHandler) AcceptRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ride, err := h.rideService.AcceptRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride accepted successfully", ride)
}

// StartRide marks the ride as started
func (h *RideHandler) StartRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ride, err := h.rideService.StartRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride started successfully", ride)
}

// CompleteRide marks the ride as completed
func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	ride, err := h.rideService.CompleteRide(c.Request.Context(), actor, rideID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed successfully", ride)
}

// RateRide records the calling passenger's rating for a completed ride
func (h *RideHandler) RateRide(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var request validators.RateRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateRateRide(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	ride, err := h.rideService.RateRide(c.Request.Context(), actor, rideID, request.Rating, request.Comment)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride rated successfully", ride)
}

// SendMessage posts a message to the ride chat
func (h *RideHandler) SendMessage(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var request validators.RideMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateRideMessage(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	message, err := h.rideService.AddMessage(c.Request.Context(), actor, rideID, request.Text)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Message sent successfully", message)
}

// UpdateLocation records the driver's current position for the ride
func (h *RideHandler) UpdateLocation(c *gin.Context) {
	rideID, ok := rideIDFromPath(c)
	if !ok {
		return
	}

	actor, ok := actorFromContext(c)
	if !ok {
		return
	}

	var request validators.DriverLocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	if errs := validators.ValidateDriverLocation(&request); len(errs) > 0 {
		utils.ValidationErrorResponse(c, errs.Details())
		return
	}

	err := h.rideService.UpdateDriverLocation(c.Request.Context(), actor, rideID, request.Lat, request.Lng)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, "Location updated successfully", nil)
}

func rideIDFromPath(c *gin.Context) (primitive.ObjectID, bool) {
	rideID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return primitive.NilObjectID, false
	}
	return rideID, true
}

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return services.Actor{}, false
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return services.Actor{}, false
	}

	role, _ := c.Get("user_role")
	roleStr, _ := role.(string)

	return services.Actor{
		ID:   userObjectID,
		Role: models.UserRole(roleStr),
	}, true
}
