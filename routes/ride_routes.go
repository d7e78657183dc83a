package routes

import (
	"poolride/internal/handlers"
	"poolride/internal/middleware"
	"poolride/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// SetupRideRoutes sets up routes for ride functionality
func SetupRideRoutes(r *gin.RouterGroup, rideHandler *handlers.RideHandler, jwtSecret string) {
	rides := r.Group("/rides")
	rides.Use(middleware.AuthRequired(jwtSecret))
	{
		// Booking and lookup
		rides.POST("/", middleware.PassengerRequired(), rideHandler.CreateRide)
		rides.GET("/:id", rideHandler.GetRide)
		rides.GET("/", rideHandler.GetMyRides)

		// Lifecycle
		rides.PUT("/:id/cancel", rideHandler.CancelRide)
		rides.PUT("/:id/accept", middleware.DriverRequired(), rideHandler.AcceptRide)
		rides.PUT("/:id/start", middleware.DriverRequired(), rideHandler.StartRide)
		rides.PUT("/:id/complete", middleware.DriverRequired(), rideHandler.CompleteRide)
		rides.PUT("/:id/rate", middleware.PassengerRequired(), rideHandler.RateRide)

		// In-ride communication
		rides.POST("/:id/messages", rideHandler.SendMessage)
		rides.PUT("/:id/location", middleware.DriverRequired(), rideHandler.UpdateLocation)
	}

	// Admin routes for ride oversight
	admin := r.Group("/admin/rides")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.GET("/", rideHandler.ListRides)
	}
}

// SetupWebSocketRoutes sets up the realtime endpoint
func SetupWebSocketRoutes(r *gin.Engine, wsHandler *websocket.Handler, jwtSecret string) {
	r.GET("/ws", middleware.AuthRequired(jwtSecret), wsHandler.HandleWebSocket)
}
