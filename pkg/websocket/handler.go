package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub       *Hub
	authorize RoomAuthorizer
}

func NewHandler(authorize RoomAuthorizer) *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub:       hub,
		authorize: authorize,
	}
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	role, exists := c.Get("user_role")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	roleStr, ok := role.(string)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user role"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID, roleStr, h.authorize)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// NotifyRide pushes a server-originated event into the ride's room.
func (h *Handler) NotifyRide(rideID primitive.ObjectID, event string, data map[string]interface{}) {
	message := Message{
		Type:      event,
		RoomID:    RideRoom(rideID),
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.SendRideUpdate(rideID, message)
}

func (h *Handler) NotifyUser(userID primitive.ObjectID, event string, data map[string]interface{}) {
	message := Message{
		Type:      event,
		UserID:    userID,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}

	h.hub.SendToUser(userID, message)
}
