package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Hub fans messages out to connected clients. Each active ride has one room,
// keyed "ride_<id>"; every participant of the ride joins that room. Delivery
// is at-most-once: a slow client is dropped, not buffered indefinitely.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Message struct {
	Type      string                 `json:"type"`
	RoomID    string                 `json:"room_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	// Join user to their personal room
	personalRoom := "user_" + client.UserID.Hex()
	h.joinRoom(client, personalRoom)

	welcomeMsg := Message{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: getCurrentTimestamp(),
		Data: map[string]interface{}{
			"message": "Connected successfully",
		},
	}

	h.sendToClient(client, welcomeMsg)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.evictLocked(client)
}

// evict drops a slow or disconnected client. Safe to call for a client that
// is already gone; only the first call closes the send channel.
func (h *Hub) evict(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.evictLocked(client)
}

// evictLocked requires the write lock.
func (h *Hub) evictLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	for roomID := range client.rooms {
		if room, exists := h.rooms[roomID]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

func (h *Hub) broadcastMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	// Messages are always room scoped; nothing is broadcast globally.
	if msg.RoomID != "" {
		h.sendToRoom(msg.RoomID, msg)
	}
}

// sendToRoom fans a message out to every member of the room. Slow clients
// are collected under the read lock and evicted afterwards; mutating the
// client and room maps needs the write lock.
func (h *Hub) sendToRoom(roomID string, message Message) {
	data, _ := json.Marshal(message)

	h.mutex.RLock()
	var slow []*Client
	for client := range h.rooms[roomID] {
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range slow {
		h.evict(client)
	}
}

// sendToClient requires the write lock.
func (h *Hub) sendToClient(client *Client, message Message) {
	data, _ := json.Marshal(message)
	select {
	case client.send <- data:
	default:
		h.evictLocked(client)
	}
}

func (h *Hub) SendToUser(userID primitive.ObjectID, message Message) {
	roomID := "user_" + userID.Hex()
	h.sendToRoom(roomID, message)
}

func (h *Hub) SendRideUpdate(rideID primitive.ObjectID, message Message) {
	roomID := RideRoom(rideID)
	h.sendToRoom(roomID, message)
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, roomID)
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// RideRoom returns the room id for a ride.
func RideRoom(rideID primitive.ObjectID) string {
	return "ride_" + rideID.Hex()
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
