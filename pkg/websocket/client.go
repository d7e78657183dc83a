package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly in production
	},
}

// RoomAuthorizer decides whether a user may join a ride room. A nil
// authorizer admits nobody.
type RoomAuthorizer func(ctx context.Context, userID primitive.ObjectID, role string, rideID primitive.ObjectID) bool

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	UserID    primitive.ObjectID
	Role      string
	rooms     map[string]bool
	authorize RoomAuthorizer
}

func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID, role string, authorize RoomAuthorizer) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		UserID:    userID,
		Role:      role,
		rooms:     make(map[string]bool),
		authorize: authorize,
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages if any
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes inbound client frames. Clients may only join or
// leave ride rooms; state changes go through the HTTP API and are echoed
// back into the room by the server.
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("Error unmarshaling client message: %v", err)
		return
	}

	msg.UserID = c.UserID
	msg.Timestamp = getCurrentTimestamp()

	switch msg.Type {
	case "join_room":
		if roomID, ok := msg.Data["room_id"].(string); ok && c.canJoin(roomID) {
			c.hub.JoinRoom(c, roomID)
		}

	case "leave_room":
		if roomID, ok := msg.Data["room_id"].(string); ok {
			c.hub.LeaveRoom(c, roomID)
		}

	default:
		log.Printf("Unsupported client message type: %s", msg.Type)
	}
}

// canJoin gates ride rooms to ride participants. Personal rooms are joined
// server-side at registration and never on request.
func (c *Client) canJoin(roomID string) bool {
	rideHex, ok := strings.CutPrefix(roomID, "ride_")
	if !ok {
		return false
	}
	rideID, err := primitive.ObjectIDFromHex(rideHex)
	if err != nil {
		return false
	}
	if c.authorize == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.authorize(ctx, c.UserID, c.Role, rideID)
}
