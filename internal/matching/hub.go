// internal/matching/hub.go
package matching

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/duetapp/duet-backend/internal/auth"
	"github.com/duetapp/duet-backend/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Configure origin checking in production
		return true
	},
}

// Hub pushes new-match events to connected users. Notification only:
// chat is out of scope. One client per user; a reconnect replaces the
// previous connection.
type Hub struct {
	clients    map[int64]*hubClient
	broadcast  chan hubMessage
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{} // closed when Run exits
	logger     *zap.Logger
}

type hubClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan hubMessage
	userID int64
}

type hubMessage struct {
	Type   string      `json:"type"`
	UserID int64       `json:"user_id"`
	Data   interface{} `json:"data"`
}

// MatchEvent is the payload of a new_match message.
type MatchEvent struct {
	UserID      int64 `json:"user_id"`
	OtherUserID int64 `json:"other_user_id"`
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]*hubClient),
		broadcast:  make(chan hubMessage, 64),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run owns the client registry until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				close(client.send)
				delete(h.clients, client.userID)
			}
			return

		case client := <-h.register:
			if previous, ok := h.clients[client.userID]; ok {
				close(previous.send)
			}
			h.clients[client.userID] = client
			h.logger.Debug("websocket client connected", zap.Int64("user_id", client.userID))

		case client := <-h.unregister:
			if current, ok := h.clients[client.userID]; ok && current == client {
				delete(h.clients, client.userID)
				close(client.send)
				h.logger.Debug("websocket client disconnected", zap.Int64("user_id", client.userID))
			}

		case message := <-h.broadcast:
			client, ok := h.clients[message.UserID]
			if !ok {
				continue
			}
			select {
			case client.send <- message:
			default:
				// Undeliverable client, evict it.
				close(client.send)
				delete(h.clients, client.userID)
			}
		}
	}
}

// NotifyMatch tells both sides of a fresh mutual match. Non-blocking:
// a user who is not connected simply misses the push.
func (h *Hub) NotifyMatch(userA, userB int64) {
	h.push(hubMessage{
		Type:   "new_match",
		UserID: userA,
		Data:   MatchEvent{UserID: userA, OtherUserID: userB},
	})
	h.push(hubMessage{
		Type:   "new_match",
		UserID: userB,
		Data:   MatchEvent{UserID: userB, OtherUserID: userA},
	})
}

// addClient hands the connection to the registry. Reports false when the
// hub has already shut down, so a late connection is not stranded on the
// register channel.
func (h *Hub) addClient(client *hubClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) removeClient(client *hubClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) push(message hubMessage) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("match notification dropped, hub backlogged",
			zap.Int64("user_id", message.UserID),
		)
	}
}

// ServeWS upgrades an authenticated request to a WebSocket connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &hubClient{
		hub:    h,
		conn:   conn,
		send:   make(chan hubMessage, 16),
		userID: userID,
	}

	if !h.addClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames; the socket is push-only. Its job is
// noticing the disconnect.
func (c *hubClient) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *hubClient) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteJSON(message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
