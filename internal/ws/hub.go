package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meetup-chat/internal/models"
	"meetup-chat/internal/observability"
)

const writeTimeout = 10 * time.Second

// Hub tracks which websocket connections belong to which rooms and which
// user a connection represents. It is the single shared registry behind both
// broadcast paths; it holds no persistent state.
type Hub struct {
	rooms      map[string]map[*websocket.Conn]bool
	connRooms  map[*websocket.Conn]map[string]bool
	registered map[*websocket.Conn]int
	connInfo   map[*websocket.Conn]ConnInfo
	writers    map[*websocket.Conn]*sync.Mutex
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*websocket.Conn]bool),
		connRooms:  make(map[*websocket.Conn]map[string]bool),
		registered: make(map[*websocket.Conn]int),
		connInfo:   make(map[*websocket.Conn]ConnInfo),
		writers:    make(map[*websocket.Conn]*sync.Mutex),
	}
}

// Track records connection metadata for the lifetime of the connection.
func (h *Hub) Track(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connInfo[conn] = info
}

// Join adds the connection to a room. Joining a room twice is idempotent.
func (h *Hub) Join(conn *websocket.Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*websocket.Conn]bool)
	}
	h.rooms[roomID][conn] = true
	if _, ok := h.connRooms[conn]; !ok {
		h.connRooms[conn] = make(map[string]bool)
	}
	h.connRooms[conn][roomID] = true
}

// Leave removes the connection from a room; no-op if absent.
func (h *Hub) Leave(conn *websocket.Conn, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, roomID)
}

func (h *Hub) leaveLocked(conn *websocket.Conn, roomID string) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if rooms, ok := h.connRooms[conn]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.connRooms, conn)
		}
	}
}

// Register associates the connection with a user id for broadcast-to-all
// delivery, overwriting any prior registration for that connection.
func (h *Hub) Register(conn *websocket.Conn, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registered[conn] = userID
}

// Unregister clears the association.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.registered, conn)
}

// OnDisconnect releases every room membership and the registration of the
// connection. The transport layer calls it exactly once per connection.
func (h *Hub) OnDisconnect(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.connRooms[conn] {
		if conns, ok := h.rooms[roomID]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.connRooms, conn)
	delete(h.registered, conn)
	delete(h.connInfo, conn)
	delete(h.writers, conn)
}

// BroadcastToRoom delivers an event to every connection currently joined to
// the room. Delivery is best-effort: a failing connection is closed and its
// cleanup is left to the reader goroutine's disconnect path.
func (h *Hub) BroadcastToRoom(roomID, eventName string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.rooms[roomID]))
	for conn := range h.rooms[roomID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	h.send(conns, roomID, eventName, payload)
}

// BroadcastToAll delivers an event to every registered connection,
// regardless of room membership.
func (h *Hub) BroadcastToAll(eventName string, payload any) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.registered))
	for conn := range h.registered {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	h.send(conns, "", eventName, payload)
}

func (h *Hub) send(conns []*websocket.Conn, roomID, eventName string, payload any) {
	event, err := models.NewEvent(eventName, payload)
	if err != nil {
		log.Printf("websocket event marshal error: %v", err)
		return
	}
	body, _ := json.Marshal(event)

	for _, conn := range conns {
		if err := h.write(conn, body); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			observability.IncBroadcastWriteError(eventName)
			h.publishWSError(roomID, eventName, conn, err)
		}
	}
}

// write serializes frames per connection. Gorilla websocket connections
// support one concurrent writer, and broadcasts run on whatever request
// goroutine triggered them. The deadline keeps a stalled reader from
// blocking the broadcaster; an expired deadline surfaces as a write error
// and the connection is closed.
func (h *Hub) write(conn *websocket.Conn, body []byte) error {
	mu := h.writerFor(conn)
	mu.Lock()
	defer mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, body)
}

func (h *Hub) writerFor(conn *websocket.Conn) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	mu, ok := h.writers[conn]
	if !ok {
		mu = &sync.Mutex{}
		h.writers[conn] = mu
	}
	return mu
}

func (h *Hub) publishWSError(roomID, eventName string, conn *websocket.Conn, err error) {
	h.mu.RLock()
	info, ok := h.connInfo[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     roomID,
			"event":       eventName,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.groups", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
