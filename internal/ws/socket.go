package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"meetup-chat/internal/middleware"
	"meetup-chat/internal/models"
	"meetup-chat/internal/observability"
	"meetup-chat/internal/repositories"
)

// SocketHandler owns the websocket endpoint. A single connection multiplexes
// room membership (joinRoom/leaveRoom) and the cross-group registration
// (registerForGroupUpdates/unregisterFromGroupUpdates).
type SocketHandler struct {
	hub          *Hub
	chatChannel  *ChatBroadcastChannel
	groupChannel *GroupBroadcastChannel
	groupRepo    repositories.GroupRepository
	verifier     middleware.TokenVerifier
}

// NewSocketHandler constructs a SocketHandler.
func NewSocketHandler(hub *Hub, chatChannel *ChatBroadcastChannel, groupChannel *GroupBroadcastChannel, groupRepo repositories.GroupRepository, verifier middleware.TokenVerifier) *SocketHandler {
	return &SocketHandler{
		hub:          hub,
		chatChannel:  chatChannel,
		groupChannel: groupChannel,
		groupRepo:    groupRepo,
		verifier:     verifier,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades the connection and runs the read loop.
func (h *SocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("meetup-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Track(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", "", info)

	go h.readLoop(ctx, conn, info)
}

func (h *SocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.OnDisconnect(conn)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", closeReason, info)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, "ws_error", closeReason, info)
			}
			return
		}
		h.dispatch(ctx, conn, info, raw)
	}
}

// dispatch applies one client event. Events run to completion in the order
// received on the connection.
func (h *SocketHandler) dispatch(ctx context.Context, conn *websocket.Conn, info ConnInfo, raw []byte) {
	var env models.Event
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("websocket: malformed client event from conn %s: %v", info.ConnID, err)
		return
	}

	switch env.Event {
	case models.EventJoinRoom:
		var req models.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			log.Printf("websocket: malformed joinRoom from conn %s: %v", info.ConnID, err)
			return
		}
		// The verified identity decides access, not the payload user id.
		member, err := h.groupRepo.IsMember(ctx, req.GroupID, info.UserID)
		if err != nil || !member {
			observability.IncWSEvent("join_denied")
			log.Printf("websocket: join denied user=%d group=%d err=%v", info.UserID, req.GroupID, err)
			return
		}
		h.chatChannel.JoinRoom(conn, req.GroupID)
		observability.IncWSEvent("join_room")
	case models.EventLeaveRoom:
		var req models.RoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			log.Printf("websocket: malformed leaveRoom from conn %s: %v", info.ConnID, err)
			return
		}
		h.chatChannel.LeaveRoom(conn, req.GroupID)
		observability.IncWSEvent("leave_room")
	case models.EventRegisterUpdates:
		h.groupChannel.RegisterForUpdates(conn, info.UserID)
		observability.IncWSEvent("register_updates")
	case models.EventUnregisterUpdate:
		h.groupChannel.UnregisterFromUpdates(conn)
		observability.IncWSEvent("unregister_updates")
	default:
		log.Printf("websocket: unknown client event %q from conn %s", env.Event, info.ConnID)
	}
}

func (h *SocketHandler) publishLifecycle(ctx context.Context, event, reason string, info ConnInfo) {
	_ = observability.PublishEvent(ctx, "ws_events.groups", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

func (h *SocketHandler) validateToken(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.ValidateToken(parts[1])
	}
	return 0, middleware.ErrInvalidToken
}
