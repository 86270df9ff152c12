package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup-chat/internal/repositories"
	"meetup-chat/internal/service"
	"meetup-chat/internal/telemetry"
)

const defaultPageSize = 20

// MessageHandler manages group message endpoints.
type MessageHandler struct {
	chatService *service.ChatService
	groupRepo   repositories.GroupRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(chatService *service.ChatService, groupRepo repositories.GroupRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		chatService: chatService,
		groupRepo:   groupRepo,
		audit:       audit,
	}
}

// GetMessagePage handles GET /groups/:group_id/messages?skip=&take=.
// skip counts from the newest message; the page comes back in ascending
// order with hayMas signaling older history.
func (h *MessageHandler) GetMessagePage(c *gin.Context) {
	groupID, ok := h.authorizeMember(c)
	if !ok {
		return
	}

	skip := intQuery(c, "skip", 0)
	take := intQuery(c, "take", defaultPageSize)
	if skip < 0 || take <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination window"})
		return
	}

	page, err := h.chatService.ListPage(c.Request.Context(), groupID, skip, take)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, page)
}

// PostMessage handles POST /groups/:group_id/messages. A fotoUrl marks the
// message as an image; the URL was produced by the upload service and is
// stored as the message text.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	groupID, ok := h.authorizeMember(c)
	if !ok {
		return
	}

	var req struct {
		Texto   string `json:"texto"`
		FotoURL string `json:"fotoUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Texto == "" && req.FotoURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.chatService.Send(c.Request.Context(), groupID, userID, req.Texto, req.FotoURL)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.emitAudit(c, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) authorizeMember(c *gin.Context) (int, bool) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return 0, false
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return 0, false
	}
	if !member {
		h.emitAudit(c, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return 0, false
	}
	return groupID, true
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return val
}
