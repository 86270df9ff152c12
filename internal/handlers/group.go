package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meetup-chat/internal/repositories"
	"meetup-chat/internal/service"
	"meetup-chat/internal/telemetry"
)

// GroupHandler manages group endpoints.
type GroupHandler struct {
	groupService *service.GroupService
	groupRepo    repositories.GroupRepository
	audit        *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupService *service.GroupService, groupRepo repositories.GroupRepository, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		groupRepo:    groupRepo,
		audit:        audit,
	}
}

// CreateGroup handles POST /groups. The creator is always a member,
// whether or not the request lists them.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Nombre      string `json:"nombre" binding:"required"`
		Descripcion string `json:"descripcion"`
		MemberIDs   []int  `json:"miembros"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	members := append(req.MemberIDs, userID)
	group, err := h.groupService.Create(c.Request.Context(), req.Nombre, req.Descripcion, members)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, group)
}

// ListGroups returns the full aggregates of the caller's groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"grupos": groups})
}

// RenameGroup handles PATCH /groups/:group_id/name.
func (h *GroupHandler) RenameGroup(c *gin.Context) {
	h.updateField(c, "Group renamed", func(groupID int, value string) (any, error) {
		return h.groupService.Rename(c.Request.Context(), groupID, value)
	})
}

// RedescribeGroup handles PATCH /groups/:group_id/description.
func (h *GroupHandler) RedescribeGroup(c *gin.Context) {
	h.updateField(c, "Group description updated", func(groupID int, value string) (any, error) {
		return h.groupService.Redescribe(c.Request.Context(), groupID, value)
	})
}

// RephotoGroup handles PATCH /groups/:group_id/photo.
func (h *GroupHandler) RephotoGroup(c *gin.Context) {
	h.updateField(c, "Group photo updated", func(groupID int, value string) (any, error) {
		return h.groupService.Rephoto(c.Request.Context(), groupID, value)
	})
}

func (h *GroupHandler) updateField(c *gin.Context, auditText string, apply func(groupID int, value string) (any, error)) {
	groupID, ok := h.authorizeMember(c)
	if !ok {
		return
	}

	var req struct {
		Valor string `json:"valor" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := apply(groupID, req.Valor)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update group"})
		return
	}

	h.emitAudit(c, "INFO", auditText)
	c.JSON(http.StatusOK, group)
}

// AddMember handles POST /groups/:group_id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := h.authorizeMember(c)
	if !ok {
		return
	}

	var req struct {
		UserID int `json:"usuarioId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupService.AddMember(c.Request.Context(), groupID, req.UserID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add member"})
		return
	}

	h.emitAudit(c, "INFO", "Group member added")
	c.JSON(http.StatusOK, group)
}

// RemoveMember handles DELETE /groups/:group_id/members/:user_id. Removing
// a user who is not a member succeeds without effect.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := h.authorizeMember(c)
	if !ok {
		return
	}

	targetID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	group, err := h.groupService.RemoveMember(c.Request.Context(), groupID, targetID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove member"})
		return
	}

	h.emitAudit(c, "INFO", "Group member removed")
	c.JSON(http.StatusOK, group)
}

// authorizeMember parses the group id and verifies the caller's membership.
func (h *GroupHandler) authorizeMember(c *gin.Context) (int, bool) {
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

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
