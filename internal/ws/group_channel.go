package ws

import (
	"github.com/gorilla/websocket"

	"meetup-chat/internal/models"
)

// GroupBroadcastChannel fans group-level events out to every registered
// user. It is user-scoped rather than room-scoped: a user must learn about
// groups they are added to before they ever join that group's room. Every
// registered connection receives every event; filtering by membership is the
// client's responsibility.
type GroupBroadcastChannel struct {
	hub *Hub
}

// NewGroupBroadcastChannel constructs a GroupBroadcastChannel.
func NewGroupBroadcastChannel(hub *Hub) *GroupBroadcastChannel {
	return &GroupBroadcastChannel{hub: hub}
}

// RegisterForUpdates subscribes the connection's user to group events.
func (c *GroupBroadcastChannel) RegisterForUpdates(conn *websocket.Conn, userID int) {
	c.hub.Register(conn, userID)
}

// UnregisterFromUpdates removes the subscription.
func (c *GroupBroadcastChannel) UnregisterFromUpdates(conn *websocket.Conn) {
	c.hub.Unregister(conn)
}

// EmitNewGroup broadcasts a freshly created group aggregate.
func (c *GroupBroadcastChannel) EmitNewGroup(group models.Group) {
	c.hub.BroadcastToAll(models.EventNewGroup, group)
}

// EmitUpdatedGroup broadcasts the reloaded aggregate after any mutation.
func (c *GroupBroadcastChannel) EmitUpdatedGroup(group models.Group) {
	c.hub.BroadcastToAll(models.EventUpdatedGroup, group)
}

// EmitDeletedGroup broadcasts a group deletion by id.
func (c *GroupBroadcastChannel) EmitDeletedGroup(groupID int) {
	c.hub.BroadcastToAll(models.EventDeletedGroup, models.DeletedGroup{ID: groupID})
}
