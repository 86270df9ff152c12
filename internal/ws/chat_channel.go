package ws

import (
	"fmt"

	"github.com/gorilla/websocket"

	"meetup-chat/internal/models"
)

// ChatBroadcastChannel is the group-scoped chat addressing layer: it maps
// group ids to rooms and fans newly created messages out to room members.
type ChatBroadcastChannel struct {
	hub *Hub
}

// NewChatBroadcastChannel constructs a ChatBroadcastChannel.
func NewChatBroadcastChannel(hub *Hub) *ChatBroadcastChannel {
	return &ChatBroadcastChannel{hub: hub}
}

// RoomID computes the deterministic room id for a group.
func RoomID(groupID int) string {
	return fmt.Sprintf("group-%d", groupID)
}

// JoinRoom adds the connection to the group's room.
func (c *ChatBroadcastChannel) JoinRoom(conn *websocket.Conn, groupID int) {
	c.hub.Join(conn, RoomID(groupID))
}

// LeaveRoom removes the connection from the group's room.
func (c *ChatBroadcastChannel) LeaveRoom(conn *websocket.Conn, groupID int) {
	c.hub.Leave(conn, RoomID(groupID))
}

// EmitNewMessage fans a fully resolved message out to the group's room.
func (c *ChatBroadcastChannel) EmitNewMessage(groupID int, msg models.Message) {
	c.hub.BroadcastToRoom(RoomID(groupID), models.EventNewMessage, msg)
}
