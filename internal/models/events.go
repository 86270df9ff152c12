package models

import (
	"encoding/json"
	"fmt"
)

// WebSocket event names. These are part of the wire contract and must not
// change.
const (
	EventJoinRoom         = "joinRoom"
	EventLeaveRoom        = "leaveRoom"
	EventRegisterUpdates  = "registerForGroupUpdates"
	EventUnregisterUpdate = "unregisterFromGroupUpdates"
	EventNewMessage       = "newMessage"
	EventNewGroup         = "newGroup"
	EventUpdatedGroup     = "updatedGroup"
	EventDeletedGroup     = "deletedGroup"
)

// Event is the envelope carried in both directions on the websocket.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope. Payloads are always
// marshalable structs from this package; a failure indicates a programming
// error and is returned for the caller to log.
func NewEvent(name string, payload any) (Event, error) {
	if payload == nil {
		return Event{Event: name}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", name, err)
	}
	return Event{Event: name, Data: data}, nil
}

// RoomRequest is the payload of joinRoom and leaveRoom.
type RoomRequest struct {
	UserID  int `json:"userId"`
	GroupID int `json:"groupId"`
}

// RegisterRequest is the payload of registerForGroupUpdates.
type RegisterRequest struct {
	UserID int `json:"userId"`
}

// DeletedGroup is the payload of deletedGroup.
type DeletedGroup struct {
	ID int `json:"id"`
}

// ServerEvent is a decoded server-to-client event. Exactly one of the
// payload fields is set, matching Name.
type ServerEvent struct {
	Name         string
	Message      *Message
	Group        *Group
	DeletedGroup *DeletedGroup
}

// DecodeServerEvent parses an envelope into its typed variant. Unknown event
// names are an error so protocol drift surfaces instead of being silently
// dropped.
func DecodeServerEvent(raw []byte) (ServerEvent, error) {
	var env Event
	if err := json.Unmarshal(raw, &env); err != nil {
		return ServerEvent{}, fmt.Errorf("decode event envelope: %w", err)
	}

	switch env.Event {
	case EventNewMessage:
		var msg Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return ServerEvent{}, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ServerEvent{Name: env.Event, Message: &msg}, nil
	case EventNewGroup, EventUpdatedGroup:
		var group Group
		if err := json.Unmarshal(env.Data, &group); err != nil {
			return ServerEvent{}, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ServerEvent{Name: env.Event, Group: &group}, nil
	case EventDeletedGroup:
		var deleted DeletedGroup
		if err := json.Unmarshal(env.Data, &deleted); err != nil {
			return ServerEvent{}, fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return ServerEvent{Name: env.Event, DeletedGroup: &deleted}, nil
	default:
		return ServerEvent{}, fmt.Errorf("unknown event %q", env.Event)
	}
}
