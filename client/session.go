package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"meetup-chat/internal/models"
)

// SessionState is the client's view of its websocket connection.
type SessionState int

const (
	StateDisconnected SessionState = iota
	StateConnecting
	StateJoined
)

var ErrNotConnected = errors.New("session not connected")

// Session owns one websocket connection to the chat service. It is an
// explicit handle with a construction/teardown lifecycle; nothing in this
// package keeps process-wide connection state. Reconnection with backoff is
// the embedding transport layer's concern, not the session's.
type Session struct {
	url   string
	token string
	agent *Agent

	mu      sync.Mutex
	conn    *websocket.Conn
	state   SessionState
	joined  map[int]bool
	done    chan struct{}
	onError func(error)
}

// NewSession constructs a Session that applies incoming events to agent.
// onError, if non-nil, observes read-loop and decode failures.
func NewSession(url, token string, agent *Agent, onError func(error)) *Session {
	return &Session{
		url:     url,
		token:   token,
		agent:   agent,
		joined:  map[int]bool{},
		onError: onError,
	}
}

// State reports the current connection state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect dials the websocket endpoint with the bearer token and starts the
// read loop. A connectivity failure leaves the session Disconnected; the
// caller decides whether to retry.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return fmt.Errorf("connect: session already %v", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, header)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return fmt.Errorf("connect: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.readLoop(conn)
	return nil
}

// JoinRoom enters a group's chat room. Join is fire-and-forget: a nil error
// means the request was written, after which the session is considered
// Joined for that group.
func (s *Session) JoinRoom(groupID int) error {
	if err := s.emit(models.EventJoinRoom, models.RoomRequest{UserID: s.agent.userID, GroupID: groupID}); err != nil {
		return err
	}
	s.mu.Lock()
	s.joined[groupID] = true
	s.state = StateJoined
	s.mu.Unlock()
	return nil
}

// LeaveRoom exits a group's chat room.
func (s *Session) LeaveRoom(groupID int) error {
	err := s.emit(models.EventLeaveRoom, models.RoomRequest{UserID: s.agent.userID, GroupID: groupID})
	s.mu.Lock()
	delete(s.joined, groupID)
	if len(s.joined) == 0 && s.state == StateJoined {
		s.state = StateConnecting
	}
	s.mu.Unlock()
	return err
}

// RegisterForUpdates subscribes this connection to group-level events.
func (s *Session) RegisterForUpdates() error {
	return s.emit(models.EventRegisterUpdates, models.RegisterRequest{UserID: s.agent.userID})
}

// UnregisterFromUpdates removes the subscription.
func (s *Session) UnregisterFromUpdates() error {
	return s.emit(models.EventUnregisterUpdate, nil)
}

// Close leaves every joined room, unregisters and tears the connection
// down. Safe to call on an already-closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	rooms := make([]int, 0, len(s.joined))
	for groupID := range s.joined {
		rooms = append(rooms, groupID)
	}
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	for _, groupID := range rooms {
		_ = s.LeaveRoom(groupID)
	}
	_ = s.UnregisterFromUpdates()

	err := conn.Close()
	s.mu.Lock()
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()
	return err
}

// Done is closed when the read loop exits, for callers that want to notice
// a dropped connection.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Session) emit(event string, payload any) error {
	env, err := models.NewEvent(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.state == StateDisconnected {
		return ErrNotConnected
	}
	return s.conn.WriteJSON(env)
}

func (s *Session) readLoop(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
			s.state = StateDisconnected
		}
		done := s.done
		s.mu.Unlock()
		conn.Close()
		if done != nil {
			close(done)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.reportError(err)
			}
			return
		}

		ev, err := models.DecodeServerEvent(raw)
		if err != nil {
			s.reportError(err)
			continue
		}
		if err := s.agent.Apply(ev); err != nil {
			s.reportError(err)
		}
	}
}

func (s *Session) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	log.Printf("session: %v", err)
}
