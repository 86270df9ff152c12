package ws

import "time"

// ConnInfo is the per-connection metadata the hub keeps for the lifetime of
// a websocket connection, used in lifecycle events and error reporting.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
