package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID generates a random transport-level connection id.
func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
