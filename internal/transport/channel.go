package transport

import (
	"errors"

	"github.com/tunelink/jamsync/internal/event"
)

// ErrUnavailable means the channel has no live room connection. Callers
// in the playback path must treat this as a silent no-op: local playback
// keeps working without room connectivity.
var ErrUnavailable = errors.New("transport: channel unavailable")

// Handler consumes one delivered message.
type Handler func(event.Message)

// Channel is a bidirectional, room-scoped pub/sub handle. Delivery is
// at-most-once with no ordering guarantee beyond same-sender FIFO; a
// disconnected receiver simply misses events.
type Channel interface {
	Join(sessionID string) error
	Leave(sessionID string) error
	Broadcast(sessionID string, msg event.Message) error
	Subscribe(sessionID string, h Handler) error
}
