package event

import "time"

// Event is a playback-affecting intent originated by a session host.
// Participants treat these as commands, never as acknowledgements.
type Event interface{ isEvent() }

type Play struct {
	SongRef  string
	Position float64 // seconds
}

func (Play) isEvent() {}

type Pause struct {
	Position float64
}

func (Pause) isEvent() {}

type Seek struct {
	Position float64
}

func (Seek) isEvent() {}

type SongChange struct {
	SongRef string
}

func (SongChange) isEvent() {}

// ParticipantJoined / ParticipantLeft / QueueUpdated are room notifications
// emitted by the session surface, not by the transport controller.
type ParticipantJoined struct {
	UserID string
}

func (ParticipantJoined) isEvent() {}

type ParticipantLeft struct {
	UserID string
}

func (ParticipantLeft) isEvent() {}

type QueueUpdated struct {
	Queue []string
}

func (QueueUpdated) isEvent() {}

// Message wraps an Event with its routing and ordering metadata.
// Seq is monotonic per session for host-originated transport events;
// zero means the sender does not participate in sequencing.
type Message struct {
	SessionID string
	SenderID  string
	Seq       uint64
	At        time.Time
	Event     Event
}

// IsTransport reports whether the wrapped event drives playback state,
// as opposed to membership/queue notifications.
func (m Message) IsTransport() bool {
	switch m.Event.(type) {
	case Play, Pause, Seek, SongChange:
		return true
	}
	return false
}
