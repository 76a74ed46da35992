package session

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("session: not found")
	ErrInactive        = errors.New("session: inactive")
	ErrFull            = errors.New("session: full")
	ErrNotAParticipant = errors.New("session: not a participant")
	ErrNotHost         = errors.New("session: not host")
)

// Participant is a session member. The host's entry is special: removing
// it deactivates the session.
type Participant struct {
	UserID   string
	JoinedAt time.Time
}

// Session groups a host, participants, the shared queue and a coarse
// playback snapshot. Position is authoritative only as of LastUpdated;
// real-time sync flows over the transport channel, not through here.
type Session struct {
	ID              string
	Name            string
	HostID          string
	Participants    []Participant
	Queue           []string // ordered song refs
	CurrentSong     string   // empty means none
	Playing         bool
	Position        float64
	LastUpdated     time.Time
	IsActive        bool
	IsPublic        bool
	MaxParticipants int
	CreatedAt       time.Time
}

// HasParticipant reports membership by user id.
func (s *Session) HasParticipant(userID string) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Config is what a creating user chooses for a new session.
type Config struct {
	Name            string
	IsPublic        bool
	MaxParticipants int
}

// TransportUpdate is a partial snapshot write; nil fields are untouched.
type TransportUpdate struct {
	CurrentSong *string
	Position    *float64
	Playing     *bool
}
