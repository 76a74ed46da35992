package session

import "context"

// Store is the durable record of sessions. Mutations must use
// read-modify-write semantics that tolerate concurrent participants:
// queue writes are append-only inserts and participant changes are
// targeted add/remove, never whole-array overwrites.
type Store interface {
	// Create starts a new active session with host as its only participant.
	Create(ctx context.Context, hostID string, cfg Config) (*Session, error)

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Join adds user to the session. Idempotent for existing members.
	// Fails with ErrFull at capacity and ErrInactive on ended sessions.
	Join(ctx context.Context, id, userID string) (*Session, error)

	// Leave removes user. If the leaver is the host, or no participants
	// remain, the session is deactivated (never deleted).
	Leave(ctx context.Context, id, userID string) error

	// End deactivates the session; only the host may end it.
	End(ctx context.Context, id, userID string) error

	// AppendToQueue appends a resolvable song ref. Fails with
	// ErrNotAParticipant for outsiders.
	AppendToQueue(ctx context.Context, id, userID, songRef string) (*Session, error)

	// UpdateTransportState is a coarse best-effort snapshot write used
	// only so late joiners can bootstrap close to the truth.
	UpdateTransportState(ctx context.Context, id string, upd TransportUpdate) error
}
