package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
)

// MemStore is the in-process Store used by tests and single-node dev.
type MemStore struct {
	clk     clock.Clock
	catalog catalog.Resolver

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemStore(clk clock.Clock, cat catalog.Resolver) *MemStore {
	return &MemStore{
		clk:      clk,
		catalog:  cat,
		sessions: make(map[string]*Session),
	}
}

func (m *MemStore) Create(_ context.Context, hostID string, cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clk.Now()
	s := &Session{
		ID:              uuid.NewString(),
		Name:            cfg.Name,
		HostID:          hostID,
		Participants:    []Participant{{UserID: hostID, JoinedAt: now}},
		Queue:           []string{},
		IsActive:        true,
		IsPublic:        cfg.IsPublic,
		MaxParticipants: cfg.MaxParticipants,
		LastUpdated:     now,
		CreatedAt:       now,
	}
	m.sessions[s.ID] = s
	return snapshot(s), nil
}

func (m *MemStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(s), nil
}

func (m *MemStore) Join(_ context.Context, id, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.IsActive {
		return nil, ErrInactive
	}
	if s.HasParticipant(userID) {
		return snapshot(s), nil
	}
	if len(s.Participants) >= s.MaxParticipants {
		return nil, ErrFull
	}
	s.Participants = append(s.Participants, Participant{UserID: userID, JoinedAt: m.clk.Now()})
	return snapshot(s), nil
}

func (m *MemStore) Leave(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if !s.HasParticipant(userID) {
		return ErrNotAParticipant
	}
	for i, p := range s.Participants {
		if p.UserID == userID {
			s.Participants = append(s.Participants[:i], s.Participants[i+1:]...)
			break
		}
	}
	if userID == s.HostID || len(s.Participants) == 0 {
		s.IsActive = false
		s.Playing = false
	}
	return nil
}

func (m *MemStore) End(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if userID != s.HostID {
		return ErrNotHost
	}
	s.IsActive = false
	s.Playing = false
	return nil
}

func (m *MemStore) AppendToQueue(ctx context.Context, id, userID, songRef string) (*Session, error) {
	if _, err := m.catalog.Resolve(ctx, songRef); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.IsActive {
		return nil, ErrInactive
	}
	if !s.HasParticipant(userID) {
		return nil, ErrNotAParticipant
	}
	s.Queue = append(s.Queue, songRef)
	return snapshot(s), nil
}

func (m *MemStore) UpdateTransportState(_ context.Context, id string, upd TransportUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if upd.CurrentSong != nil {
		s.CurrentSong = *upd.CurrentSong
	}
	if upd.Position != nil {
		s.Position = *upd.Position
	}
	if upd.Playing != nil {
		s.Playing = *upd.Playing
	}
	s.LastUpdated = m.clk.Now()
	return nil
}

func snapshot(s *Session) *Session {
	out := *s
	out.Participants = append([]Participant(nil), s.Participants...)
	out.Queue = append([]string(nil), s.Queue...)
	return &out
}
