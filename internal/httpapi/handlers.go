package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

// API owns the session management surface. Real-time sync never flows
// through here; these handlers only mutate the store and notify rooms.
type API struct {
	store session.Store
	hub   *transport.Hub
	log   *zap.Logger
}

func NewAPI(store session.Store, hub *transport.Hub, log *zap.Logger) *API {
	return &API{store: store, hub: hub, log: log}
}

type createSessionRequest struct {
	Name            string `json:"name"`
	IsPublic        bool   `json:"isPublic"`
	MaxParticipants int    `json:"maxParticipants"`
}

type sessionResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	HostID          string   `json:"hostId"`
	Participants    []string `json:"participants"`
	Queue           []string `json:"queue"`
	CurrentSong     string   `json:"currentSong,omitempty"`
	Playing         bool     `json:"playing"`
	Position        float64  `json:"position"`
	IsActive        bool     `json:"isActive"`
	IsPublic        bool     `json:"isPublic"`
	MaxParticipants int      `json:"maxParticipants"`
}

func toResponse(s *session.Session) sessionResponse {
	resp := sessionResponse{
		ID:              s.ID,
		Name:            s.Name,
		HostID:          s.HostID,
		Queue:           s.Queue,
		CurrentSong:     s.CurrentSong,
		Playing:         s.Playing,
		Position:        s.Position,
		IsActive:        s.IsActive,
		IsPublic:        s.IsPublic,
		MaxParticipants: s.MaxParticipants,
	}
	for _, p := range s.Participants {
		resp.Participants = append(resp.Participants, p.UserID)
	}
	return resp
}

// userID pulls the caller identity set by the auth layer upstream.
// Authentication mechanics are out of scope here.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (a *API) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.MaxParticipants <= 0 {
		http.Error(w, "maxParticipants must be positive", http.StatusBadRequest)
		return
	}

	s, err := a.store.Create(r.Context(), user, session.Config{
		Name:            req.Name,
		IsPublic:        req.IsPublic,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		a.fail(w, err)
		return
	}

	a.hub.Ensure(s.ID)
	writeJSON(w, http.StatusCreated, toResponse(s))
}

func (a *API) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(s))
}

func (a *API) JoinSession(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	s, err := a.store.Join(r.Context(), id, user)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.notify(id, event.ParticipantJoined{UserID: user})
	writeJSON(w, http.StatusOK, toResponse(s))
}

func (a *API) LeaveSession(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := a.store.Leave(r.Context(), id, user); err != nil {
		a.fail(w, err)
		return
	}

	a.notify(id, event.ParticipantLeft{UserID: user})

	// Host gone means session over: tear the room down too.
	if s, err := a.store.Get(r.Context(), id); err == nil && !s.IsActive {
		a.hub.Remove(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) EndSession(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	if err := a.store.End(r.Context(), id, user); err != nil {
		a.fail(w, err)
		return
	}
	a.hub.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

type queueRequest struct {
	SongRef string `json:"songRef"`
}

func (a *API) AppendToQueue(w http.ResponseWriter, r *http.Request) {
	user := userID(r)
	if user == "" {
		http.Error(w, "missing user", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	var req queueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SongRef == "" {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	s, err := a.store.AppendToQueue(r.Context(), id, user, req.SongRef)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.notify(id, event.QueueUpdated{Queue: s.Queue})
	writeJSON(w, http.StatusOK, toResponse(s))
}

func (a *API) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"rooms": a.hub.View().NumRooms})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// notify pushes a server-originated membership event into the session's
// room, if one exists. Best-effort: no room, no notification.
func (a *API) notify(sessionID string, ev event.Event) {
	room := a.hub.Get(sessionID)
	if room == nil {
		return
	}
	room.Broadcast("", event.Message{
		SessionID: sessionID,
		At:        time.Now(),
		Event:     ev,
	})
}

func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
	case errors.Is(err, session.ErrInactive):
		http.Error(w, "session ended", http.StatusGone)
	case errors.Is(err, session.ErrFull):
		http.Error(w, "session full", http.StatusConflict)
	case errors.Is(err, session.ErrNotAParticipant):
		http.Error(w, "not a participant", http.StatusForbidden)
	case errors.Is(err, session.ErrNotHost):
		http.Error(w, "host only", http.StatusForbidden)
	case errors.Is(err, catalog.ErrSongNotResolvable):
		http.Error(w, "song not found", http.StatusNotFound)
	default:
		a.log.Error("internal error", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
