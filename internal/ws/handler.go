package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 60 * time.Second
)

// stateData is the bootstrap snapshot pushed right after join:jam so a
// late joiner starts close to the truth without waiting for the next
// host rebroadcast.
type stateData struct {
	SessionID   string   `json:"sessionId"`
	CurrentSong string   `json:"currentSong,omitempty"`
	Playing     bool     `json:"playing"`
	Position    float64  `json:"position"`
	LastUpdated int64    `json:"lastUpdated"`
	Queue       []string `json:"queue"`
}

// Handler upgrades a connection and bridges it onto the room hub. One
// websocket connection is one transport client: at most one room at a
// time, events relayed verbatim to the room minus the sender.
func Handler(hub *transport.Hub, store session.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "missing user", http.StatusBadRequest)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := userID + ":" + uuid.NewString()[:8]
		client := hub.Client(clientID)
		defer client.Leave("")

		out := make(chan []byte, 32)

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case payload := <-out:
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		push := func(msg event.Message) {
			raw, err := event.Marshal(msg)
			if err != nil {
				log.Warn("marshal outbound event failed", zap.Error(err))
				return
			}
			select {
			case out <- raw:
			default:
				// At-most-once: a backed-up socket just misses events.
			}
		}

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var env event.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				writeError(out, "bad json")
				continue
			}

			switch env.Event {
			case event.NameJoinRoom:
				var d event.RoomData
				if err := json.Unmarshal(env.Data, &d); err != nil || d.SessionID == "" {
					writeError(out, "bad join payload")
					continue
				}
				s, err := store.Get(r.Context(), d.SessionID)
				if err != nil {
					writeError(out, "session not found")
					continue
				}
				if !s.IsActive {
					writeError(out, "session ended")
					continue
				}
				if !s.HasParticipant(userID) {
					writeError(out, "not a participant")
					continue
				}
				if err := client.Join(d.SessionID); err != nil {
					writeError(out, "join failed")
					continue
				}
				if err := client.Subscribe(d.SessionID, push); err != nil {
					writeError(out, "join failed")
					continue
				}
				pushState(out, s)

			case event.NameLeaveRoom:
				var d event.RoomData
				if err := json.Unmarshal(env.Data, &d); err != nil {
					writeError(out, "bad leave payload")
					continue
				}
				_ = client.Leave(d.SessionID)

			default:
				msg, err := event.Decode(env)
				if err != nil {
					writeError(out, "unknown event")
					continue
				}
				sid := client.CurrentSession()
				if sid == "" {
					// Sync errors degrade silently; the sender just is
					// not in a room yet.
					log.Debug("dropping event from roomless connection",
						zap.String("client_id", clientID), zap.String("event", env.Event))
					continue
				}
				msg.SessionID = sid
				if msg.At.IsZero() {
					msg.At = time.Now()
				}
				if err := client.Broadcast(sid, msg); err != nil && !errors.Is(err, transport.ErrUnavailable) {
					log.Warn("broadcast failed", zap.Error(err))
				}
			}
		}
	}
}

func writeError(out chan []byte, msg string) {
	payload, _ := json.Marshal(map[string]string{"event": "jam:error", "error": msg})
	select {
	case out <- payload:
	default:
	}
}

func pushState(out chan []byte, s *session.Session) {
	data, err := json.Marshal(stateData{
		SessionID:   s.ID,
		CurrentSong: s.CurrentSong,
		Playing:     s.Playing,
		Position:    s.Position,
		LastUpdated: s.LastUpdated.UnixMilli(),
		Queue:       s.Queue,
	})
	if err != nil {
		return
	}
	payload, err := json.Marshal(event.Envelope{Event: event.NameState, Data: data})
	if err != nil {
		return
	}
	select {
	case out <- payload:
	default:
	}
}
