package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/metrics"
)

type hubMsg interface{ isHubMsg() }

type ensureRoom struct {
	SessionID string
	Reply     chan *Room
}

func (ensureRoom) isHubMsg() {}

type getRoom struct {
	SessionID string
	Reply     chan *Room
}

func (getRoom) isHubMsg() {}

type removeRoom struct{ SessionID string }

func (removeRoom) isHubMsg() {}

type shutdownHub struct{}

func (shutdownHub) isHubMsg() {}

type getHubState struct {
	Reply chan HubView
}

func (getHubState) isHubMsg() {}

// HubView is a race-free snapshot for tests and /stats.
type HubView struct {
	NumRooms int
}

// Hub owns one Room per active jam session.
type Hub struct {
	inbox  chan hubMsg
	rooms  map[string]*Room
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan hubMsg, 64),
		rooms:  make(map[string]*Room),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

// Ensure returns the room for sessionID, creating it if needed.
func (h *Hub) Ensure(sessionID string) *Room {
	reply := make(chan *Room, 1)
	h.inbox <- ensureRoom{SessionID: sessionID, Reply: reply}
	return <-reply
}

// Get returns the room for sessionID, or nil.
func (h *Hub) Get(sessionID string) *Room {
	reply := make(chan *Room, 1)
	h.inbox <- getRoom{SessionID: sessionID, Reply: reply}
	return <-reply
}

// Remove shuts down and forgets the session's room.
func (h *Hub) Remove(sessionID string) {
	h.inbox <- removeRoom{SessionID: sessionID}
}

// Shutdown tears down every room.
func (h *Hub) Shutdown() {
	h.inbox <- shutdownHub{}
}

// View returns a snapshot of the hub without data races.
func (h *Hub) View() HubView {
	reply := make(chan HubView, 1)
	h.inbox <- getHubState{Reply: reply}
	return <-reply
}

// Client returns a channel handle bound to this hub for one connection.
func (h *Hub) Client(clientID string) *Client {
	return NewClient(clientID, h, h.log)
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.drop()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case ensureRoom:
				r, ok := h.rooms[msg.SessionID]
				if !ok {
					r = NewRoom(h.ctx, msg.SessionID, h.log)
					h.rooms[msg.SessionID] = r
					metrics.RoomsActive.Inc()
					h.log.Info("room created", zap.String("session_id", msg.SessionID))
				}
				msg.Reply <- r

			case getRoom:
				msg.Reply <- h.rooms[msg.SessionID]

			case removeRoom:
				if r, ok := h.rooms[msg.SessionID]; ok {
					r.Shutdown()
					delete(h.rooms, msg.SessionID)
					metrics.RoomsActive.Dec()
					h.log.Info("room removed", zap.String("session_id", msg.SessionID))
				}

			case getHubState:
				msg.Reply <- HubView{NumRooms: len(h.rooms)}

			case shutdownHub:
				h.drop()
				return
			}
		}
	}
}

func (h *Hub) drop() {
	for id, r := range h.rooms {
		r.Shutdown()
		delete(h.rooms, id)
		metrics.RoomsActive.Dec()
	}
	h.cancel()
}
