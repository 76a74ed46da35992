package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/metrics"
)

type roomMsg interface{ isRoomMsg() }

type joinRoom struct {
	ClientID string
	Outbox   chan event.Message
}

func (joinRoom) isRoomMsg() {}

type leaveRoom struct{ ClientID string }

func (leaveRoom) isRoomMsg() {}

type broadcastMsg struct {
	SenderID string
	Msg      event.Message
}

func (broadcastMsg) isRoomMsg() {}

type shutdownRoom struct{}

func (shutdownRoom) isRoomMsg() {}

type getRoomState struct {
	Reply chan RoomView
}

func (getRoomState) isRoomMsg() {}

// RoomView is a race-free snapshot of room internals for tests and /stats.
type RoomView struct {
	SessionID  string
	NumClients int
}

// Room fans messages out to every member except the sender. One Room per
// jam session; all coordination goes through the inbox, no shared state.
type Room struct {
	sessionID string
	inbox     chan roomMsg
	members   map[string]chan event.Message
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewRoom(parent context.Context, sessionID string, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		sessionID: sessionID,
		inbox:     make(chan roomMsg, 64),
		members:   make(map[string]chan event.Message),
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
	go r.loop()
	return r
}

// Join registers a member outbox.
func (r *Room) Join(clientID string, outbox chan event.Message) {
	r.inbox <- joinRoom{ClientID: clientID, Outbox: outbox}
}

// Leave unregisters a member and closes its outbox.
func (r *Room) Leave(clientID string) {
	r.inbox <- leaveRoom{ClientID: clientID}
}

// Broadcast queues msg for delivery to everyone except senderID.
func (r *Room) Broadcast(senderID string, msg event.Message) {
	r.inbox <- broadcastMsg{SenderID: senderID, Msg: msg}
}

// Shutdown closes all member outboxes and stops the loop.
func (r *Room) Shutdown() {
	r.inbox <- shutdownRoom{}
}

// View returns a snapshot of the room without data races.
func (r *Room) View() RoomView {
	reply := make(chan RoomView, 1)
	r.inbox <- getRoomState{Reply: reply}
	return <-reply
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.drop()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case joinRoom:
				if old, ok := r.members[msg.ClientID]; ok {
					close(old)
				}
				r.members[msg.ClientID] = msg.Outbox
				metrics.ClientsConnected.Inc()

			case leaveRoom:
				if out, ok := r.members[msg.ClientID]; ok {
					close(out)
					delete(r.members, msg.ClientID)
					metrics.ClientsConnected.Dec()
				}

			case broadcastMsg:
				r.fanout(msg.SenderID, msg.Msg)

			case getRoomState:
				msg.Reply <- RoomView{SessionID: r.sessionID, NumClients: len(r.members)}

			case shutdownRoom:
				r.drop()
				return
			}
		}
	}
}

func (r *Room) fanout(senderID string, msg event.Message) {
	metrics.EventsBroadcast.WithLabelValues(eventName(msg)).Inc()
	for id, out := range r.members {
		if id == senderID {
			continue
		}
		select {
		case out <- msg:
		default:
			// Slow consumer: at-most-once means we drop them, not block
			// the room.
			close(out)
			delete(r.members, id)
			metrics.ClientsConnected.Dec()
			r.log.Warn("dropping slow room member",
				zap.String("session_id", r.sessionID),
				zap.String("client_id", id))
		}
	}
}

func (r *Room) drop() {
	for id, out := range r.members {
		close(out)
		delete(r.members, id)
		metrics.ClientsConnected.Dec()
	}
	r.cancel()
}

func eventName(msg event.Message) string {
	switch msg.Event.(type) {
	case event.Play:
		return event.NamePlay
	case event.Pause:
		return event.NamePause
	case event.Seek:
		return event.NameSeek
	case event.SongChange:
		return event.NameSongChange
	case event.ParticipantJoined:
		return event.NameParticipantJoined
	case event.ParticipantLeft:
		return event.NameParticipantLeft
	case event.QueueUpdated:
		return event.NameQueueUpdated
	}
	return "unknown"
}
