package event

import (
	"encoding/json"
	"fmt"
	"time"
)

// Wire event names. These shapes round-trip between host and participants
// and must not change without versioning the client.
const (
	NamePlay              = "jam:play"
	NamePause             = "jam:pause"
	NameSeek              = "jam:seek"
	NameSongChange        = "jam:song_change"
	NameParticipantJoined = "jam:participant_joined"
	NameParticipantLeft   = "jam:participant_left"
	NameQueueUpdated      = "jam:queue_updated"
	NameState             = "jam:state"
	NameJoinRoom          = "join:jam"
	NameLeaveRoom         = "leave:jam"
)

// Envelope is the outer frame for every message on the realtime channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type playData struct {
	SongRef   string  `json:"songRef"`
	Position  float64 `json:"position"`
	SessionID string  `json:"sessionId,omitempty"`
	Seq       uint64  `json:"seq,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

type positionData struct {
	Position  float64 `json:"position"`
	SessionID string  `json:"sessionId,omitempty"`
	Seq       uint64  `json:"seq,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

type songChangeData struct {
	SongRef   string `json:"songRef"`
	SessionID string `json:"sessionId,omitempty"`
	Seq       uint64 `json:"seq,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type participantData struct {
	UserID    string `json:"user"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type queueData struct {
	Queue     []string `json:"queue"`
	SessionID string   `json:"sessionId,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// RoomData is the payload of join:jam / leave:jam frames.
type RoomData struct {
	SessionID string `json:"sessionId"`
}

// Marshal encodes a Message into its wire envelope.
func Marshal(m Message) ([]byte, error) {
	var (
		name string
		data any
	)
	ts := m.At.UnixMilli()
	if m.At.IsZero() {
		ts = 0
	}

	switch ev := m.Event.(type) {
	case Play:
		name = NamePlay
		data = playData{SongRef: ev.SongRef, Position: ev.Position, SessionID: m.SessionID, Seq: m.Seq, Timestamp: ts}
	case Pause:
		name = NamePause
		data = positionData{Position: ev.Position, SessionID: m.SessionID, Seq: m.Seq, Timestamp: ts}
	case Seek:
		name = NameSeek
		data = positionData{Position: ev.Position, SessionID: m.SessionID, Seq: m.Seq, Timestamp: ts}
	case SongChange:
		name = NameSongChange
		data = songChangeData{SongRef: ev.SongRef, SessionID: m.SessionID, Seq: m.Seq, Timestamp: ts}
	case ParticipantJoined:
		name = NameParticipantJoined
		data = participantData{UserID: ev.UserID, SessionID: m.SessionID, Timestamp: ts}
	case ParticipantLeft:
		name = NameParticipantLeft
		data = participantData{UserID: ev.UserID, SessionID: m.SessionID, Timestamp: ts}
	case QueueUpdated:
		name = NameQueueUpdated
		data = queueData{Queue: ev.Queue, SessionID: m.SessionID, Timestamp: ts}
	default:
		return nil, fmt.Errorf("event: cannot marshal %T", m.Event)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: raw})
}

// Unmarshal decodes a wire envelope back into a Message. Unknown event
// names are an error so callers can log and drop them.
func Unmarshal(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Message{}, err
	}
	return Decode(env)
}

// Decode converts an already-parsed envelope into a Message.
func Decode(env Envelope) (Message, error) {
	switch env.Event {
	case NamePlay:
		var d playData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, Seq: d.Seq, At: fromMillis(d.Timestamp), Event: Play{SongRef: d.SongRef, Position: d.Position}}, nil
	case NamePause:
		var d positionData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, Seq: d.Seq, At: fromMillis(d.Timestamp), Event: Pause{Position: d.Position}}, nil
	case NameSeek:
		var d positionData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, Seq: d.Seq, At: fromMillis(d.Timestamp), Event: Seek{Position: d.Position}}, nil
	case NameSongChange:
		var d songChangeData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, Seq: d.Seq, At: fromMillis(d.Timestamp), Event: SongChange{SongRef: d.SongRef}}, nil
	case NameParticipantJoined:
		var d participantData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, At: fromMillis(d.Timestamp), Event: ParticipantJoined{UserID: d.UserID}}, nil
	case NameParticipantLeft:
		var d participantData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, At: fromMillis(d.Timestamp), Event: ParticipantLeft{UserID: d.UserID}}, nil
	case NameQueueUpdated:
		var d queueData
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return Message{}, err
		}
		return Message{SessionID: d.SessionID, At: fromMillis(d.Timestamp), Event: QueueUpdated{Queue: d.Queue}}, nil
	default:
		return Message{}, fmt.Errorf("event: unknown event %q", env.Event)
	}
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
