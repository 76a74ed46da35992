package transport

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/event"
)

// Client is a per-connection Channel handle. A client is in at most one
// room; joining a new session first tears the old subscription down so
// no events leak across sessions.
type Client struct {
	id  string
	hub *Hub
	log *zap.Logger

	mu        sync.Mutex
	sessionID string
	room      *Room
	handlers  []Handler
}

func NewClient(id string, hub *Hub, log *zap.Logger) *Client {
	return &Client{id: id, hub: hub, log: log}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Join(sessionID string) error {
	c.mu.Lock()
	if c.room != nil && c.sessionID == sessionID {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	// Full teardown before switching rooms.
	_ = c.Leave(c.CurrentSession())

	room := c.hub.Ensure(sessionID)
	outbox := make(chan event.Message, 32)

	c.mu.Lock()
	c.sessionID = sessionID
	c.room = room
	c.mu.Unlock()

	room.Join(c.id, outbox)
	go c.dispatch(outbox)
	return nil
}

func (c *Client) Leave(sessionID string) error {
	c.mu.Lock()
	if c.room == nil || (sessionID != "" && c.sessionID != sessionID) {
		c.mu.Unlock()
		return nil
	}
	room := c.room
	c.room = nil
	c.sessionID = ""
	c.handlers = nil
	c.mu.Unlock()

	room.Leave(c.id)
	return nil
}

func (c *Client) Broadcast(sessionID string, msg event.Message) error {
	c.mu.Lock()
	room := c.room
	joined := c.sessionID == sessionID
	c.mu.Unlock()

	if room == nil || !joined {
		return ErrUnavailable
	}
	msg.SenderID = c.id
	room.Broadcast(c.id, msg)
	return nil
}

func (c *Client) Subscribe(sessionID string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil || c.sessionID != sessionID {
		return ErrUnavailable
	}
	c.handlers = append(c.handlers, h)
	return nil
}

// CurrentSession returns the joined session id, empty if none.
func (c *Client) CurrentSession() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// dispatch runs until the room closes the outbox (leave, slow-drop or
// room shutdown).
func (c *Client) dispatch(outbox <-chan event.Message) {
	for msg := range outbox {
		c.mu.Lock()
		hs := append([]Handler(nil), c.handlers...)
		c.mu.Unlock()
		for _, h := range hs {
			h(msg)
		}
	}
}
