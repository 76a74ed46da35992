package transport

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/event"
)

func TestHubEnsureReturnsSameRoom(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	defer h.Shutdown()

	r1 := h.Ensure("s1")
	r2 := h.Ensure("s1")
	if r1 == nil || r1 != r2 {
		t.Fatalf("expected same room pointer")
	}
	if h.Get("other") != nil {
		t.Fatalf("unknown session should have no room")
	}
}

func TestHubRemoveShutsRoomDown(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	defer h.Shutdown()

	r := h.Ensure("s1")
	out := make(chan event.Message, 1)
	r.Join("p1", out)

	h.Remove("s1")

	select {
	case _, ok := <-out:
		if ok {
			t.Fatalf("expected closed outbox after room removal")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("room member not released on removal")
	}
	if h.View().NumRooms != 0 {
		t.Fatalf("room still registered")
	}
}

func TestClientJoinBroadcastSubscribe(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	defer h.Shutdown()

	host := h.Client("host")
	p1 := h.Client("p1")

	if err := host.Join("s1"); err != nil {
		t.Fatal(err)
	}
	if err := p1.Join("s1"); err != nil {
		t.Fatal(err)
	}

	got := make(chan event.Message, 4)
	if err := p1.Subscribe("s1", func(m event.Message) { got <- m }); err != nil {
		t.Fatal(err)
	}

	if err := host.Broadcast("s1", event.Message{SessionID: "s1", Event: event.Pause{Position: 3}}); err != nil {
		t.Fatal(err)
	}

	msg := recvMsg(t, got, 200*time.Millisecond)
	if msg.SenderID != "host" {
		t.Fatalf("want sender stamped, got %q", msg.SenderID)
	}
	if _, ok := msg.Event.(event.Pause); !ok {
		t.Fatalf("want Pause, got %T", msg.Event)
	}
}

func TestClientBroadcastWithoutJoinIsUnavailable(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	defer h.Shutdown()

	c := h.Client("c1")
	err := c.Broadcast("s1", event.Message{SessionID: "s1", Event: event.Seek{Position: 9}})
	if err != ErrUnavailable {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
}

func TestClientSwitchingSessionsTearsDownOldSubscription(t *testing.T) {
	h := NewHub(context.Background(), zap.NewNop())
	defer h.Shutdown()

	sender := h.Client("sender")
	c := h.Client("c1")
	if err := c.Join("s1"); err != nil {
		t.Fatal(err)
	}
	got := make(chan event.Message, 4)
	if err := c.Subscribe("s1", func(m event.Message) { got <- m }); err != nil {
		t.Fatal(err)
	}

	if err := c.Join("s2"); err != nil {
		t.Fatal(err)
	}
	if c.CurrentSession() != "s2" {
		t.Fatalf("expected client in s2")
	}

	// Old room must no longer deliver to the switched client.
	if err := sender.Join("s1"); err != nil {
		t.Fatal(err)
	}
	if err := sender.Broadcast("s1", event.Message{SessionID: "s1", Event: event.Seek{Position: 1}}); err != nil {
		t.Fatal(err)
	}
	recvNoMsg(t, got, 100*time.Millisecond)
}
