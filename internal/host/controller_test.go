package host

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/player"
	"github.com/tunelink/jamsync/internal/queue"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

// captureChannel records broadcasts instead of delivering them.
type captureChannel struct {
	mu   sync.Mutex
	sent []event.Message
	down bool
}

func (c *captureChannel) Join(string) error  { return nil }
func (c *captureChannel) Leave(string) error { return nil }
func (c *captureChannel) Subscribe(string, transport.Handler) error {
	return nil
}

func (c *captureChannel) Broadcast(_ string, msg event.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return transport.ErrUnavailable
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureChannel) messages() []event.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Message(nil), c.sent...)
}

func testCatalog() *catalog.Static {
	return catalog.NewStatic(
		catalog.Song{Ref: "song-a", URL: "https://cdn.test/a.mp3", Duration: 180},
		catalog.Song{Ref: "song-b", URL: "https://cdn.test/b.mp3", Duration: 200},
	)
}

func newController(t *testing.T, ch transport.Channel) (*Controller, *player.Fake, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Unix(1700000000, 0))
	pl := player.NewFake()
	c := NewController("s1", Options{
		Log:     zap.NewNop(),
		Clock:   clk,
		Channel: ch,
		Player:  pl,
		Catalog: testCatalog(),
	})
	c.SetQueue(queue.Project(&session.Session{Queue: []string{"song-a", "song-b"}}))
	return c, pl, clk
}

func TestPlayEmitsSongChangeBeforePlay(t *testing.T) {
	ch := &captureChannel{}
	c, _, _ := newController(t, ch)

	c.Play()

	msgs := ch.messages()
	require.Len(t, msgs, 2)
	require.IsType(t, event.SongChange{}, msgs[0].Event)
	require.IsType(t, event.Play{}, msgs[1].Event)
	require.Equal(t, "song-a", msgs[0].Event.(event.SongChange).SongRef)
	require.Equal(t, 0.0, msgs[1].Event.(event.Play).Position)
	require.Less(t, msgs[0].Seq, msgs[1].Seq)
}

func TestPlayDelaysLocalResumeByGracePeriod(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	require.False(t, pl.Playing(), "host must not play before the grace period")

	clk.Advance(ResumeGrace / 2)
	require.False(t, pl.Playing())

	clk.Advance(ResumeGrace)
	require.True(t, pl.Playing())
}

func TestPauseDuringGraceCancelsResume(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	c.Pause()

	clk.Advance(5 * time.Second)
	require.False(t, pl.Playing(), "stale resume timer must not fire after pause")

	msgs := ch.messages()
	last := msgs[len(msgs)-1]
	require.IsType(t, event.Pause{}, last.Event)
}

func TestResumeWaitsForLocalMediaReady(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	clk.Advance(ResumeGrace) // fires, media not ready, reschedules
	require.False(t, pl.Playing())

	pl.FinishLoad(180)
	clk.Advance(time.Second)
	require.True(t, pl.Playing())
}

func TestPeriodicRebroadcastWhilePlaying(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	clk.Advance(ResumeGrace)
	require.True(t, pl.Playing())

	before := len(ch.messages())
	pl.AdvancePosition(2)
	clk.Advance(3 * RebroadcastInterval)

	var plays int
	for _, m := range ch.messages()[before:] {
		if p, ok := m.Event.(event.Play); ok {
			plays++
			require.Equal(t, "song-a", p.SongRef)
		}
	}
	require.GreaterOrEqual(t, plays, 2, "expected periodic position snapshots")
}

func TestRebroadcastStopsAfterPause(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	clk.Advance(ResumeGrace)
	c.Pause()

	before := len(ch.messages())
	clk.Advance(5 * RebroadcastInterval)
	require.Equal(t, before, len(ch.messages()))
}

func TestNilChannelIsASafeNoOp(t *testing.T) {
	c, pl, clk := newController(t, nil)

	c.Play() // must not panic
	pl.FinishLoad(180)
	clk.Advance(ResumeGrace)
	require.True(t, pl.Playing(), "local playback works without room connectivity")
}

func TestNextAdvancesQueueAndRestartsAtZero(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	clk.Advance(ResumeGrace)

	c.Next()
	require.Equal(t, "song-b", c.CurrentSong())
	require.Equal(t, "https://cdn.test/b.mp3", pl.CurrentURL())

	msgs := ch.messages()
	require.IsType(t, event.Play{}, msgs[len(msgs)-1].Event)
	require.Equal(t, 0.0, msgs[len(msgs)-1].Event.(event.Play).Position)
	require.IsType(t, event.SongChange{}, msgs[len(msgs)-2].Event)
	require.Equal(t, "song-b", msgs[len(msgs)-2].Event.(event.SongChange).SongRef)
}

func TestEndedMediaAdvancesQueue(t *testing.T) {
	ch := &captureChannel{}
	c, pl, clk := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	clk.Advance(ResumeGrace)

	pl.FireEnded()
	require.Equal(t, "song-b", c.CurrentSong())

	// End of queue: one more ended stops playback quietly.
	pl.FinishLoad(200)
	clk.Advance(ResumeGrace)
	pl.FireEnded()
	require.Equal(t, "song-b", c.CurrentSong())
	require.False(t, pl.Playing())
}

func TestSequenceNumbersAreMonotonic(t *testing.T) {
	ch := &captureChannel{}
	c, pl, _ := newController(t, ch)

	c.Play()
	pl.FinishLoad(180)
	c.Seek(30)
	c.Pause()

	msgs := ch.messages()
	for i := 1; i < len(msgs); i++ {
		require.Greater(t, msgs[i].Seq, msgs[i-1].Seq)
	}
}
