package host

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/player"
	"github.com/tunelink/jamsync/internal/queue"
	"github.com/tunelink/jamsync/internal/session"
	"github.com/tunelink/jamsync/internal/transport"
)

const (
	// RebroadcastInterval is how often a playing host re-announces its
	// position so drifted participants self-heal without user action.
	RebroadcastInterval = 500 * time.Millisecond

	// ResumeGrace is how long the host holds its own resume after
	// emitting SongChange+Play, giving slower participants time to start
	// loading before the authoritative position advances. It bounds
	// steady-state drift, it does not eliminate it.
	ResumeGrace = time.Second

	readyRetry = 100 * time.Millisecond
)

// Controller owns the authoritative playback clock for a session. Every
// local transport intent becomes a broadcast; the channel being down is
// never an error here, local playback must keep working.
type Controller struct {
	log     *zap.Logger
	clk     clock.Clock
	ch      transport.Channel // nil when not connected to a room
	player  player.Player
	store   session.Store // nil disables snapshot writes
	catalog catalog.Resolver

	sessionID string

	mu          sync.Mutex
	queue       queue.Local
	index       int
	currentSong string
	seq         uint64
	wantPlaying bool

	resume      *clock.Deferred
	rebroadcast *clock.Deferred
}

// Options carries the collaborators a Controller needs.
type Options struct {
	Log     *zap.Logger
	Clock   clock.Clock
	Channel transport.Channel
	Player  player.Player
	Store   session.Store
	Catalog catalog.Resolver
}

func NewController(sessionID string, opts Options) *Controller {
	c := &Controller{
		log:         opts.Log,
		clk:         opts.Clock,
		ch:          opts.Channel,
		player:      opts.Player,
		store:       opts.Store,
		catalog:     opts.Catalog,
		sessionID:   sessionID,
		index:       -1,
		resume:      clock.NewDeferred(opts.Clock),
		rebroadcast: clock.NewDeferred(opts.Clock),
	}
	c.player.OnEnded(c.onEnded)
	return c
}

// SetQueue replaces the local queue projection.
func (c *Controller) SetQueue(q queue.Local) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = q
	if c.currentSong != "" {
		if i, ok := q.Lookup(c.currentSong); ok {
			c.index = i
		}
	}
}

// Play resumes (or starts) playback of the current song, or the first
// queued song when nothing is loaded. SongChange goes out before Play so
// participants are guaranteed to know the track, then the local resume
// waits out the grace period.
func (c *Controller) Play() {
	c.mu.Lock()
	song := c.currentSong
	if song == "" {
		ref, ok := c.queue.At(0)
		if !ok {
			c.mu.Unlock()
			c.log.Debug("play with empty queue, nothing to do")
			return
		}
		song = ref
		c.index = 0
	}
	loaded := c.currentSong == song
	c.currentSong = song
	c.wantPlaying = true
	pos := 0.0
	if loaded {
		pos = c.player.Position()
	}
	c.mu.Unlock()

	if !loaded {
		c.loadLocal(song)
	}

	c.emit(event.SongChange{SongRef: song})
	c.emit(event.Play{SongRef: song, Position: pos})
	c.snapshot(&song, &pos, boolPtr(true))

	c.resume.Schedule(ResumeGrace, c.tryResume)
	c.scheduleRebroadcast()
}

// Pause stops playback immediately. No grace period: there is no load
// race to lose on the participant side.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.wantPlaying = false
	song := c.currentSong
	c.mu.Unlock()

	c.resume.Cancel()
	c.rebroadcast.Cancel()

	pos := c.player.Position()
	c.emit(event.Pause{Position: pos})
	c.player.Pause()
	c.snapshot(&song, &pos, boolPtr(false))
}

// Seek moves the local position and tells the room.
func (c *Controller) Seek(position float64) {
	c.player.Seek(position)
	c.emit(event.Seek{Position: position})

	c.mu.Lock()
	song := c.currentSong
	c.mu.Unlock()
	c.snapshot(&song, &position, nil)
}

// Next advances to the following queued song. At the end of the queue
// playback simply stops.
func (c *Controller) Next() {
	c.mu.Lock()
	next, ok := c.queue.At(c.index + 1)
	if !ok {
		c.wantPlaying = false
		c.mu.Unlock()
		c.resume.Cancel()
		c.rebroadcast.Cancel()
		c.player.Pause()
		c.snapshot(nil, nil, boolPtr(false))
		c.log.Info("queue exhausted", zap.String("session_id", c.sessionID))
		return
	}
	c.index++
	c.currentSong = next
	c.wantPlaying = true
	c.mu.Unlock()

	c.loadLocal(next)

	zero := 0.0
	c.emit(event.SongChange{SongRef: next})
	c.emit(event.Play{SongRef: next, Position: 0})
	c.snapshot(&next, &zero, boolPtr(true))

	c.resume.Schedule(ResumeGrace, c.tryResume)
	c.scheduleRebroadcast()
}

// Close cancels pending timers. It does not touch the player.
func (c *Controller) Close() {
	c.resume.Cancel()
	c.rebroadcast.Cancel()
}

// CurrentSong returns the song the host considers loaded.
func (c *Controller) CurrentSong() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSong
}

func (c *Controller) onEnded() {
	c.Next()
}

// tryResume fires after the grace period. A pause that landed in between
// wins: the intent is rechecked, never assumed.
func (c *Controller) tryResume() {
	c.mu.Lock()
	want := c.wantPlaying
	c.mu.Unlock()
	if !want {
		return
	}
	if !c.player.Ready() {
		c.resume.Schedule(readyRetry, c.tryResume)
		return
	}
	if err := c.player.Play(); err != nil {
		c.log.Warn("local resume failed", zap.Error(err))
	}
}

func (c *Controller) scheduleRebroadcast() {
	c.rebroadcast.Schedule(RebroadcastInterval, func() {
		c.mu.Lock()
		want := c.wantPlaying
		song := c.currentSong
		c.mu.Unlock()
		if !want || song == "" {
			return
		}
		if c.player.Playing() {
			c.emit(event.Play{SongRef: song, Position: c.player.Position()})
		}
		c.scheduleRebroadcast()
	})
}

func (c *Controller) loadLocal(songRef string) {
	song, err := c.catalog.Resolve(context.Background(), songRef)
	if err != nil {
		c.log.Warn("cannot resolve song for local load",
			zap.String("song_ref", songRef), zap.Error(err))
		return
	}
	c.player.Load(song.URL)
}

// emit broadcasts one transport event with the next sequence number.
// An unavailable channel downgrades to a logged no-op.
func (c *Controller) emit(ev event.Event) {
	c.mu.Lock()
	c.seq++
	msg := event.Message{
		SessionID: c.sessionID,
		Seq:       c.seq,
		At:        c.clk.Now(),
		Event:     ev,
	}
	ch := c.ch
	c.mu.Unlock()

	if ch == nil {
		c.log.Debug("transport channel not connected, skipping broadcast")
		return
	}
	if err := ch.Broadcast(c.sessionID, msg); err != nil {
		c.log.Debug("broadcast skipped", zap.Error(err))
	}
}

// snapshot is the coarse best-effort store write used only for late
// joiner bootstrap. Failures are logged and swallowed.
func (c *Controller) snapshot(song *string, pos *float64, playing *bool) {
	if c.store == nil {
		return
	}
	upd := session.TransportUpdate{CurrentSong: song, Position: pos, Playing: playing}
	if err := c.store.UpdateTransportState(context.Background(), c.sessionID, upd); err != nil {
		c.log.Debug("transport snapshot write failed", zap.Error(err))
	}
}

func boolPtr(b bool) *bool { return &b }
