package participant

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunelink/jamsync/internal/catalog"
	"github.com/tunelink/jamsync/internal/clock"
	"github.com/tunelink/jamsync/internal/event"
	"github.com/tunelink/jamsync/internal/player"
	"github.com/tunelink/jamsync/internal/queue"
)

// State is the engine's position in the per-song lifecycle.
type State int

const (
	Idle State = iota
	Loading
	Syncing
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Syncing:
		return "syncing"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

const (
	// DriftThreshold is the core tunable of the whole sync design.
	// Sub-second drift is deliberately ignored: correcting it causes
	// audible stutter worse than the drift itself.
	DriftThreshold = 1.0 // seconds

	loadPollInterval = 100 * time.Millisecond
)

// Engine reconciles host transport events against the local media
// element. It runs on every non-host participant; the host never
// reconciles against its own broadcasts. Sync failures degrade silently
// into temporary drift, never into user-visible errors — the host's
// periodic rebroadcast is the self-healing mechanism.
type Engine struct {
	log     *zap.Logger
	clk     clock.Clock
	player  player.Player
	catalog catalog.Resolver

	sessionID string

	mu          sync.Mutex
	queue       queue.Local
	state       State
	currentSong string
	pendingPos  float64
	pendingPlay bool
	lastSeq     uint64

	poll *clock.Deferred
}

// Options carries the collaborators an Engine needs.
type Options struct {
	Log     *zap.Logger
	Clock   clock.Clock
	Player  player.Player
	Catalog catalog.Resolver
	Queue   queue.Local
}

func NewEngine(sessionID string, opts Options) *Engine {
	return &Engine{
		log:       opts.Log,
		clk:       opts.Clock,
		player:    opts.Player,
		catalog:   opts.Catalog,
		queue:     opts.Queue,
		sessionID: sessionID,
		state:     Idle,
		poll:      clock.NewDeferred(opts.Clock),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentSong returns the ref the engine is tracking, empty when idle.
func (e *Engine) CurrentSong() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentSong
}

// SetQueue replaces the local queue projection.
func (e *Engine) SetQueue(q queue.Local) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = q
}

// Close cancels the load poller. Call on session leave.
func (e *Engine) Close() {
	e.poll.Cancel()
}

// HandleEvent is the single entry point for everything arriving from the
// transport channel.
func (e *Engine) HandleEvent(msg event.Message) {
	if msg.SessionID != "" && msg.SessionID != e.sessionID {
		return
	}

	if msg.IsTransport() && msg.Seq != 0 {
		e.mu.Lock()
		if msg.Seq <= e.lastSeq {
			e.mu.Unlock()
			e.log.Debug("dropping stale transport event",
				zap.Uint64("seq", msg.Seq), zap.Uint64("last_seq", e.lastSeq))
			return
		}
		e.lastSeq = msg.Seq
		e.mu.Unlock()
	}

	switch ev := msg.Event.(type) {
	case event.SongChange:
		e.handleSongChange(ev)
	case event.Play:
		e.handlePlay(ev)
	case event.Pause:
		e.handlePause(ev)
	case event.Seek:
		e.handleSeek(ev)
	case event.QueueUpdated:
		e.SetQueue(queue.FromRefs(ev.Queue))
	}
}

// handleSongChange starts loading the referenced song without
// auto-playing. A change to the song already current is a no-op.
func (e *Engine) handleSongChange(ev event.SongChange) {
	e.mu.Lock()
	same := e.currentSong == ev.SongRef
	e.mu.Unlock()
	if same {
		return
	}
	e.beginLoad(ev.SongRef, 0, false)
}

func (e *Engine) handlePlay(ev event.Play) {
	if ev.SongRef == "" {
		// A play frame with no song would match an idle engine's empty
		// currentSong and spin the load poll with nothing to load.
		e.log.Warn("dropping play event with empty song ref",
			zap.String("session_id", e.sessionID))
		return
	}

	e.mu.Lock()
	sameSong := e.currentSong == ev.SongRef
	state := e.state

	if !sameSong {
		e.mu.Unlock()
		// Play can outrun SongChange across senders and receivers, so it
		// doubles as an implicit change+load.
		e.beginLoad(ev.SongRef, ev.Position, true)
		return
	}

	switch state {
	case Loading, Syncing:
		// Media not aligned yet: retain the newest target so playback
		// lands at the host position, not at zero, once load completes.
		e.pendingPos = ev.Position
		e.pendingPlay = true
		e.mu.Unlock()

	case Idle, Paused:
		if !e.player.Ready() {
			e.state = Loading
			e.pendingPos = ev.Position
			e.pendingPlay = true
			e.mu.Unlock()
			e.schedulePoll()
			return
		}
		if math.Abs(e.player.Position()-ev.Position) > DriftThreshold {
			e.player.Seek(ev.Position)
		}
		if err := e.player.Play(); err != nil {
			e.state = Loading
			e.pendingPos = ev.Position
			e.pendingPlay = true
			e.mu.Unlock()
			e.schedulePoll()
			return
		}
		e.state = Playing
		e.mu.Unlock()

	case Playing:
		drift := math.Abs(e.player.Position() - ev.Position)
		e.mu.Unlock()
		if drift > DriftThreshold {
			e.player.Seek(ev.Position)
		}
	}
}

// handlePause pauses immediately. The carried position is informational
// only: the local pause already freezes position, force-applying it
// would just add a stutter.
func (e *Engine) handlePause(event.Pause) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pendingPlay = false
	switch e.state {
	case Playing, Syncing:
		e.player.Pause()
		e.state = Paused
	case Loading:
		// Keep loading, just don't auto-play when it finishes.
	}
}

// handleSeek applies regardless of play state. A seek that lands during
// load updates the pending target instead.
func (e *Engine) handleSeek(ev event.Seek) {
	e.mu.Lock()
	if e.state == Loading {
		e.pendingPos = ev.Position
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.player.Seek(ev.Position)
}

// beginLoad transitions to Loading for a new song. Events referencing a
// song outside the local projection are dropped with a warning: this is
// accepted-lossy, the next queue_updated plus rebroadcast will recover.
func (e *Engine) beginLoad(songRef string, position float64, autoplay bool) {
	e.mu.Lock()
	if _, ok := e.queue.Lookup(songRef); !ok {
		e.mu.Unlock()
		e.log.Warn("event references song outside local queue, dropping",
			zap.String("song_ref", songRef), zap.String("session_id", e.sessionID))
		return
	}
	e.mu.Unlock()

	song, err := e.catalog.Resolve(context.Background(), songRef)
	if err != nil {
		e.log.Warn("cannot resolve song, dropping event",
			zap.String("song_ref", songRef), zap.Error(err))
		return
	}

	e.mu.Lock()
	e.currentSong = songRef
	e.state = Loading
	e.pendingPos = position
	e.pendingPlay = autoplay
	e.mu.Unlock()

	e.player.Load(song.URL)
	e.schedulePoll()
}

// schedulePoll arms the non-blocking wait for media readiness. Readiness
// is externally driven (network fetch), so this is poll-and-reschedule,
// never a blocking wait.
func (e *Engine) schedulePoll() {
	e.poll.Schedule(loadPollInterval, e.checkReady)
}

func (e *Engine) checkReady() {
	e.mu.Lock()
	if e.state != Loading {
		e.mu.Unlock()
		return
	}
	if !e.player.Ready() {
		e.mu.Unlock()
		e.schedulePoll()
		return
	}

	// Loading → Syncing: align position, then honor the retained intent.
	e.state = Syncing
	pos := e.pendingPos
	play := e.pendingPlay
	e.mu.Unlock()

	if math.Abs(e.player.Position()-pos) > DriftThreshold {
		e.player.Seek(pos)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Syncing {
		// A newer event superseded us while seeking.
		return
	}
	if !play || !e.pendingPlay {
		e.state = Paused
		return
	}
	if err := e.player.Play(); err != nil {
		e.log.Warn("play on ready media failed, retrying", zap.Error(err))
		e.state = Loading
		e.schedulePollLocked()
		return
	}
	e.state = Playing
}

func (e *Engine) schedulePollLocked() {
	// Deferred has its own lock; safe to arm while holding e.mu.
	e.poll.Schedule(loadPollInterval, e.checkReady)
}
