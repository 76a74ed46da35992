package clock

import (
	"sync"
	"time"
)

// Deferred is a single-slot scheduled action. Scheduling supersedes any
// pending action, and a fire that lost the race against Cancel or a
// re-Schedule never runs its callback. This is the guard against the
// stale-timer bug class: callbacks only execute for the generation that
// armed them.
type Deferred struct {
	clk Clock

	mu   sync.Mutex
	gen  uint64
	stop func() bool
}

func NewDeferred(clk Clock) *Deferred {
	return &Deferred{clk: clk}
}

// Schedule arms fn to run after d, replacing any pending action.
func (df *Deferred) Schedule(d time.Duration, fn func()) {
	df.mu.Lock()
	defer df.mu.Unlock()

	if df.stop != nil {
		df.stop()
	}
	df.gen++
	gen := df.gen
	df.stop = df.clk.AfterFunc(d, func() {
		df.mu.Lock()
		stale := df.gen != gen
		if !stale {
			df.stop = nil
		}
		df.mu.Unlock()
		if stale {
			return
		}
		fn()
	})
}

// Cancel drops any pending action.
func (df *Deferred) Cancel() {
	df.mu.Lock()
	defer df.mu.Unlock()
	if df.stop != nil {
		df.stop()
		df.stop = nil
	}
	df.gen++
}

// Pending reports whether an action is armed and has not fired.
func (df *Deferred) Pending() bool {
	df.mu.Lock()
	defer df.mu.Unlock()
	return df.stop != nil
}
