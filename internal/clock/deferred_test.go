package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDeferredFiresAfterDelay(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	df := NewDeferred(clk)

	var fired atomic.Int32
	df.Schedule(time.Second, func() { fired.Add(1) })

	clk.Advance(500 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("fired early")
	}
	clk.Advance(600 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("want 1 fire, got %d", fired.Load())
	}
}

func TestDeferredCancelPreventsFire(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	df := NewDeferred(clk)

	var fired atomic.Int32
	df.Schedule(time.Second, func() { fired.Add(1) })
	df.Cancel()

	clk.Advance(2 * time.Second)
	if fired.Load() != 0 {
		t.Fatalf("cancelled action fired")
	}
	if df.Pending() {
		t.Fatalf("still pending after cancel")
	}
}

func TestDeferredRescheduleDropsStaleFire(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))
	df := NewDeferred(clk)

	var first, second atomic.Int32
	df.Schedule(time.Second, func() { first.Add(1) })
	df.Schedule(3*time.Second, func() { second.Add(1) })

	clk.Advance(2 * time.Second)
	if first.Load() != 0 {
		t.Fatalf("superseded action fired")
	}
	clk.Advance(2 * time.Second)
	if second.Load() != 1 {
		t.Fatalf("want replacement to fire once, got %d", second.Load())
	}
}

func TestFakeClockAdvanceRunsChainedTimers(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var count atomic.Int32
	var tick func()
	tick = func() {
		if count.Add(1) < 3 {
			clk.AfterFunc(100*time.Millisecond, tick)
		}
	}
	clk.AfterFunc(100*time.Millisecond, tick)

	clk.Advance(time.Second)
	if count.Load() != 3 {
		t.Fatalf("want 3 chained fires, got %d", count.Load())
	}
}
