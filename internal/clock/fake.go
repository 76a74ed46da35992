package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*fakeTimer
}

type fakeTimer struct {
	id   int
	when time.Time
	fn   func()
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start, timers: make(map[int]*fakeTimer)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := &fakeTimer{id: f.nextID, when: f.now.Add(d), fn: fn}
	f.timers[t.id] = t
	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		_, armed := f.timers[t.id]
		delete(f.timers, t.id)
		return armed
	}
}

// Advance moves the clock forward and fires every timer that comes due,
// in deadline order. Timers armed by fired callbacks also run if they
// fall inside the window.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var due []*fakeTimer
		for _, t := range f.timers {
			if !t.when.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			f.now = target
			f.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
		next := due[0]
		delete(f.timers, next.id)
		f.now = next.when
		f.mu.Unlock()

		next.fn()
	}
}
