package player

import (
	"errors"
	"sync"
)

// ErrNotReady is returned by Fake.Play before the source has "loaded".
var ErrNotReady = errors.New("player: media not ready")

// Fake is an in-memory Player for tests. Loading is manual: the test
// calls FinishLoad to simulate the media element becoming ready.
type Fake struct {
	mu       sync.Mutex
	url      string
	ready    bool
	playing  bool
	position float64
	duration float64
	onEnded  func()

	loads []string
	seeks []float64
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Load(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
	f.ready = false
	f.playing = false
	f.position = 0
	f.duration = 0
	f.loads = append(f.loads, url)
}

func (f *Fake) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return ErrNotReady
	}
	f.playing = true
	return nil
}

func (f *Fake) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *Fake) Seek(position float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = position
	f.seeks = append(f.seeks, position)
}

func (f *Fake) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *Fake) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *Fake) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *Fake) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *Fake) OnEnded(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnded = fn
}

// FinishLoad marks the pending source ready with the given duration.
func (f *Fake) FinishLoad(duration float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = true
	f.duration = duration
}

// AdvancePosition simulates playback progressing.
func (f *Fake) AdvancePosition(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position += seconds
}

// FireEnded invokes the registered end-of-media callback.
func (f *Fake) FireEnded() {
	f.mu.Lock()
	fn := f.onEnded
	f.playing = false
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Loads returns every URL handed to Load, in order.
func (f *Fake) Loads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loads...)
}

// Seeks returns every position handed to Seek, in order.
func (f *Fake) Seeks() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.seeks...)
}

// CurrentURL returns the most recently loaded source.
func (f *Fake) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}
