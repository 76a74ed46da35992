package clock

import "time"

// Clock abstracts time so the sync engines can be driven by a fake
// clock in tests.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run after d. The returned stop function
	// prevents the call if it has not fired yet.
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

// Real is the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, fn func()) func() bool {
	t := time.AfterFunc(d, fn)
	return t.Stop
}
