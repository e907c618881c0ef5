// Package clock provides a time abstraction for testability.
package clock

import "time"

// Clock is an interface over the subset of time operations the autoscaler
// needs, allowing tests to control time directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// After waits for the duration to elapse and then sends the current
	// time on the returned channel.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// New returns a Clock backed by real wall-clock time.
func New() Clock {
	return &RealClock{}
}

// Now returns the current time.
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// After waits for the duration to elapse.
func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
