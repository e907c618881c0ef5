package policy

import (
	"time"

	"github.com/Atharva0045/cloud-autoscaler/pkg/clock"
)

// CooldownTracker records when the last scaling action was committed and
// reports how much of the cooldown window remains. It is written only by
// the single cycle worker; deciding and committing are separate calls so a
// decision that fails to execute never starts a cooldown.
type CooldownTracker struct {
	clk        clock.Clock
	window     time.Duration
	lastAction Action
	lastTime   time.Time
	acted      bool
}

// NewCooldownTracker returns a tracker that has never recorded an action.
func NewCooldownTracker(window time.Duration, clk clock.Clock) *CooldownTracker {
	return &CooldownTracker{clk: clk, window: window}
}

// Remaining returns how long the current cooldown still holds, or zero when
// no action has been recorded or the window has elapsed.
func (c *CooldownTracker) Remaining() time.Duration {
	if !c.acted {
		return 0
	}
	elapsed := c.clk.Since(c.lastTime)
	if elapsed >= c.window {
		return 0
	}
	return c.window - elapsed
}

// Record commits an executed action, starting a fresh cooldown window.
// Callers must invoke it only after the action has actually succeeded.
func (c *CooldownTracker) Record(action Action) {
	c.lastAction = action
	c.lastTime = c.clk.Now()
	c.acted = true
}

// Last returns the most recently recorded action and its time. The bool is
// false if no action has ever been recorded.
func (c *CooldownTracker) Last() (Action, time.Time, bool) {
	return c.lastAction, c.lastTime, c.acted
}
