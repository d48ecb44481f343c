package watchdog

import (
	"time"

	"github.com/sweeney/net-watchdog/internal/clock"
)

// Deadline is a one-shot monotonic trigger. The zero value is disarmed.
// A disarmed deadline is inert whatever fireAt holds.
type Deadline struct {
	armed  bool
	fireAt clock.Millis
}

// Arm sets the deadline to now+delay, replacing any previous arming. Delays
// beyond MaxDelay are clamped.
func (d *Deadline) Arm(now clock.Millis, delay time.Duration) {
	delay = min(delay, MaxDelay)
	d.armed = true
	d.fireAt = now.Add(delay)
}

// Disarm makes the deadline inert.
func (d *Deadline) Disarm() {
	d.armed = false
}

// Armed reports whether the deadline is pending.
func (d *Deadline) Armed() bool {
	return d.armed
}

// Fire reports whether the deadline has passed, disarming it if so.
// It returns true at most once per Arm.
func (d *Deadline) Fire(now clock.Millis) bool {
	if !d.armed || !clock.After(now, d.fireAt) {
		return false
	}
	d.armed = false
	return true
}

// RemainingSeconds returns whole seconds until the deadline, truncated,
// or 0 when disarmed or passed.
func (d *Deadline) RemainingSeconds(now clock.Millis) int {
	if !d.armed {
		return 0
	}
	rem := clock.Until(d.fireAt, now)
	if rem <= 0 {
		return 0
	}
	return int(rem / time.Second)
}
