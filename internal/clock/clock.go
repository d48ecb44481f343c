// Package clock provides a wrapping millisecond counter.
// All deadlines in the watchdog are expressed in Millis and compared with
// wrap-tolerant arithmetic, so the counter may roll over (every ~49.7 days)
// without disturbing timers.
package clock

import (
	"sync"
	"time"
)

// Millis is a monotonic millisecond count that wraps at 2^32.
type Millis uint32

// Source returns the current millisecond count.
type Source interface {
	Now() Millis
}

// Elapsed returns the unsigned number of milliseconds from then to now.
// Correct across a single wrap of the counter.
func Elapsed(now, then Millis) uint32 {
	return uint32(now - then)
}

// After reports whether a is strictly later than b, tolerating wraparound.
// Valid while the two values are less than 2^31 ms apart.
func After(a, b Millis) bool {
	return int32(a-b) > 0
}

// Add returns m advanced by d, wrapping like the counter itself.
func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(uint32(d.Milliseconds()))
}

// Until returns the signed duration from now to deadline.
// Negative once the deadline has passed.
func Until(deadline, now Millis) time.Duration {
	return time.Duration(int32(deadline-now)) * time.Millisecond
}

// Real counts milliseconds since it was created, using the runtime's
// monotonic clock.
type Real struct {
	start  time.Time
	offset Millis
}

// NewReal creates a Real clock starting at zero.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

// NewRealAt creates a Real clock whose first reading is offset.
// Useful for exercising wraparound on long-running hardware tests.
func NewRealAt(offset Millis) *Real {
	return &Real{start: time.Now(), offset: offset}
}

// Now returns milliseconds since creation plus the starting offset.
func (r *Real) Now() Millis {
	return r.offset + Millis(uint32(time.Since(r.start).Milliseconds()))
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now Millis
}

// NewFake creates a Fake clock reading start.
func NewFake(start Millis) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake reading.
func (f *Fake) Now() Millis {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set jumps the clock to m.
func (f *Fake) Set(m Millis) {
	f.mu.Lock()
	f.now = m
	f.mu.Unlock()
}
