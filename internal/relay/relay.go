// Package relay produces fixed-width pulses on the relay output.
package relay

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sweeney/net-watchdog/internal/gpio"
)

// DefaultPulseWidth is how long the relay is held energised to power-cycle
// the monitored device.
const DefaultPulseWidth = 3 * time.Second

// Actuator pulses a relay. Concurrent Pulse calls are serialized: each
// caller waits for any pulse in flight and then runs its own full pulse.
type Actuator struct {
	out   gpio.Writer
	width time.Duration
	sleep func(time.Duration)

	mu       sync.Mutex
	inFlight atomic.Bool
	count    atomic.Int64
}

// New creates an Actuator holding the output for width on each pulse.
// A non-positive width selects DefaultPulseWidth.
func New(out gpio.Writer, width time.Duration) *Actuator {
	if width <= 0 {
		width = DefaultPulseWidth
	}
	return &Actuator{out: out, width: width, sleep: time.Sleep}
}

// Pulse energises the relay, holds it for the pulse width, then releases it.
// The output is driven idle before Pulse returns on every path.
func (a *Actuator) Pulse() (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inFlight.Store(true)
	defer a.inFlight.Store(false)

	defer func() {
		if idleErr := a.out.SetActive(false); idleErr != nil {
			log.Printf("relay: failed to release output: %v", idleErr)
			if err == nil {
				err = fmt.Errorf("release relay: %w", idleErr)
			}
		}
	}()

	if err := a.out.SetActive(true); err != nil {
		return fmt.Errorf("energise relay: %w", err)
	}
	a.count.Add(1)
	a.sleep(a.width)
	return nil
}

// InFlight reports whether a pulse is currently holding the relay.
func (a *Actuator) InFlight() bool {
	return a.inFlight.Load()
}

// Count returns the number of pulses started since creation.
func (a *Actuator) Count() int64 {
	return a.count.Load()
}

// Width returns the configured pulse width.
func (a *Actuator) Width() time.Duration {
	return a.width
}
