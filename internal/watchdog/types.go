// Package watchdog contains the connectivity-monitor state machine and the
// maintenance scheduler. It has no hardware, network, or OS dependencies:
// time is always injected as clock.Millis and every side effect goes through
// a small interface.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// State is the monitor's view of the target. The ordinals are part of the
// status wire format (ping_state).
type State int

const (
	StateActive       State = 0
	StateIntermediate State = 1
	StateInactive     State = 2
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateIntermediate:
		return "INTERMEDIATE"
	case StateInactive:
		return "INACTIVE"
	default:
		return "UNKNOWN"
	}
}

// Limits on the probe target, fixed by the persisted record layout.
const (
	MaxAddressLen    = 64
	MinPeriodSeconds = 1
	// MaxPeriodSeconds keeps period*1000 inside the signed 32-bit range the
	// clock arithmetic relies on.
	MaxPeriodSeconds = math.MaxInt32 / 1000
)

// MaxDelay is the longest deadline the signed 32-bit millisecond comparison
// can represent. Longer delays are clamped to it.
const MaxDelay = math.MaxInt32 * time.Millisecond

// ProbeTarget is the monitored endpoint and check cadence.
type ProbeTarget struct {
	Address       string
	PeriodSeconds int
}

// Validation errors.
var (
	ErrInvalidPeriod  = errors.New("invalid check period")
	ErrInvalidAddress = errors.New("invalid probe address")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate checks the target against the record limits.
func (t ProbeTarget) Validate() error {
	if t.PeriodSeconds < MinPeriodSeconds {
		return &ValidationError{Field: "period", Reason: fmt.Sprintf("must be at least %d second", MinPeriodSeconds), Err: ErrInvalidPeriod}
	}
	if t.PeriodSeconds > MaxPeriodSeconds {
		return &ValidationError{Field: "period", Reason: fmt.Sprintf("must be at most %d seconds", MaxPeriodSeconds), Err: ErrInvalidPeriod}
	}
	if len(t.Address) > MaxAddressLen {
		return &ValidationError{Field: "address", Reason: fmt.Sprintf("longer than %d bytes", MaxAddressLen), Err: ErrInvalidAddress}
	}
	for i := 0; i < len(t.Address); i++ {
		if t.Address[i] == 0 {
			return &ValidationError{Field: "address", Reason: "contains NUL byte", Err: ErrInvalidAddress}
		}
	}
	return nil
}

// Prober tests reachability of an address within its own bounded timeout.
type Prober interface {
	Check(ctx context.Context, address string) bool
}

// Actuator produces one power-cycle pulse and returns when it is complete.
type Actuator interface {
	Pulse() error
}

// TargetSaver persists a committed probe target.
type TargetSaver interface {
	Save(ProbeTarget) error
}

// Restarter restarts the process. Restart does not return on real hardware.
type Restarter interface {
	Restart(reason string)
}

// Session is the privileged maintenance capability (firmware acceptance).
type Session interface {
	Start() error
	Stop() error
}

// EventType identifies something the core did.
type EventType string

const (
	EventStateChanged    EventType = "STATE_CHANGED"
	EventActuated        EventType = "ACTUATED"
	EventRebootScheduled EventType = "REBOOT_SCHEDULED"
	EventRestarting      EventType = "RESTARTING"
	EventMaintenanceOn   EventType = "MAINTENANCE_ON"
	EventMaintenanceOff  EventType = "MAINTENANCE_OFF"
	EventConfigCommitted EventType = "CONFIG_COMMITTED"
	EventFirmwareUpdated EventType = "FIRMWARE_UPDATED"
	EventFirmwareFailed  EventType = "FIRMWARE_FAILED"
)

// Event is emitted to an EventSink. Fields not relevant to Type are zero.
type Event struct {
	Type    EventType
	State   State
	Address string
	Reason  string
	// Seconds carries a delay or duration, e.g. the reboot delay.
	Seconds int
}

// EventSink receives core events. Implementations must not block for long;
// they run on the loop.
type EventSink interface {
	Notify(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

// Notify calls f(e).
func (f EventSinkFunc) Notify(e Event) { f(e) }

func notify(sink EventSink, e Event) {
	if sink != nil {
		sink.Notify(e)
	}
}
