package watchdog

import (
	"context"
	"fmt"
	"log"

	"github.com/sweeney/net-watchdog/internal/clock"
)

// Monitor probes the target once per period and pulses the relay after two
// consecutive failed periods.
type Monitor struct {
	prober   Prober
	actuator Actuator
	saver    TargetSaver
	sink     EventSink

	target      ProbeTarget
	state       State
	lastChecked clock.Millis
}

// NewMonitor creates a monitor in StateActive. The first probe runs one full
// period after now.
func NewMonitor(target ProbeTarget, now clock.Millis, prober Prober, actuator Actuator, saver TargetSaver, sink EventSink) *Monitor {
	return &Monitor{
		prober:      prober,
		actuator:    actuator,
		saver:       saver,
		sink:        sink,
		target:      target,
		state:       StateActive,
		lastChecked: now,
	}
}

// Due reports whether a full period has elapsed since the last evaluation.
func (m *Monitor) Due(now clock.Millis) bool {
	period := uint32(m.target.PeriodSeconds) * 1000
	return clock.Elapsed(now, m.lastChecked) >= period
}

// Evaluate runs at most one probe and transition. Missed periods are
// coalesced into this single evaluation.
func (m *Monitor) Evaluate(ctx context.Context, now clock.Millis) {
	if !m.Due(now) {
		return
	}

	ok := m.prober.Check(ctx, m.target.Address)
	prev := m.state

	if ok {
		m.state = StateActive
	} else {
		switch m.state {
		case StateActive:
			m.state = StateIntermediate
		case StateIntermediate:
			m.state = StateInactive
			m.pulse()
		case StateInactive:
			// stays until rearmed
		}
	}
	m.lastChecked = now

	if m.state != prev {
		log.Printf("monitor: %s %s -> %s", m.target.Address, prev, m.state)
		notify(m.sink, Event{Type: EventStateChanged, State: m.state, Address: m.target.Address})
	}
}

func (m *Monitor) pulse() {
	log.Printf("monitor: %s unreachable for two periods, power-cycling", m.target.Address)
	if err := m.actuator.Pulse(); err != nil {
		log.Printf("monitor: pulse failed: %v", err)
		notify(m.sink, Event{Type: EventActuated, State: StateInactive, Address: m.target.Address, Reason: "monitor: " + err.Error()})
		return
	}
	notify(m.sink, Event{Type: EventActuated, State: StateInactive, Address: m.target.Address, Reason: "monitor"})
}

// ForceCheck probes override, or the configured address when override is
// empty, outside the periodic cadence. State is not affected.
func (m *Monitor) ForceCheck(ctx context.Context, override string) bool {
	address := override
	if address == "" {
		address = m.target.Address
	}
	return m.prober.Check(ctx, address)
}

// Rearm forces StateActive with no other side effect.
func (m *Monitor) Rearm() {
	if m.state != StateActive {
		log.Printf("monitor: rearmed from %s", m.state)
		m.state = StateActive
		notify(m.sink, Event{Type: EventStateChanged, State: m.state, Address: m.target.Address, Reason: "rearm"})
	}
}

// Configure validates and persists a new target, then applies it. The new
// period is measured from the last evaluation.
func (m *Monitor) Configure(address string, periodSeconds int) error {
	t := ProbeTarget{Address: address, PeriodSeconds: periodSeconds}
	if err := t.Validate(); err != nil {
		return err
	}
	if m.saver != nil {
		if err := m.saver.Save(t); err != nil {
			return fmt.Errorf("save target: %w", err)
		}
	}
	m.target = t
	log.Printf("monitor: target set to %q every %ds", t.Address, t.PeriodSeconds)
	notify(m.sink, Event{Type: EventConfigCommitted, State: m.state, Address: t.Address, Seconds: t.PeriodSeconds})
	return nil
}

// State returns the current state.
func (m *Monitor) State() State {
	return m.state
}

// Target returns the current target.
func (m *Monitor) Target() ProbeTarget {
	return m.target
}
