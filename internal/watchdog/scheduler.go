package watchdog

import (
	"fmt"
	"log"
	"time"

	"github.com/sweeney/net-watchdog/internal/clock"
)

// Scheduler defaults.
const (
	DefaultRebootDelay       = 3 * time.Second
	DefaultOTARebootDelay    = 1 * time.Second
	DefaultMaintenanceWindow = 10 * time.Minute
)

// Scheduler owns the pending-reboot and maintenance-window deadlines.
// The two are independent: firing one never touches the other.
type Scheduler struct {
	restarter Restarter
	session   Session
	sink      EventSink
	window    time.Duration

	reboot      Deadline
	maintenance Deadline
	active      bool
}

// NewScheduler creates a scheduler. A non-positive window selects
// DefaultMaintenanceWindow.
func NewScheduler(restarter Restarter, session Session, window time.Duration, sink EventSink) *Scheduler {
	if window <= 0 {
		window = DefaultMaintenanceWindow
	}
	return &Scheduler{
		restarter: restarter,
		session:   session,
		sink:      sink,
		window:    window,
	}
}

// RequestReboot restarts immediately when delaySeconds is 0, otherwise arms
// the reboot deadline, replacing any pending one.
func (s *Scheduler) RequestReboot(now clock.Millis, delaySeconds int) {
	if delaySeconds <= 0 {
		s.restart("requested")
		return
	}
	s.reboot.Arm(now, time.Duration(delaySeconds)*time.Second)
	log.Printf("scheduler: reboot in %ds", delaySeconds)
	notify(s.sink, Event{Type: EventRebootScheduled, Seconds: delaySeconds})
}

// EnableMaintenance starts the maintenance session and arms its expiry. When
// already active the countdown is left alone.
func (s *Scheduler) EnableMaintenance(now clock.Millis) error {
	if s.active {
		return nil
	}
	if s.session != nil {
		if err := s.session.Start(); err != nil {
			return fmt.Errorf("start maintenance session: %w", err)
		}
	}
	s.active = true
	s.maintenance.Arm(now, s.window)
	log.Printf("scheduler: maintenance enabled for %v", s.window)
	notify(s.sink, Event{Type: EventMaintenanceOn, Seconds: int(s.window / time.Second)})
	return nil
}

// DisableMaintenanceForce tears the session down now, whatever time remains.
func (s *Scheduler) DisableMaintenanceForce() {
	s.disableMaintenance("disabled")
}

func (s *Scheduler) disableMaintenance(reason string) {
	if !s.active {
		return
	}
	s.maintenance.Disarm()
	s.active = false
	if s.session != nil {
		if err := s.session.Stop(); err != nil {
			log.Printf("scheduler: stop maintenance session: %v", err)
		}
	}
	log.Printf("scheduler: maintenance %s", reason)
	notify(s.sink, Event{Type: EventMaintenanceOff, Reason: reason})
}

// ToggleMaintenance enables an inactive window or force-disables an active one.
func (s *Scheduler) ToggleMaintenance(now clock.Millis) error {
	if s.active {
		s.DisableMaintenanceForce()
		return nil
	}
	return s.EnableMaintenance(now)
}

// Check fires any expired deadline.
func (s *Scheduler) Check(now clock.Millis) {
	if s.reboot.Fire(now) {
		s.restart("scheduled")
	}
	if s.maintenance.Fire(now) {
		s.disableMaintenance("expired")
	}
}

func (s *Scheduler) restart(reason string) {
	log.Printf("scheduler: restarting (%s)", reason)
	notify(s.sink, Event{Type: EventRestarting, Reason: reason})
	s.restarter.Restart(reason)
}

// RebootPending reports whether a reboot deadline is armed.
func (s *Scheduler) RebootPending() bool {
	return s.reboot.Armed()
}

// RebootRemaining returns whole seconds until the pending reboot.
func (s *Scheduler) RebootRemaining(now clock.Millis) int {
	return s.reboot.RemainingSeconds(now)
}

// MaintenanceActive reports whether the maintenance session is up.
func (s *Scheduler) MaintenanceActive() bool {
	return s.active
}

// MaintenanceRemaining returns whole seconds until the window closes.
func (s *Scheduler) MaintenanceRemaining(now clock.Millis) int {
	return s.maintenance.RemainingSeconds(now)
}
