package watchdog

import (
	"errors"
	"time"

	"github.com/sweeney/net-watchdog/internal/clock"
)

type countingActuator struct {
	pulses int
	at     []clock.Millis
	now    func() clock.Millis
	err    error
}

func (a *countingActuator) Pulse() error {
	a.pulses++
	if a.now != nil {
		a.at = append(a.at, a.now())
	}
	return a.err
}

type memSaver struct {
	saved []ProbeTarget
	err   error
}

func (s *memSaver) Save(t ProbeTarget) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, t)
	return nil
}

type recordingRestarter struct {
	restarts []string
	at       []clock.Millis
	now      func() clock.Millis
}

func (r *recordingRestarter) Restart(reason string) {
	r.restarts = append(r.restarts, reason)
	if r.now != nil {
		r.at = append(r.at, r.now())
	}
}

type fakeSession struct {
	starts   int
	stops    int
	startErr error
}

func (s *fakeSession) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.starts++
	return nil
}

func (s *fakeSession) Stop() error {
	s.stops++
	return nil
}

type eventLog struct {
	events []Event
}

func (l *eventLog) Notify(e Event) { l.events = append(l.events, e) }

func (l *eventLog) count(t EventType) int {
	n := 0
	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

var errDisk = errors.New("disk full")

func ms(d time.Duration) clock.Millis {
	return clock.Millis(d.Milliseconds())
}
