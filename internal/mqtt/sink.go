package mqtt

import (
	"log"
	"time"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// Sink forwards core events to a Publisher. It satisfies watchdog.EventSink.
type Sink struct {
	Publisher Publisher
	BootID    string
	Now       func() time.Time
}

// NewSink creates a Sink stamping events with the wall clock.
func NewSink(p Publisher, bootID string) *Sink {
	return &Sink{Publisher: p, BootID: bootID, Now: time.Now}
}

// Notify publishes e. Failures are logged, never returned to the core.
func (s *Sink) Notify(e watchdog.Event) {
	ev := Event{Timestamp: s.Now(), BootID: s.BootID, Core: e}
	if err := s.Publisher.Publish(ev); err != nil {
		log.Printf("mqtt: publish %s: %v", e.Type, err)
	}
}
