// Package mqtt publishes watchdog events to an MQTT broker, with fakes for
// testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "network/watchdog"

// EventsTopic returns the topic for core watchdog events.
func EventsTopic(prefix string) string {
	return prefix + "/events"
}

// SystemTopic returns the topic for lifecycle events.
func SystemTopic(prefix string) string {
	return prefix + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a watchdog event. A failure must not stop the caller.
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a core watchdog event stamped for the wire.
type Event struct {
	Timestamp time.Time
	BootID    string
	Core      watchdog.Event
}

// SystemEvent is a lifecycle event (STARTUP, SHUTDOWN, HEARTBEAT, ...).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string
	BootID     string
	RawPayload []byte // pre-formatted payload, returned as is by FormatSystemPayload
	Retained   bool
}

// Payload is the wire format for core events.
type Payload struct {
	Watchdog WatchdogPayload `json:"watchdog"`
}

// WatchdogPayload contains the event details.
type WatchdogPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	State     string `json:"state"`
	StateCode int    `json:"state_code"`
	Address   string `json:"address,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Seconds   int    `json:"seconds,omitempty"`
	BootID    string `json:"boot_id,omitempty"`
}

// FormatPayload creates the JSON payload for a core event.
func FormatPayload(event Event) ([]byte, error) {
	payload := Payload{
		Watchdog: WatchdogPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Core.Type),
			State:     event.Core.State.String(),
			StateCode: int(event.Core.State),
			Address:   event.Core.Address,
			Reason:    event.Core.Reason,
			Seconds:   event.Core.Seconds,
			BootID:    event.BootID,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the wire format for lifecycle events without a status
// snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	BootID    string `json:"boot_id,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			BootID:    event.BootID,
		},
	}
	return json.Marshal(payload)
}
