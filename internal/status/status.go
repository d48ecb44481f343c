// Package status holds the device view reported on /status, the dashboard and
// MQTT lifecycle events. The Tracker keeps the slow-moving parts (identity,
// network, broker link) readable from any goroutine; the watchdog loop fills
// in the core state when it builds a Snapshot.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// Identity is fixed for the life of the process.
type Identity struct {
	Version string
	ChipID  string
	BootID  string
}

// NetworkInfo describes the uplink the node is attached to.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
	MAC        string
	RSSI       int
}

// Snapshot is a point-in-time view of the node. It is a value type, safe to
// use after the lock is released.
type Snapshot struct {
	Identity
	Network       *NetworkInfo
	MQTTConnected bool
	StartTime     time.Time
	Now           time.Time

	OTA         bool
	OTATimer    int
	PingAddress string
	PingPeriod  int
	PingState   watchdog.State
	Reboot      bool
	RebootTimer int
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and identity.
func NewTracker(startTime time.Time, id Identity) *Tracker {
	return &Tracker{
		snap: Snapshot{Identity: id, StartTime: startTime},
		now:  time.Now,
	}
}

// SetClock replaces the wall clock used for Snapshot.Now.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	t.now = now
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info. nil means unknown.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a copy of the tracked state with Now set to the current
// time. Core fields are zero; the loop fills them in.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	now := t.now
	t.mu.RUnlock()
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	s.Now = now()
	return s
}
