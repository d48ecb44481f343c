// Package node ties the watchdog core to its collaborators. A Node is built
// once at startup and owned by the loop goroutine; everything else reaches
// it through a Dispatcher.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/net-watchdog/internal/clock"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/store"
	"github.com/sweeney/net-watchdog/internal/system"
	"github.com/sweeney/net-watchdog/internal/watchdog"
	"github.com/sweeney/net-watchdog/internal/web"
)

// Config holds the tunables of a Node.
type Config struct {
	// Target is used when the store has no usable record.
	Target            watchdog.ProbeTarget
	RebootDelay       time.Duration
	OTARebootDelay    time.Duration
	MaintenanceWindow time.Duration
	// Heartbeat is the interval between status snapshots on MQTT; 0 disables.
	Heartbeat time.Duration
}

// Deps are the Node's collaborators. Publisher, Session, Provisioner,
// Network and Connection may be nil.
type Deps struct {
	Clock       clock.Source
	Prober      watchdog.Prober
	Actuator    watchdog.Actuator
	Store       store.Store
	Restarter   watchdog.Restarter
	Session     watchdog.Session
	Provisioner system.Provisioner
	Publisher   mqtt.Publisher
	Connection  mqtt.ConnectionStatus
	Tracker     *status.Tracker
	Network     func() *status.NetworkInfo
}

// Node is the watchdog context object. It is not safe for concurrent use.
type Node struct {
	cfg  Config
	deps Deps

	monitor   *watchdog.Monitor
	scheduler *watchdog.Scheduler
	sink      *mqtt.Sink

	lastHeartbeat clock.Millis
}

// New builds a Node, restoring the probe target from the store.
func New(cfg Config, deps Deps) *Node {
	if cfg.RebootDelay <= 0 {
		cfg.RebootDelay = watchdog.DefaultRebootDelay
	}
	if cfg.OTARebootDelay <= 0 {
		cfg.OTARebootDelay = watchdog.DefaultOTARebootDelay
	}
	if deps.Publisher == nil {
		deps.Publisher = mqtt.NopPublisher{}
	}
	if deps.Tracker == nil {
		deps.Tracker = status.NewTracker(time.Now(), status.Identity{})
	}

	n := &Node{cfg: cfg, deps: deps}
	id := deps.Tracker.Snapshot()
	n.sink = mqtt.NewSink(deps.Publisher, id.BootID)

	target, err := store.LoadOrDefault(deps.Store, cfg.Target)
	switch {
	case errors.Is(err, store.ErrNoRecord):
		log.Printf("node: no stored target, using %q every %ds", target.Address, target.PeriodSeconds)
	case err != nil:
		log.Printf("node: stored target unusable (%v), using %q every %ds", err, target.Address, target.PeriodSeconds)
	default:
		log.Printf("node: restored target %q every %ds", target.Address, target.PeriodSeconds)
	}

	now := deps.Clock.Now()
	events := watchdog.EventSinkFunc(n.notify)
	n.monitor = watchdog.NewMonitor(target, now, deps.Prober, deps.Actuator, deps.Store, events)
	n.scheduler = watchdog.NewScheduler(deps.Restarter, deps.Session, cfg.MaintenanceWindow, events)
	n.lastHeartbeat = now
	return n
}

// notify stamps the current monitor state on e, logs it and forwards it.
func (n *Node) notify(e watchdog.Event) {
	e.State = n.monitor.State()
	log.Printf("event: %s (state=%s address=%q reason=%q seconds=%d)", e.Type, e.State, e.Address, e.Reason, e.Seconds)
	n.sink.Notify(e)
}

// Step runs one loop iteration: monitor evaluation, deadline checks, then
// the heartbeat.
func (n *Node) Step(ctx context.Context) {
	n.monitor.Evaluate(ctx, n.deps.Clock.Now())
	n.scheduler.Check(n.deps.Clock.Now())
	n.heartbeat(n.deps.Clock.Now())
}

func (n *Node) heartbeat(now clock.Millis) {
	if n.deps.Connection != nil {
		n.deps.Tracker.SetMQTTConnected(n.deps.Connection.IsConnected())
	}
	if n.cfg.Heartbeat <= 0 {
		return
	}
	if time.Duration(clock.Elapsed(now, n.lastHeartbeat))*time.Millisecond < n.cfg.Heartbeat {
		return
	}
	n.lastHeartbeat = now

	snap := n.Status()
	log.Printf("heartbeat: uptime=%v state=%s", snap.Uptime().Truncate(time.Second), snap.PingState)
	n.publishSystem(snap, "HEARTBEAT", "", false)
}

// RefreshNetwork re-reads the uplink description into the tracker.
func (n *Node) RefreshNetwork() {
	if n.deps.Network == nil {
		return
	}
	if info := n.deps.Network(); info != nil {
		n.deps.Tracker.SetNetwork(info)
	}
}

func (n *Node) publishSystem(snap status.Snapshot, event, reason string, retained bool) {
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		BootID:     snap.BootID,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := n.deps.Publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	}
}

// Startup publishes the retained STARTUP snapshot.
func (n *Node) Startup() {
	n.publishSystem(n.Status(), "STARTUP", "", true)
}

// Shutdown publishes the retained SHUTDOWN snapshot and stops any
// maintenance session.
func (n *Node) Shutdown(reason string) {
	n.scheduler.DisableMaintenanceForce()
	n.publishSystem(n.Status(), "SHUTDOWN", reason, true)
}

// Reboot arms the deferred reboot.
func (n *Node) Reboot() {
	n.scheduler.RequestReboot(n.deps.Clock.Now(), seconds(n.cfg.RebootDelay))
}

// ResetProvisioning forgets the network identity and restarts at once. The
// restart happens even when clearing fails.
func (n *Node) ResetProvisioning() error {
	var err error
	if n.deps.Provisioner != nil {
		if err = n.deps.Provisioner.Reset(); err != nil {
			err = fmt.Errorf("reset provisioning: %w", err)
			log.Printf("node: %v", err)
		}
	}
	n.scheduler.RequestReboot(n.deps.Clock.Now(), 0)
	return err
}

// Maintenance drives the maintenance window: on, off or toggle.
func (n *Node) Maintenance(action string) error {
	now := n.deps.Clock.Now()
	switch action {
	case "on":
		return n.scheduler.EnableMaintenance(now)
	case "off":
		n.scheduler.DisableMaintenanceForce()
		return nil
	case "toggle":
		return n.scheduler.ToggleMaintenance(now)
	default:
		return fmt.Errorf("%w %q", web.ErrUnknownAction, action)
	}
}

// Commit validates, persists and applies a new probe target.
func (n *Node) Commit(address string, periodSeconds int) error {
	return n.monitor.Configure(address, periodSeconds)
}

// Check probes address, or the configured one when empty, without touching
// the monitor state.
func (n *Node) Check(ctx context.Context, address string) bool {
	return n.monitor.ForceCheck(ctx, address)
}

// Rearm resets the monitor to ACTIVE.
func (n *Node) Rearm() {
	n.monitor.Rearm()
}

// Switch pulses the relay on request.
func (n *Node) Switch() error {
	err := n.deps.Actuator.Pulse()
	reason := "manual"
	if err != nil {
		reason = "manual: " + err.Error()
	}
	n.notify(watchdog.Event{Type: watchdog.EventActuated, Address: n.monitor.Target().Address, Reason: reason})
	if err != nil {
		return fmt.Errorf("pulse relay: %w", err)
	}
	return nil
}

// FirmwareInstalled records the outcome of a firmware upload. On success the
// node reboots after rebootDelay; on failure it keeps running.
func (n *Node) FirmwareInstalled(ok bool, rebootDelay time.Duration) {
	if !ok {
		n.notify(watchdog.Event{Type: watchdog.EventFirmwareFailed})
		return
	}
	n.notify(watchdog.Event{Type: watchdog.EventFirmwareUpdated})
	n.scheduler.RequestReboot(n.deps.Clock.Now(), max(1, seconds(rebootDelay)))
}

// Status builds the current snapshot, re-reading the uplink first.
func (n *Node) Status() status.Snapshot {
	n.RefreshNetwork()
	now := n.deps.Clock.Now()
	snap := n.deps.Tracker.Snapshot()
	target := n.monitor.Target()

	snap.PingAddress = target.Address
	snap.PingPeriod = target.PeriodSeconds
	snap.PingState = n.monitor.State()
	snap.OTA = n.scheduler.MaintenanceActive()
	snap.OTATimer = n.scheduler.MaintenanceRemaining(now)
	snap.Reboot = n.scheduler.RebootPending()
	snap.RebootTimer = n.scheduler.RebootRemaining(now)
	return snap
}

// Monitor exposes the monitor for tests and diagnostics.
func (n *Node) Monitor() *watchdog.Monitor { return n.monitor }

// Scheduler exposes the scheduler for tests and diagnostics.
func (n *Node) Scheduler() *watchdog.Scheduler { return n.scheduler }

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
