package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/sweeney/net-watchdog/internal/clock"
	"github.com/sweeney/net-watchdog/internal/gpio"
	"github.com/sweeney/net-watchdog/internal/mqtt"
	"github.com/sweeney/net-watchdog/internal/node"
	"github.com/sweeney/net-watchdog/internal/probe"
	"github.com/sweeney/net-watchdog/internal/relay"
	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/store"
	"github.com/sweeney/net-watchdog/internal/system"
	"github.com/sweeney/net-watchdog/internal/watchdog"
	"github.com/sweeney/net-watchdog/internal/web"
)

type rig struct {
	clock     *clock.Fake
	prober    *probe.Fake
	relay     *gpio.FakeWriter
	store     *store.MemStore
	restarter *system.FakeRestarter
	pub       *mqtt.FakePublisher
	client    *node.Client
	srv       *httptest.Server
	tick      chan time.Time
}

// newRig runs a node on its own loop goroutine behind the HTTP surface,
// the way the daemon wires it.
func newRig(t *testing.T, results ...bool) *rig {
	t.Helper()
	r := &rig{
		clock:     clock.NewFake(0),
		prober:    probe.NewFake(results...),
		relay:     gpio.NewFakeWriter(),
		store:     store.NewMemStore(),
		restarter: &system.FakeRestarter{},
		pub:       mqtt.NewFakePublisher(),
		tick:      make(chan time.Time),
	}
	r.prober.Reachable = map[string]bool{"10.9.9.9": false}

	n := node.New(node.Config{
		Target: watchdog.ProbeTarget{Address: "8.8.8.8", PeriodSeconds: 3},
	}, node.Deps{
		Clock:     r.clock,
		Prober:    r.prober,
		Actuator:  relay.New(r.relay, time.Millisecond),
		Store:     r.store,
		Restarter: r.restarter,
		Publisher: r.pub,
		Tracker:   status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Identity{Version: "test"}),
	})

	d := node.NewDispatcher(4)
	r.client = node.NewClient(d)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				d.Stop()
				return
			case req := <-d.Requests():
				req.Run(n)
			case <-r.tick:
				d.Drain(n)
				n.Step(ctx)
			}
		}
	}()

	r.srv = httptest.NewServer(web.New("", r.client, nil, web.Options{Version: "test"}).Handler())
	t.Cleanup(func() {
		r.srv.Close()
		cancel()
		<-done
	})
	return r
}

// step advances the clock by d and runs one loop iteration. The status
// round trip returns once the iteration has finished.
func (r *rig) step(t *testing.T, d time.Duration) {
	t.Helper()
	r.clock.Advance(d)
	r.tick <- time.Now()
	if _, err := r.client.Status(context.Background()); err != nil {
		t.Fatalf("status after step: %v", err)
	}
}

func (r *rig) get(t *testing.T, path string) int {
	t.Helper()
	resp, err := http.Get(r.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func (r *rig) device(t *testing.T) status.DeviceJSON {
	t.Helper()
	resp, err := http.Get(r.srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	var dev status.DeviceJSON
	if err := json.NewDecoder(resp.Body).Decode(&dev); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return dev
}

func TestIntegrationOutageAndRearm(t *testing.T) {
	r := newRig(t, true, false, false)

	r.step(t, 3*time.Second) // ok
	r.step(t, 3*time.Second) // first miss
	if got := r.device(t).PingState; got != int(watchdog.StateIntermediate) {
		t.Fatalf("after one miss: ping_state=%d", got)
	}
	r.step(t, 3*time.Second) // second miss
	if r.relay.Pulses() != 1 {
		t.Fatalf("pulses: got %d, want 1", r.relay.Pulses())
	}
	if got := r.device(t).PingState; got != int(watchdog.StateInactive) {
		t.Fatalf("after two misses: ping_state=%d", got)
	}

	// Inactive holds without further pulses until rearmed.
	r.step(t, 3*time.Second)
	r.step(t, 3*time.Second)
	if r.relay.Pulses() != 1 {
		t.Errorf("pulses while inactive: got %d, want 1", r.relay.Pulses())
	}

	if code := r.get(t, "/rearm"); code != http.StatusOK {
		t.Fatalf("/rearm: %d", code)
	}
	if got := r.device(t).PingState; got != int(watchdog.StateActive) {
		t.Errorf("after rearm: ping_state=%d", got)
	}

	types := r.pub.EventTypes()
	if !slices.Contains(types, string(watchdog.EventActuated)) {
		t.Errorf("expected ACTUATED in %v", types)
	}
}

func TestIntegrationCommitPersistsAndReports(t *testing.T) {
	r := newRig(t, true)

	if code := r.get(t, "/commit?address=1.1.1.1&period=7"); code != http.StatusOK {
		t.Fatalf("/commit: %d", code)
	}
	if code := r.get(t, "/commit?address=1.1.1.1&period=0"); code != http.StatusBadRequest {
		t.Errorf("/commit period=0: got %d, want 400", code)
	}

	dev := r.device(t)
	if dev.PingAddress != "1.1.1.1" || dev.PingPeriod != 7 {
		t.Errorf("status after commit: %+v", dev)
	}

	saved, err := r.store.Load()
	if err != nil {
		t.Fatalf("store load: %v", err)
	}
	if saved.Address != "1.1.1.1" || saved.PeriodSeconds != 7 {
		t.Errorf("persisted target: %+v", saved)
	}

	r.step(t, 7*time.Second)
	calls := r.prober.Calls()
	if len(calls) == 0 || calls[len(calls)-1] != "1.1.1.1" {
		t.Errorf("probe calls: %v", calls)
	}
}

func TestIntegrationCheck(t *testing.T) {
	r := newRig(t, true)

	if code := r.get(t, "/check?address=1.1.1.1"); code != http.StatusOK {
		t.Errorf("/check reachable: got %d, want 200", code)
	}
	if code := r.get(t, "/check?address=10.9.9.9"); code != http.StatusNotFound {
		t.Errorf("/check unreachable: got %d, want 404", code)
	}
	if got := r.device(t).PingState; got != int(watchdog.StateActive) {
		t.Errorf("check changed state: ping_state=%d", got)
	}
}

func TestIntegrationRebootCountdown(t *testing.T) {
	r := newRig(t, true)

	if code := r.get(t, "/reboot"); code != http.StatusOK {
		t.Fatalf("/reboot: %d", code)
	}
	dev := r.device(t)
	if !dev.Reboot || dev.RebootTimer != 3 {
		t.Errorf("after /reboot: reboot=%v timer=%d", dev.Reboot, dev.RebootTimer)
	}

	r.step(t, time.Second)
	if r.restarter.Count() != 0 {
		t.Fatal("restarted before the delay elapsed")
	}
	r.step(t, 3*time.Second)
	if r.restarter.Count() != 1 {
		t.Errorf("restarts: got %d, want 1", r.restarter.Count())
	}

	types := r.pub.EventTypes()
	for _, want := range []watchdog.EventType{watchdog.EventRebootScheduled, watchdog.EventRestarting} {
		if !slices.Contains(types, string(want)) {
			t.Errorf("expected %s in %v", want, types)
		}
	}
}

func TestIntegrationUnknownMaintenanceAction(t *testing.T) {
	r := newRig(t, true)

	if code := r.get(t, "/ota?action=sideways"); code != http.StatusBadRequest {
		t.Errorf("/ota bad action: got %d, want 400", code)
	}
}
