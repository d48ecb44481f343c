package node

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runLoop serves d until stop is closed.
func runLoop(n *Node, d *Dispatcher, stop <-chan struct{}) {
	for {
		select {
		case req := <-d.Requests():
			req.Run(n)
		case <-stop:
			return
		}
	}
}

func TestSubmitRunsOnLoop(t *testing.T) {
	h := newHarness(t, Config{})
	d := NewDispatcher(4)
	stop := make(chan struct{})
	defer close(stop)
	go runLoop(h.node, d, stop)

	c := NewClient(d)
	if err := c.Commit(ctx, "1.1.1.1", 10); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	snap, err := c.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.PingAddress != "1.1.1.1" || snap.PingPeriod != 10 {
		t.Errorf("status: got %q/%d", snap.PingAddress, snap.PingPeriod)
	}
}

func TestClientPropagatesErrors(t *testing.T) {
	h := newHarness(t, Config{})
	d := NewDispatcher(1)
	stop := make(chan struct{})
	defer close(stop)
	go runLoop(h.node, d, stop)

	c := NewClient(d)
	if err := c.Commit(ctx, "1.1.1.1", 0); err == nil {
		t.Error("expected validation error")
	}
	ok, err := c.Check(ctx, "10.0.0.1")
	if err != nil || ok {
		t.Errorf("Check: got %v, %v", ok, err)
	}
}

func TestSubmitContextTimeout(t *testing.T) {
	d := NewDispatcher(0) // nobody reads

	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := d.Submit(tctx, func(*Node) {})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(0)
	d.Stop()
	d.Stop()
	if err := d.Submit(ctx, func(*Node) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("got %v, want ErrStopped", err)
	}
}

func TestDrain(t *testing.T) {
	h := newHarness(t, Config{})
	d := NewDispatcher(4)

	ran := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		go d.Submit(ctx, func(*Node) { ran <- i })
	}
	deadline := time.Now().Add(time.Second)
	for len(d.requests) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	d.Drain(h.node)
	if len(ran) != 3 {
		t.Errorf("drained %d requests, want 3", len(ran))
	}
	d.Drain(h.node) // empty, must not block
}

func TestOTAResultSchedulesShortReboot(t *testing.T) {
	h := newHarness(t, Config{OTARebootDelay: time.Second})
	d := NewDispatcher(1)
	stop := make(chan struct{})
	defer close(stop)
	go runLoop(h.node, d, stop)

	c := NewClient(d)
	c.OTAResult(ctx, true, nil)
	snap, _ := c.Status(ctx)
	if !snap.Reboot || snap.RebootTimer != 1 {
		t.Errorf("reboot: got %v/%d, want true/1", snap.Reboot, snap.RebootTimer)
	}
}
