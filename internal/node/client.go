package node

import (
	"context"
	"log"

	"github.com/sweeney/net-watchdog/internal/status"
)

// Client implements web.Controller by running each call on the loop.
type Client struct {
	d *Dispatcher
}

// NewClient creates a Client on top of d.
func NewClient(d *Dispatcher) *Client {
	return &Client{d: d}
}

// do runs fn on the loop and returns its error, or the dispatch error.
func (c *Client) do(ctx context.Context, fn func(*Node) error) error {
	var err error
	if derr := c.d.Submit(ctx, func(n *Node) { err = fn(n) }); derr != nil {
		return derr
	}
	return err
}

// ResetProvisioning clears the network identity and restarts.
func (c *Client) ResetProvisioning(ctx context.Context) error {
	return c.do(ctx, func(n *Node) error { return n.ResetProvisioning() })
}

// Reboot arms the deferred reboot.
func (c *Client) Reboot(ctx context.Context) error {
	return c.do(ctx, func(n *Node) error { n.Reboot(); return nil })
}

// Maintenance turns the maintenance window on, off or toggles it.
func (c *Client) Maintenance(ctx context.Context, action string) error {
	return c.do(ctx, func(n *Node) error { return n.Maintenance(action) })
}

// Commit validates, persists and applies a new probe target.
func (c *Client) Commit(ctx context.Context, address string, periodSeconds int) error {
	return c.do(ctx, func(n *Node) error { return n.Commit(address, periodSeconds) })
}

// Check probes address once without changing the monitor state.
func (c *Client) Check(ctx context.Context, address string) (bool, error) {
	var ok bool
	err := c.do(ctx, func(n *Node) error { ok = n.Check(ctx, address); return nil })
	return ok, err
}

// Rearm resets the monitor to ACTIVE.
func (c *Client) Rearm(ctx context.Context) error {
	return c.do(ctx, func(n *Node) error { n.Rearm(); return nil })
}

// Switch pulses the relay.
func (c *Client) Switch(ctx context.Context) error {
	return c.do(ctx, func(n *Node) error { return n.Switch() })
}

// Status returns the current snapshot.
func (c *Client) Status(ctx context.Context) (status.Snapshot, error) {
	var snap status.Snapshot
	err := c.do(ctx, func(n *Node) error { snap = n.Status(); return nil })
	return snap, err
}

// FirmwareInstalled reports an upload through the control surface.
func (c *Client) FirmwareInstalled(ctx context.Context, ok bool) error {
	return c.do(ctx, func(n *Node) error { n.FirmwareInstalled(ok, n.cfg.RebootDelay); return nil })
}

// OTAResult reports an upload through the maintenance listener. It matches
// ota.ResultFunc.
func (c *Client) OTAResult(ctx context.Context, ok bool, err error) {
	if derr := c.do(ctx, func(n *Node) error { n.FirmwareInstalled(ok, n.cfg.OTARebootDelay); return nil }); derr != nil {
		log.Printf("node: report ota result: %v", derr)
	}
}
