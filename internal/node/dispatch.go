package node

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped is returned by Submit once the loop has stopped.
var ErrStopped = errors.New("watchdog loop stopped")

// Request is a unit of work for the loop goroutine.
type Request struct {
	fn   func(*Node)
	done chan struct{}
}

// Run executes the request against n and releases the submitter.
func (r Request) Run(n *Node) {
	defer close(r.done)
	r.fn(n)
}

// Dispatcher carries requests from other goroutines to the loop.
type Dispatcher struct {
	requests chan Request
	stopped  chan struct{}
	once     sync.Once
}

// NewDispatcher creates a dispatcher with room for buffer queued requests.
func NewDispatcher(buffer int) *Dispatcher {
	return &Dispatcher{
		requests: make(chan Request, buffer),
		stopped:  make(chan struct{}),
	}
}

// Requests is read by the loop.
func (d *Dispatcher) Requests() <-chan Request {
	return d.requests
}

// Drain runs every queued request without blocking.
func (d *Dispatcher) Drain(n *Node) {
	for {
		select {
		case req := <-d.requests:
			req.Run(n)
		default:
			return
		}
	}
}

// Stop makes pending and future Submit calls fail with ErrStopped.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stopped) })
}

// Submit queues fn and waits until the loop has run it, ctx ends, or the
// loop stops. If ctx ends after queuing, fn may still run later.
func (d *Dispatcher) Submit(ctx context.Context, fn func(*Node)) error {
	req := Request{fn: fn, done: make(chan struct{})}

	select {
	case d.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		return ErrStopped
	}
}
