//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealWriter drives an output line through the Linux GPIO character device.
type RealWriter struct {
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealWriter requests offset on chip as an output, initially idle.
// With activeLow set, the relay is energised by driving the pin low.
func NewRealWriter(chip string, offset int, activeLow bool) (*RealWriter, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("net-watchdog"),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request relay line %s:%d: %w", chip, offset, err)
	}

	return &RealWriter{line: line, activeLow: activeLow}, nil
}

// SetActive drives the relay line. Polarity is applied by the kernel.
func (w *RealWriter) SetActive(active bool) error {
	v := 0
	if active {
		v = 1
	}
	if err := w.line.SetValue(v); err != nil {
		return fmt.Errorf("set relay line: %w", err)
	}
	return nil
}

// Close drives the relay idle, then reconfigures the line as an input
// with pull-down (matching Pi boot defaults) before releasing it, so the
// relay cannot latch while the daemon is not running.
func (w *RealWriter) Close() error {
	if w.line == nil {
		return nil
	}

	var errs []error
	if err := w.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("idle relay line: %w", err))
	}
	if err := w.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure relay line: %w", err))
	}
	if err := w.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close relay line: %w", err))
	}
	w.line = nil

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
