package gpio

import "sync"

// FakeWriter is a test double that records every level written.
type FakeWriter struct {
	mu sync.Mutex

	// Writes contains every level passed to SetActive, in order.
	Writes []bool

	// active is the current output level.
	active bool

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, is returned by SetActive(true) without changing the level.
	// Writing idle always succeeds so callers can restore the output.
	SetError error
}

// NewFakeWriter creates an idle FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

// SetActive records the level.
func (f *FakeWriter) SetActive(active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if active && f.SetError != nil {
		return f.SetError
	}
	f.Writes = append(f.Writes, active)
	f.active = active
	return nil
}

// Active reports the current output level.
func (f *FakeWriter) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Pulses counts idle-to-active transitions recorded so far.
func (f *FakeWriter) Pulses() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	prev := false
	for _, w := range f.Writes {
		if w && !prev {
			n++
		}
		prev = w
	}
	return n
}

// Close drives the output idle and marks the writer as closed.
func (f *FakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = false
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Writes = nil
	f.active = false
	f.Closed = false
	f.SetError = nil
}
