package probe

import (
	"context"
	"sync"
)

// Fake is a test double that returns scripted probe outcomes.
type Fake struct {
	mu sync.Mutex

	// Results contains scripted outcomes. Each Check consumes the next one;
	// once exhausted the last outcome repeats. Empty means always unreachable.
	Results []bool

	// Reachable overrides Results for specific addresses.
	Reachable map[string]bool

	calls []string
	index int
}

// NewFake creates a Fake returning results in order.
func NewFake(results ...bool) *Fake {
	return &Fake{Results: results}
}

// Check records the call and returns the next scripted outcome.
func (f *Fake) Check(ctx context.Context, address string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, address)

	if v, ok := f.Reachable[address]; ok {
		return v
	}
	if len(f.Results) == 0 {
		return false
	}
	r := f.Results[f.index]
	if f.index < len(f.Results)-1 {
		f.index++
	}
	return r
}

// CallCount returns how many checks ran.
func (f *Fake) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Calls returns every address checked so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
