package clock

import (
	"math"
	"testing"
	"time"
)

func TestElapsed(t *testing.T) {
	tests := []struct {
		name      string
		now, then Millis
		want      uint32
	}{
		{"Simple", 5000, 2000, 3000},
		{"Zero", 100, 100, 0},
		{"AcrossWrap", 1000, math.MaxUint32 - 999, 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Elapsed(tt.now, tt.then); got != tt.want {
				t.Errorf("Elapsed(%d, %d) = %d, want %d", tt.now, tt.then, got, tt.want)
			}
		})
	}
}

func TestAfter(t *testing.T) {
	tests := []struct {
		name string
		a, b Millis
		want bool
	}{
		{"Later", 10, 5, true},
		{"Earlier", 5, 10, false},
		{"Equal", 7, 7, false},
		{"LaterAcrossWrap", 10, math.MaxUint32 - 10, true},
		{"EarlierAcrossWrap", math.MaxUint32 - 10, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := After(tt.a, tt.b); got != tt.want {
				t.Errorf("After(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAddWraps(t *testing.T) {
	m := Millis(math.MaxUint32 - 499)
	if got := m.Add(time.Second); got != 500 {
		t.Errorf("Add across wrap: got %d, want 500", got)
	}
}

func TestUntil(t *testing.T) {
	if got := Until(3000, 1000); got != 2*time.Second {
		t.Errorf("Until future: got %v, want 2s", got)
	}
	if got := Until(1000, 3000); got != -2*time.Second {
		t.Errorf("Until past: got %v, want -2s", got)
	}
	if got := Until(500, math.MaxUint32-499); got != time.Second {
		t.Errorf("Until across wrap: got %v, want 1s", got)
	}
}

func TestFakeAdvance(t *testing.T) {
	f := NewFake(0)
	f.Advance(1500 * time.Millisecond)
	if f.Now() != 1500 {
		t.Errorf("Now: got %d, want 1500", f.Now())
	}
	f.Set(42)
	if f.Now() != 42 {
		t.Errorf("Now after Set: got %d, want 42", f.Now())
	}
}

func TestRealStartsAtOffset(t *testing.T) {
	r := NewRealAt(1000)
	got := r.Now()
	if got < 1000 || got > 2000 {
		t.Errorf("Now: got %d, want close to 1000", got)
	}
}
