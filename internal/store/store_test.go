package store

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

func TestEncodeLayout(t *testing.T) {
	buf, err := Encode(watchdog.ProbeTarget{Address: "192.168.1.1", PeriodSeconds: 3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(buf) != 69 {
		t.Fatalf("record size: got %d, want 69", len(buf))
	}
	if !bytes.Equal(buf[0:4], []byte{3, 0, 0, 0}) {
		t.Errorf("period bytes: got %v, want [3 0 0 0]", buf[0:4])
	}
	if string(buf[4:15]) != "192.168.1.1" {
		t.Errorf("address bytes: got %q", buf[4:15])
	}
	if buf[15] != 0 {
		t.Errorf("terminator: got %d, want 0", buf[15])
	}
	for i, b := range buf[16:] {
		if b != 0 {
			t.Fatalf("tail byte %d not zero: %d", 16+i, b)
		}
	}
}

func TestEncodeRejectsInvalid(t *testing.T) {
	_, err := Encode(watchdog.ProbeTarget{Address: "r", PeriodSeconds: 0})
	if !errors.Is(err, watchdog.ErrInvalidPeriod) {
		t.Errorf("error: got %v, want ErrInvalidPeriod", err)
	}
}

func TestDecodeFirmwareImage(t *testing.T) {
	// Image as the earlier firmware left it: period 10, address, NUL, garbage tail.
	img := make([]byte, RecordSize)
	img[0] = 10
	copy(img[4:], "box.lan\x00")
	for i := 12; i < len(img); i++ {
		img[i] = 0xff
	}

	got, err := Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := watchdog.ProbeTarget{Address: "box.lan", PeriodSeconds: 10}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeUnterminatedAddress(t *testing.T) {
	img := make([]byte, RecordSize)
	img[0] = 5
	for i := 4; i < len(img); i++ {
		img[i] = 'a'
	}

	got, err := Decode(img)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Address != strings.Repeat("a", 64) {
		t.Errorf("address: got %d bytes, want 64", len(got.Address))
	}
}

func TestDecodeCorrupt(t *testing.T) {
	negative := make([]byte, RecordSize)
	copy(negative, []byte{0xff, 0xff, 0xff, 0xff}) // -1

	tests := []struct {
		name string
		buf  []byte
	}{
		{"Empty", nil},
		{"Short", make([]byte, 10)},
		{"ZeroPeriod", make([]byte, RecordSize)},
		{"NegativePeriod", negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.buf); !errors.Is(err, ErrCorrupt) {
				t.Errorf("error: got %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestRoundTripBoundaries(t *testing.T) {
	tests := []watchdog.ProbeTarget{
		{Address: "", PeriodSeconds: 1},
		{Address: "router", PeriodSeconds: 3},
		{Address: strings.Repeat("x", 64), PeriodSeconds: watchdog.MaxPeriodSeconds},
	}
	for _, want := range tests {
		buf, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%+v): %v", want, err)
		}
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != want {
			t.Errorf("round trip: got %+v, want %+v", got, want)
		}
	}
}

func TestFileStoreMissing(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "sub", "target.bin"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("Load: got %v, want ErrNoRecord", err)
	}
}

// Save, then a fresh store on the same path (simulated restart) loads the same target.
func TestFileStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.bin")
	want := watchdog.ProbeTarget{Address: "8.8.8.8", PeriodSeconds: 30}

	s1, _ := NewFileStore(path)
	if err := s1.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2, _ := NewFileStore(path)
	got, err := s2.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	raw, _ := os.ReadFile(path)
	enc, _ := Encode(want)
	if !bytes.Equal(raw, enc) {
		t.Error("file contents differ from encoded record")
	}
}

func TestFileStoreNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileStore(filepath.Join(dir, "target.bin"))
	s.Save(watchdog.ProbeTarget{Address: "a", PeriodSeconds: 1})
	s.Save(watchdog.ProbeTarget{Address: "b", PeriodSeconds: 2})

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory entries: got %d, want 1", len(entries))
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.bin")
	os.WriteFile(path, []byte("junk"), 0o644)

	s, _ := NewFileStore(path)
	if _, err := s.Load(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Load: got %v, want ErrCorrupt", err)
	}
}

func TestMemStore(t *testing.T) {
	m := NewMemStore()
	if _, err := m.Load(); !errors.Is(err, ErrNoRecord) {
		t.Fatalf("empty Load: got %v, want ErrNoRecord", err)
	}

	want := watchdog.ProbeTarget{Address: "gw", PeriodSeconds: 7}
	if err := m.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := m.Load()
	if err != nil || got != want {
		t.Errorf("Load: got %+v, %v", got, err)
	}
	if len(m.Bytes()) != RecordSize {
		t.Errorf("Bytes: got %d, want %d", len(m.Bytes()), RecordSize)
	}

	m.SaveError = errors.New("eeprom worn out")
	if err := m.Save(want); err == nil {
		t.Error("expected SaveError")
	}
}

func TestLoadOrDefault(t *testing.T) {
	def := watchdog.ProbeTarget{Address: "192.168.1.1", PeriodSeconds: 3}

	m := NewMemStore()
	got, err := LoadOrDefault(m, def)
	if got != def || !errors.Is(err, ErrNoRecord) {
		t.Errorf("empty store: got %+v, %v", got, err)
	}

	stored := watchdog.ProbeTarget{Address: "10.0.0.1", PeriodSeconds: 9}
	m.Save(stored)
	got, err = LoadOrDefault(m, def)
	if got != stored || err != nil {
		t.Errorf("stored: got %+v, %v", got, err)
	}
}
