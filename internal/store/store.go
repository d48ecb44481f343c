package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// Store loads and saves the probe target.
type Store interface {
	Load() (watchdog.ProbeTarget, error)
	Save(watchdog.ProbeTarget) error
}

// FileStore keeps the record in a single file. Writes go to a temp file that
// is synced and renamed over the record, so a power cut leaves either the old
// or the new record.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path, creating its directory.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Path returns the record file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the record. A missing file is ErrNoRecord; an unreadable or
// malformed one wraps ErrCorrupt or the I/O error.
func (s *FileStore) Load() (watchdog.ProbeTarget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return watchdog.ProbeTarget{}, ErrNoRecord
	}
	if err != nil {
		return watchdog.ProbeTarget{}, fmt.Errorf("read record: %w", err)
	}
	return Decode(data)
}

// Save writes the record.
func (s *FileStore) Save(t watchdog.ProbeTarget) error {
	buf, err := Encode(t)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	if _, err := f.Write(buf); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp record: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace record: %w", err)
	}
	return nil
}

// MemStore keeps the encoded record in memory. It goes through the same
// codec as FileStore so tests see identical validation.
type MemStore struct {
	mu   sync.Mutex
	data []byte

	// SaveError, if set, is returned by Save.
	SaveError error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load decodes the stored record.
func (m *MemStore) Load() (watchdog.ProbeTarget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return watchdog.ProbeTarget{}, ErrNoRecord
	}
	return Decode(m.data)
}

// Save encodes and keeps t.
func (m *MemStore) Save(t watchdog.ProbeTarget) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	buf, err := Encode(t)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = buf
	m.mu.Unlock()
	return nil
}

// Bytes returns a copy of the raw record, or nil.
func (m *MemStore) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// LoadOrDefault returns the stored target, or def when the store has no
// usable record. The error explains why def was used.
func LoadOrDefault(s Store, def watchdog.ProbeTarget) (watchdog.ProbeTarget, error) {
	t, err := s.Load()
	if err != nil {
		return def, err
	}
	return t, nil
}
