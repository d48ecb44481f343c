// Package firmware stages a new daemon image and swaps it in atomically.
package firmware

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultMaxBytes caps an uploaded image.
const DefaultMaxBytes = 64 << 20

// Install errors.
var (
	ErrTooLarge   = errors.New("firmware image too large")
	ErrEmptyImage = errors.New("firmware image is empty")
)

// Stager writes images beside Path and renames them over it once complete.
// The running binary stays valid until the rename; a failed install leaves
// it untouched.
type Stager struct {
	Path     string
	MaxBytes int64
}

// NewStager creates a Stager for path. A non-positive maxBytes selects
// DefaultMaxBytes.
func NewStager(path string, maxBytes int64) *Stager {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Stager{Path: path, MaxBytes: maxBytes}
}

// Install streams r into a temp file, then replaces Path with it.
// It returns the number of bytes installed.
func (s *Stager) Install(r io.Reader) (n int64, err error) {
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.staged")
	if err != nil {
		return 0, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	// Read one byte past the limit to detect oversize images.
	n, err = io.Copy(tmp, io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return n, fmt.Errorf("write staging file: %w", err)
	}
	if n > s.MaxBytes {
		return n, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.MaxBytes)
	}
	if n == 0 {
		return 0, ErrEmptyImage
	}

	if err = tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync staging file: %w", err)
	}
	if err = tmp.Chmod(0o755); err != nil {
		return n, fmt.Errorf("chmod staging file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return n, fmt.Errorf("close staging file: %w", err)
	}
	if err = os.Rename(tmpPath, s.Path); err != nil {
		return n, fmt.Errorf("replace firmware: %w", err)
	}
	return n, nil
}
