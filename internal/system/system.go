// Package system restarts the daemon and resets its network provisioning.
package system

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"syscall"
)

// ExecRestarter replaces the running process with a fresh copy of its
// executable, picking up any newly installed firmware.
type ExecRestarter struct {
	// Before runs just before exec, e.g. to publish a shutdown event and
	// release the relay line.
	Before func(reason string)

	exec func(argv0 string, argv []string, envv []string) error
	exit func(code int)
}

// NewExecRestarter creates a restarter calling before ahead of exec.
func NewExecRestarter(before func(reason string)) *ExecRestarter {
	return &ExecRestarter{Before: before, exec: syscall.Exec, exit: os.Exit}
}

// Restart does not return. If exec fails, the process exits with status 1
// so a supervisor can start it again.
func (r *ExecRestarter) Restart(reason string) {
	if r.Before != nil {
		r.Before(reason)
	}

	exe, err := os.Executable()
	if err == nil {
		log.Printf("system: restarting %s (%s)", exe, reason)
		err = r.exec(exe, os.Args, os.Environ())
	}
	log.Printf("system: exec failed, exiting: %v", err)
	r.exit(1)
}

// FakeRestarter records restart requests for tests.
type FakeRestarter struct {
	mu      sync.Mutex
	Reasons []string
}

// Restart records reason and returns.
func (f *FakeRestarter) Restart(reason string) {
	f.mu.Lock()
	f.Reasons = append(f.Reasons, reason)
	f.mu.Unlock()
}

// Count returns how many restarts were requested.
func (f *FakeRestarter) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Reasons)
}

// Provisioner forgets the stored network identity.
type Provisioner interface {
	Reset() error
}

// FileProvisioner deletes network identity files (e.g. a wpa_supplicant
// network block written for this node). Missing files are ignored.
type FileProvisioner struct {
	Paths []string
}

// Reset removes every configured path and reports all failures.
func (p FileProvisioner) Reset() error {
	var errs []error
	for _, path := range p.Paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", path, err))
			continue
		}
		log.Printf("system: cleared network identity %s", path)
	}
	return errors.Join(errs...)
}
