// Package ota implements the maintenance session: while it is up, the node
// accepts firmware pushed to a dedicated listener and advertises that
// listener over mDNS.
package ota

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Defaults.
const (
	DefaultAddr     = ":8266"
	ServiceType     = "_netwatchdog-ota._tcp"
	Domain          = "local."
	DefaultInstance = "net-watchdog"
)

// Installer writes a firmware image.
type Installer interface {
	Install(r io.Reader) (int64, error)
}

// Advertiser announces the OTA listener on the local network.
type Advertiser interface {
	Advertise(instance string, port int, txt []string) error
	Withdraw() error
}

// ResultFunc is called after every upload attempt.
type ResultFunc func(ctx context.Context, ok bool, err error)

// Config configures a Session.
type Config struct {
	Addr     string
	Instance string
	Version  string
}

// Session is the maintenance capability. Start and Stop are called from the
// watchdog loop; uploads are handled on the listener's goroutines.
type Session struct {
	cfg        Config
	installer  Installer
	advertiser Advertiser
	onResult   ResultFunc

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr

	// uploading serialises installs on the listener.
	uploading sync.Mutex
}

// NewSession creates an inactive session. advertiser may be nil.
func NewSession(cfg Config, installer Installer, advertiser Advertiser, onResult ResultFunc) *Session {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Instance == "" {
		cfg.Instance = DefaultInstance
	}
	return &Session{cfg: cfg, installer: installer, advertiser: advertiser, onResult: onResult}
}

// Start opens the OTA listener and advertises it.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/firmware", s.handleFirmware)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("ota: listener error: %v", err)
		}
	}()

	s.server = srv
	s.addr = ln.Addr()

	if s.advertiser != nil {
		port := 0
		if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
		txt := []string{"version=" + s.cfg.Version, "path=/firmware"}
		if err := s.advertiser.Advertise(s.cfg.Instance, port, txt); err != nil {
			// The listener is still reachable by address.
			log.Printf("ota: mdns advertise failed: %v", err)
		}
	}

	log.Printf("ota: accepting firmware on %s", ln.Addr())
	return nil
}

// Stop withdraws the advertisement and closes the listener immediately,
// aborting any upload in progress.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	var errs []error
	if s.advertiser != nil {
		if err := s.advertiser.Withdraw(); err != nil {
			errs = append(errs, fmt.Errorf("withdraw mdns: %w", err))
		}
	}
	if err := s.server.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}
	s.server = nil
	s.addr = nil
	log.Printf("ota: listener closed")
	return errors.Join(errs...)
}

// Active reports whether the listener is open.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Addr returns the listener address while active.
func (s *Session) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *Session) handleFirmware(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		w.Header().Set("Allow", "PUT, POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.uploading.TryLock() {
		http.Error(w, "update already in progress", http.StatusConflict)
		return
	}
	defer s.uploading.Unlock()

	n, err := s.installer.Install(r.Body)
	if s.onResult != nil {
		s.onResult(r.Context(), err == nil, err)
	}
	if err != nil {
		log.Printf("ota: update failed: %v", err)
		http.Error(w, "update failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("ota: update succeeded: %d bytes", n)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "OK %d\n", n)
}
