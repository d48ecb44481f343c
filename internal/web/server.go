// Package web serves the HTTP control surface: one handler per route, each
// translating the request into a call on the Controller.
package web

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/net-watchdog/internal/status"
)

// ErrUnknownAction is returned by Controller.Maintenance for an action other
// than on, off or toggle.
var ErrUnknownAction = errors.New("unknown maintenance action")

// Controller carries out control requests. Implementations run them on the
// watchdog loop and return once they are done.
type Controller interface {
	ResetProvisioning(ctx context.Context) error
	Reboot(ctx context.Context) error
	Maintenance(ctx context.Context, action string) error
	Commit(ctx context.Context, address string, periodSeconds int) error
	Check(ctx context.Context, address string) (bool, error)
	Rearm(ctx context.Context) error
	Switch(ctx context.Context) error
	Status(ctx context.Context) (status.Snapshot, error)
	FirmwareInstalled(ctx context.Context, ok bool) error
}

// Installer stages an uploaded firmware image.
type Installer interface {
	Install(r io.Reader) (int64, error)
}

// Options tunes the pages.
type Options struct {
	// UploadField is the multipart field holding the firmware image.
	UploadField string
	// RefreshSeconds is the redirect delay on the update result page.
	RefreshSeconds int
	Version        string
}

// Server serves the control surface over HTTP.
type Server struct {
	httpServer *http.Server
	ctl        Controller
	installer  Installer
	opts       Options
}

// New creates a Server. installer may be nil, in which case /update
// always fails.
func New(addr string, ctl Controller, installer Installer, opts Options) *Server {
	if opts.UploadField == "" {
		opts.UploadField = "fileToUpload"
	}
	if opts.RefreshSeconds <= 0 {
		opts.RefreshSeconds = 4
	}
	s := &Server{ctl: ctl, installer: installer, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleInfo)
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/help", s.handleHelp)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/reboot", s.handleReboot)
	mux.HandleFunc("/ota", s.handleOTA)
	mux.HandleFunc("/update", s.handleUpdate)
	mux.HandleFunc("/commit", s.handleCommit)
	mux.HandleFunc("/check", s.handleCheck)
	mux.HandleFunc("/rearm", s.handleRearm)
	mux.HandleFunc("/switch", s.handleSwitch)
	mux.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
