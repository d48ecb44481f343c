package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/sweeney/net-watchdog/internal/status"
	"github.com/sweeney/net-watchdog/internal/watchdog"
)

// fail maps a controller error to a response.
func fail(w http.ResponseWriter, route string, err error) {
	var verr *watchdog.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrUnknownAction):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "watchdog busy", http.StatusServiceUnavailable)
	default:
		log.Printf("web: %s: %v", route, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	// The restart follows, so the reply goes out first.
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if err := s.ctl.ResetProvisioning(r.Context()); err != nil {
		log.Printf("web: reset: %v", err)
	}
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Reboot(r.Context()); err != nil {
		fail(w, "reboot", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleOTA(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Maintenance(r.Context(), r.URL.Query().Get("action")); err != nil {
		fail(w, "ota", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	period, err := strconv.Atoi(strings.TrimSpace(q.Get("period")))
	if err != nil {
		http.Error(w, "period: not an integer", http.StatusBadRequest)
		return
	}
	if err := s.ctl.Commit(r.Context(), q.Get("address"), period); err != nil {
		fail(w, "commit", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ok, err := s.ctl.Check(r.Context(), r.URL.Query().Get("address"))
	if err != nil {
		fail(w, "check", err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRearm(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Rearm(r.Context()); err != nil {
		fail(w, "rearm", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Switch(r.Context()); err != nil {
		fail(w, "switch", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ctl.Status(r.Context())
	if err != nil {
		fail(w, "status", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/info" {
		http.NotFound(w, r)
		return
	}
	snap, err := s.ctl.Status(r.Context())
	if err != nil {
		fail(w, "info", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderInfo(w, snap, s.opts.UploadField)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHelp(w, s.opts.Version)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n, err := s.receiveFirmware(r)
	if err != nil {
		log.Printf("web: update failed: %v", err)
	} else {
		log.Printf("web: update succeeded: %d bytes", n)
	}

	if rerr := s.ctl.FirmwareInstalled(r.Context(), err == nil); rerr != nil {
		log.Printf("web: report update result: %v", rerr)
	}

	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
	renderUpdate(w, err == nil, s.opts.RefreshSeconds)
}

// receiveFirmware streams the upload field straight into the installer.
func (s *Server) receiveFirmware(r *http.Request) (int64, error) {
	if s.installer == nil {
		return 0, errors.New("firmware updates are not configured")
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return 0, fmt.Errorf("read multipart body: %w", err)
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return 0, fmt.Errorf("find field %q: %w", s.opts.UploadField, err)
		}
		if part.FormName() != s.opts.UploadField {
			part.Close()
			continue
		}
		log.Printf("web: receiving firmware %q", part.FileName())
		n, err := s.installer.Install(part)
		part.Close()
		return n, err
	}
}
