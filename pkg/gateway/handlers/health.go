package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/vango-go/vai-copilot/pkg/core/live"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// StateSource reports the engine state. *live.Engine implements it.
type StateSource interface {
	State() live.State
	CurrentSession() (string, bool)
	SearchEnabled() bool
	Capturing() bool
}

// ReadyHandler reports whether the bridge accepts clients and what the
// engine is doing.
type ReadyHandler struct {
	Engine StateSource
	// Draining and Clients describe the bridge. Both are optional.
	Draining func() bool
	Clients  func() int
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK            bool   `json:"ok"`
		State         string `json:"state"`
		SessionID     string `json:"session_id,omitempty"`
		SearchEnabled bool   `json:"search_enabled"`
		Capturing     bool   `json:"capturing"`
		Clients       int    `json:"clients"`
		Draining      bool   `json:"draining"`
	}

	var resp readyResp
	if h.Draining != nil {
		resp.Draining = h.Draining()
	}
	if h.Engine != nil {
		resp.State = h.Engine.State().String()
		resp.SessionID, _ = h.Engine.CurrentSession()
		resp.SearchEnabled = h.Engine.SearchEnabled()
		resp.Capturing = h.Engine.Capturing()
	}
	if h.Clients != nil {
		resp.Clients = h.Clients()
	}
	resp.OK = h.Engine != nil && !resp.Draining

	status := http.StatusOK
	if !resp.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
