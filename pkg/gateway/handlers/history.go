package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vango-go/vai-copilot/pkg/core/live"
	"github.com/vango-go/vai-copilot/pkg/gateway/apierror"
	"github.com/vango-go/vai-copilot/pkg/gateway/history"
	"github.com/vango-go/vai-copilot/pkg/gateway/mw"
)

// HistoryReader is the read side of the history store.
type HistoryReader interface {
	Sessions(ctx context.Context, limit int) ([]history.SessionSummary, error)
	Turns(ctx context.Context, sessionID string) ([]live.ConversationTurn, error)
}

// HistoryHandler lists stored sessions and their turns so the UI can show
// past conversations.
type HistoryHandler struct {
	Store  HistoryReader
	Logger *slog.Logger
}

// ListSessions serves GET /v1/history/sessions?limit=N.
func (h HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.fail(w, r, http.StatusBadRequest, "invalid_request_error", "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := h.Store.Sessions(r.Context(), limit)
	if err != nil {
		h.logger().Error("list history sessions", "err", err)
		h.failErr(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []history.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// SessionTurns serves GET /v1/history/sessions/{id}/turns.
func (h HistoryHandler) SessionTurns(w http.ResponseWriter, r *http.Request) {
	if !h.available(w, r) {
		return
	}
	id := mux.Vars(r)["id"]
	turns, err := h.Store.Turns(r.Context(), id)
	if err != nil {
		h.logger().Error("read history turns", "session_id", id, "err", err)
		h.failErr(w, r, err)
		return
	}
	if len(turns) == 0 {
		h.fail(w, r, http.StatusNotFound, "not_found_error", "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "turns": turns})
}

func (h HistoryHandler) available(w http.ResponseWriter, r *http.Request) bool {
	if h.Store == nil {
		h.fail(w, r, http.StatusNotFound, "not_found_error", "history is disabled")
		return false
	}
	return true
}

func (h HistoryHandler) fail(w http.ResponseWriter, r *http.Request, status int, typ, msg string) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	mw.WriteJSONError(w, status, mw.ErrorBody{Type: typ, Message: msg, RequestID: reqID})
}

func (h HistoryHandler) failErr(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	apierror.Write(w, err, reqID)
}

func (h HistoryHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
