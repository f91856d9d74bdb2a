package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/micro-ha/q5-assistants/internal/engine"
	"github.com/micro-ha/q5-assistants/internal/storage"
)

// ListAssistants returns the status of every worker.
func (a *API) ListAssistants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.orchestrator.Statuses()})
}

// RefreshAssistant schedules an out-of-band cycle for one assistant.
func (a *API) RefreshAssistant(w http.ResponseWriter, _ *http.Request, name string) {
	err := a.orchestrator.Refresh(name)
	if errors.Is(err, engine.ErrAssistantNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "Assistant not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "refresh_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// AssistantHistory returns recent journaled cycles of one assistant.
func (a *API) AssistantHistory(w http.ResponseWriter, r *http.Request, name string) {
	if a.journal == nil {
		writeError(w, http.StatusConflict, "journal_disabled", "Cycle journal is not enabled")
		return
	}
	if !a.known(name) {
		writeError(w, http.StatusNotFound, "not_found", "Assistant not found")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = value
	}

	items, err := a.journal.ListRecent(r.Context(), name, limit)
	if errors.Is(err, storage.ErrInvalidLimit) {
		writeError(w, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "history_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Events upgrades the request to a websocket streaming cycle results.
func (a *API) Events(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeError(w, http.StatusNotFound, "events_disabled", "Event stream is not enabled")
		return
	}
	a.events.ServeWS(w, r)
}

func (a *API) known(name string) bool {
	for _, status := range a.orchestrator.Statuses() {
		if status.Name == name {
			return true
		}
	}
	return false
}
