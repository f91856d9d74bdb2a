package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/micro-ha/q5-assistants/internal/engine"
	"github.com/micro-ha/q5-assistants/internal/storage"
)

// Orchestrator exposes the running assistant workers.
type Orchestrator interface {
	Statuses() []engine.Status
	Refresh(name string) error
	Assistants() int
}

// Journal reads persisted cycle results.
type Journal interface {
	ListRecent(ctx context.Context, assistant string, limit int) ([]storage.Entry, error)
}

// API groups HTTP handlers and dependencies.
type API struct {
	orchestrator Orchestrator
	journal      Journal
	events       *Hub
	logger       *slog.Logger
}

// New creates HTTP handlers with explicit dependencies. journal may be nil
// when cycle results are not persisted.
func New(orchestrator Orchestrator, journal Journal, events *Hub, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		orchestrator: orchestrator,
		journal:      journal,
		events:       events,
		logger:       logger,
	}
}

// Logger returns request logger used by HTTP middleware.
func (a *API) Logger() *slog.Logger {
	return a.logger
}

// Health reports liveness and the number of configured assistants.
func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "assistants": a.orchestrator.Assistants()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
