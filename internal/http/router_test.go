package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/engine"
	"github.com/micro-ha/q5-assistants/internal/http/handlers"
	"github.com/micro-ha/q5-assistants/internal/storage"
)

type fakeOrchestrator struct {
	statuses  []engine.Status
	refreshed []string
}

func (f *fakeOrchestrator) Statuses() []engine.Status { return f.statuses }

func (f *fakeOrchestrator) Refresh(name string) error {
	for _, status := range f.statuses {
		if status.Name == name {
			f.refreshed = append(f.refreshed, name)
			return nil
		}
	}
	return engine.ErrAssistantNotFound
}

func (f *fakeOrchestrator) Assistants() int { return len(f.statuses) }

type fakeJournal struct {
	entries   []storage.Entry
	lastLimit int
}

func (f *fakeJournal) ListRecent(_ context.Context, assistant string, limit int) ([]storage.Entry, error) {
	if limit < 0 {
		return nil, storage.ErrInvalidLimit
	}
	f.lastLimit = limit
	var out []storage.Entry
	for _, entry := range f.entries {
		if entry.Assistant == assistant {
			out = append(out, entry)
		}
	}
	return out, nil
}

func newTestOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{statuses: []engine.Status{
		{Name: "build", ZoneID: "1,0", Interval: time.Minute, Cycles: 3, Writes: 1},
		{Name: "cpu", ZoneID: "2,0", Interval: 10 * time.Second},
	}}
}

func TestHealthReportsAssistantCount(t *testing.T) {
	router := NewRouter(handlers.New(newTestOrchestrator(), nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status     string `json:"status"`
		Assistants int    `json:"assistants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Assistants != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestListAssistants(t *testing.T) {
	router := NewRouter(handlers.New(newTestOrchestrator(), nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assistants", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Items []engine.Status `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 || body.Items[0].Name != "build" || body.Items[0].Cycles != 3 {
		t.Fatalf("items = %+v", body.Items)
	}
}

func TestRefreshAssistant(t *testing.T) {
	orch := newTestOrchestrator()
	router := NewRouter(handlers.New(orch, nil, nil, nil))

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "known", path: "/api/assistants/cpu/refresh", want: http.StatusAccepted},
		{name: "unknown", path: "/api/assistants/nope/refresh", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if len(orch.refreshed) != 1 || orch.refreshed[0] != "cpu" {
		t.Fatalf("refreshed = %v, want [cpu]", orch.refreshed)
	}
}

func TestHistoryWithoutJournalConflicts(t *testing.T) {
	router := NewRouter(handlers.New(newTestOrchestrator(), nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assistants/build/history", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "journal_disabled") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestHistory(t *testing.T) {
	journal := &fakeJournal{entries: []storage.Entry{
		{ID: "1", Assistant: "build", Outcome: engine.OutcomeWritten},
		{ID: "2", Assistant: "cpu", Outcome: engine.OutcomeUnchanged},
	}}
	router := NewRouter(handlers.New(newTestOrchestrator(), journal, nil, nil))

	tests := []struct {
		name      string
		path      string
		want      int
		wantLimit int
	}{
		{name: "default limit", path: "/api/assistants/build/history", want: http.StatusOK},
		{name: "explicit limit", path: "/api/assistants/build/history?limit=5", want: http.StatusOK, wantLimit: 5},
		{name: "non numeric limit", path: "/api/assistants/build/history?limit=abc", want: http.StatusBadRequest},
		{name: "negative limit", path: "/api/assistants/build/history?limit=-1", want: http.StatusBadRequest},
		{name: "unknown assistant", path: "/api/assistants/nope/history", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			journal.lastLimit = -99
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want != http.StatusOK {
				return
			}
			if journal.lastLimit != tt.wantLimit {
				t.Fatalf("limit = %d, want %d", journal.lastLimit, tt.wantLimit)
			}
			var body struct {
				Items []storage.Entry `json:"items"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Items) != 1 || body.Items[0].ID != "1" {
				t.Fatalf("items = %+v", body.Items)
			}
		})
	}
}

func TestEventsStreamCycleResults(t *testing.T) {
	hub := handlers.NewHub(nil)
	defer hub.Close()
	server := httptest.NewServer(NewRouter(handlers.New(newTestOrchestrator(), nil, hub, nil)))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("Subscribers() = %d, want 1", hub.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Observe(engine.Result{
		ID:        "abc",
		Assistant: "build",
		ZoneID:    "1,0",
		Signal:    signal.Signal{ZoneID: "1,0", Color: signal.ColorLightGreen, Message: "build passed"},
		Outcome:   engine.OutcomeWritten,
	})

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var event struct {
		Type   string        `json:"type"`
		Result engine.Result `json:"result"`
	}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read: %v", err)
	}
	if event.Type != "cycle" || event.Result.ID != "abc" || event.Result.Signal.Color != signal.ColorLightGreen {
		t.Fatalf("event = %+v", event)
	}
}

func TestEventsDisabled(t *testing.T) {
	router := NewRouter(handlers.New(newTestOrchestrator(), nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
