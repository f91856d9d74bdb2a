package jenkins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/resolvers/webclient"
)

func jenkinsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jenkins/job/team/job/api-build/lastBuild/api/json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestResolveLastBuild(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantState   signal.State
		wantColor   string
		wantMessage string
	}{
		{
			name:        "success",
			body:        `{"number":12,"result":"SUCCESS","building":false}`,
			wantState:   StateSuccess,
			wantColor:   signal.ColorLightGreen,
			wantMessage: "api: the last build was successful",
		},
		{
			name:        "failure",
			body:        `{"number":13,"result":"FAILURE"}`,
			wantState:   StateFailure,
			wantColor:   signal.ColorRed,
			wantMessage: "api: the last build failed",
		},
		{
			name:        "unstable",
			body:        `{"number":14,"result":"UNSTABLE"}`,
			wantState:   StateUnstable,
			wantColor:   signal.ColorYellow,
			wantMessage: "api: the last build was unstable",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := jenkinsServer(t, tt.body)
			r := NewResolver("api", server.URL+"/jenkins/", "team/api-build", webclient.New("", "", time.Second))

			state, err := r.ResolveState(context.Background())
			if err != nil {
				t.Fatalf("ResolveState() error: %v", err)
			}
			color, _ := r.ResolveColor(state)
			message, _ := r.ResolveMessage(state)
			if state != tt.wantState || color != tt.wantColor || message != tt.wantMessage {
				t.Fatalf("got %q/%q/%q", state, color, message)
			}
		})
	}
}

func TestRunningBuildIsAnError(t *testing.T) {
	server := jenkinsServer(t, `{"number":15,"result":null,"building":true}`)
	r := NewResolver("api", server.URL+"/jenkins", "team/api-build", webclient.New("", "", time.Second))

	if _, err := r.ResolveState(context.Background()); !errors.Is(err, ErrBuildRunning) {
		t.Fatalf("ResolveState() error = %v, want %v", err, ErrBuildRunning)
	}
}

func TestAbortedHasNoColor(t *testing.T) {
	r := NewResolver("api", "http://ci", "job", webclient.New("", "", time.Second))
	if _, err := r.ResolveMessage("ABORTED"); signal.KindOf(err) != signal.KindValueNotFound {
		t.Fatalf("ResolveMessage() kind = %q", signal.KindOf(err))
	}
}

func TestNewRequiresServerAndJob(t *testing.T) {
	if _, err := New(registry.Spec{Name: "api", Params: map[string]any{"server_url": "http://ci"}}); err == nil {
		t.Fatalf("New() error = nil, want missing job")
	}
	if _, err := New(registry.Spec{Name: "api", Params: map[string]any{"server_url": "http://ci", "job": "x", "username": "u", "token": "t"}}); err != nil {
		t.Fatalf("New() error: %v", err)
	}
}
