package daskeyboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

func TestFetchAllDecodesShadows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/1.0/signals/shadows" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"zoneId":"1,0","color":"#00CC00","message":"build passed","effect":"SET_COLOR","name":"jenkins"},
			{"zoneId":"2,0","color":"#FFFFFF","message":"cpu is in an unknown state","effect":"BLINK"},
			{"color":"#000000"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/1.0/signals/", "", time.Second)
	snapshot, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll() error: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("len(snapshot) = %d, want 2", len(snapshot))
	}
	first, ok := snapshot.Lookup("1,0")
	if !ok || first.Color != "#00CC00" || first.Message != "build passed" || first.Blink {
		t.Fatalf("zone 1,0 = %+v", first)
	}
	second, _ := snapshot.Lookup("2,0")
	if !second.Blink {
		t.Fatalf("zone 2,0 Blink = false, want true")
	}
}

func TestSetPostsSignal(t *testing.T) {
	var got shadow
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/signals" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/signals", "", time.Second)
	err := client.Set(context.Background(), signal.Signal{
		ZoneID:  "3,0",
		Name:    "cpu",
		Color:   signal.ColorError,
		Message: "cpu is in an unknown state",
		Blink:   true,
	})
	if err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	want := shadow{
		PID:     DefaultPID,
		ZoneID:  "3,0",
		Color:   signal.ColorError,
		Effect:  "BLINK",
		Name:    "cpu",
		Message: "cpu is in an unknown state",
	}
	if got != want {
		t.Fatalf("body = %+v, want %+v", got, want)
	}
}

func TestDeleteUsesPidAndZonePath(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/signals", "CUSTOM", time.Second)
	if err := client.Delete(context.Background(), "4,0"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if want := "/signals/pid/CUSTOM/zoneId/4,0"; path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}

func TestNonSuccessStatusIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad zone", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	err := client.Set(context.Background(), signal.Signal{ZoneID: "x"})
	if signal.KindOf(err) != signal.KindGatewayRejected {
		t.Fatalf("KindOf() = %q, want %q", signal.KindOf(err), signal.KindGatewayRejected)
	}
	var sigErr *signal.Error
	if !errors.As(err, &sigErr) || sigErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("error = %#v, want status 400", err)
	}
	if signal.IsFatal(err) {
		t.Fatalf("IsFatal() = true, want false")
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).FetchAll(context.Background())
	if signal.KindOf(err) != signal.KindGatewayRejected {
		t.Fatalf("KindOf() = %q, want %q", signal.KindOf(err), signal.KindGatewayRejected)
	}
}

func TestClosedServerIsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "", time.Second).FetchAll(context.Background())
	if !signal.IsFatal(err) {
		t.Fatalf("IsFatal(%v) = false, want true", err)
	}
}

func TestCancelledContextIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(server.URL, "", time.Second).FetchAll(ctx)
	if err == nil {
		t.Fatal("FetchAll() error = nil, want error")
	}
	if signal.IsFatal(err) {
		t.Fatalf("IsFatal(%v) = true, want false", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("  ", " ", 0)
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
	if client.pid != DefaultPID {
		t.Fatalf("pid = %q, want %q", client.pid, DefaultPID)
	}
	if client.http.Timeout != defaultTimeout {
		t.Fatalf("timeout = %s, want %s", client.http.Timeout, defaultTimeout)
	}
}
