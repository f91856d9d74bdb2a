package cpu

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

type fakeSampler struct {
	pct   float64
	err   error
	match string
}

func (f *fakeSampler) Sample(_ context.Context, match string, _ time.Duration) (float64, error) {
	f.match = match
	return f.pct, f.err
}

func TestBand(t *testing.T) {
	tests := []struct {
		pct  float64
		want signal.State
	}{
		{pct: 0, want: StateOff},
		{pct: 0.1, want: StateLow},
		{pct: 50, want: StateLow},
		{pct: 50.5, want: StateMedium},
		{pct: 100, want: StateMedium},
		{pct: 180, want: StateHigh},
	}
	for _, tt := range tests {
		if got := Band(tt.pct); got != tt.want {
			t.Fatalf("Band(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestResolverUsesLowercasedMatch(t *testing.T) {
	sampler := &fakeSampler{pct: 75}
	r := NewWithSampler("Chrome", "Chrome", time.Second, sampler)

	state, err := r.ResolveState(context.Background())
	if err != nil {
		t.Fatalf("ResolveState() error: %v", err)
	}
	if state != StateMedium {
		t.Fatalf("ResolveState() = %q, want %q", state, StateMedium)
	}
	if sampler.match != "chrome" {
		t.Fatalf("match = %q, want chrome", sampler.match)
	}
	color, _ := r.ResolveColor(state)
	message, _ := r.ResolveMessage(state)
	if color != signal.ColorYellow || message != "Chrome is running (medium)" {
		t.Fatalf("signal = %q/%q", color, message)
	}
}

func TestResolverPropagatesSamplerError(t *testing.T) {
	r := NewWithSampler("x", "x", 0, &fakeSampler{err: errors.New("permission denied")})
	if _, err := r.ResolveState(context.Background()); err == nil {
		t.Fatalf("ResolveState() error = nil, want error")
	}
}

func TestNewRequiresProcess(t *testing.T) {
	if _, err := New(registry.Spec{Name: "x", Params: map[string]any{}}); err == nil {
		t.Fatalf("New() error = nil, want error")
	}
	if _, err := New(registry.Spec{Name: "x", Params: map[string]any{"process": "go", "window": "500ms"}}); err != nil {
		t.Fatalf("New() error: %v", err)
	}
}

func TestProcessSamplerFindsNothingForUnknownName(t *testing.T) {
	pct, err := ProcessSampler{}.Sample(context.Background(), "no-such-process-"+filepath.Base(os.Args[0])+"-zz", 10*time.Millisecond)
	if err != nil {
		t.Skipf("process table unavailable: %v", err)
	}
	if pct != 0 {
		t.Fatalf("Sample() = %v, want 0", pct)
	}
}
