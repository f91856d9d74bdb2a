// Package cpu signals how busy the processes matching a name are.
package cpu

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

const (
	Kind = "cpu"

	StateOff    signal.State = "off"
	StateLow    signal.State = "low"
	StateMedium signal.State = "medium"
	StateHigh   signal.State = "high"

	defaultWindow = time.Second
)

// Sampler measures the combined CPU percent of every process whose name
// contains match, case-insensitively, over window.
type Sampler interface {
	Sample(ctx context.Context, match string, window time.Duration) (float64, error)
}

// Resolver maps the sampled CPU percent to a load band.
type Resolver struct {
	name     string
	match    string
	window   time.Duration
	sampler  Sampler
	colors   signal.Table
	messages signal.Table
}

// New builds a cpu resolver from params: process, window.
func New(spec registry.Spec) (signal.Resolver, error) {
	match, err := params.String(spec.Params, "process")
	if err != nil {
		return nil, err
	}
	window, err := params.OptionalDuration(spec.Params, "window", time.Second, defaultWindow)
	if err != nil {
		return nil, err
	}
	return NewWithSampler(spec.Name, match, window, ProcessSampler{}), nil
}

// NewWithSampler builds a resolver using sampler.
func NewWithSampler(name, match string, window time.Duration, sampler Sampler) *Resolver {
	if window <= 0 {
		window = defaultWindow
	}
	return &Resolver{
		name:    name,
		match:   strings.ToLower(match),
		window:  window,
		sampler: sampler,
		colors: signal.Table{
			StateOff:    signal.ColorRed,
			StateLow:    signal.ColorOrange,
			StateMedium: signal.ColorYellow,
			StateHigh:   signal.ColorLightGreen,
		},
		messages: signal.Table{
			StateOff:    name + " has turned off",
			StateLow:    name + " is running (low)",
			StateMedium: name + " is running (medium)",
			StateHigh:   name + " is running (high)",
		},
	}
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	pct, err := r.sampler.Sample(ctx, r.match, r.window)
	if err != nil {
		return "", err
	}
	return Band(pct), nil
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return r.colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	return r.messages.Message(r.name, state)
}

// Band maps a CPU percent to a state. Multi-core processes may exceed 100.
func Band(pct float64) signal.State {
	switch {
	case pct <= 0:
		return StateOff
	case pct <= 50:
		return StateLow
	case pct <= 100:
		return StateMedium
	default:
		return StateHigh
	}
}

// ProcessSampler samples CPU times of live processes with gopsutil.
type ProcessSampler struct{}

func (ProcessSampler) Sample(ctx context.Context, match string, window time.Duration) (float64, error) {
	before, err := matchingCPUTimes(ctx, match)
	if err != nil {
		return 0, err
	}
	if len(before) == 0 {
		return 0, nil
	}
	startedAt := time.Now()
	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}
	after, err := matchingCPUTimes(ctx, match)
	if err != nil {
		return 0, err
	}

	var busy float64
	for pid, total := range after {
		// Processes that started during the window have no baseline and are skipped.
		if prev, ok := before[pid]; ok && total >= prev {
			busy += total - prev
		}
	}
	elapsed := time.Since(startedAt).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	return busy / elapsed * 100, nil
}

// matchingCPUTimes returns user+system seconds per matching pid. Processes that
// vanish or deny access while being inspected are ignored.
func matchingCPUTimes(ctx context.Context, match string) (map[int32]float64, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	out := map[int32]float64{}
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			continue
		}
		if !strings.Contains(strings.ToLower(name), match) {
			continue
		}
		times, err := proc.TimesWithContext(ctx)
		if err != nil {
			continue
		}
		out[proc.Pid] = times.User + times.System
	}
	return out, nil
}
