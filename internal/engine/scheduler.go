package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultInterval     = 10 * time.Second
	defaultCycleTimeout = 2 * time.Minute
)

// Status is a point-in-time view of one assistant worker.
type Status struct {
	Name     string        `json:"name"`
	ZoneID   string        `json:"zone_id"`
	Interval time.Duration `json:"interval_ns"`
	Muted    bool          `json:"muted"`
	InFlight bool          `json:"in_flight"`
	Cycles   int64         `json:"cycles"`
	Writes   int64         `json:"writes"`
	Skipped  int64         `json:"skipped"`
	Last     *Result       `json:"last,omitempty"`
}

// Scheduler drives repeated cycles for one assistant. At most one cycle is in
// flight at a time; ticks that fire while a cycle runs are skipped.
type Scheduler struct {
	assistant    Assistant
	cycle        *Cycle
	cycleTimeout time.Duration
	onResult     func(Result)
	logger       *slog.Logger

	busy      atomic.Bool
	refreshCh chan struct{}
	inFlight  sync.WaitGroup

	mu     sync.Mutex
	status Status
}

// NewScheduler creates a scheduler for a. onResult is called from the cycle
// goroutine after every finished cycle.
func NewScheduler(
	a Assistant,
	cycle *Cycle,
	cycleTimeout time.Duration,
	onResult func(Result),
	logger *slog.Logger,
) *Scheduler {
	if cycleTimeout <= 0 {
		cycleTimeout = defaultCycleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		assistant:    a,
		cycle:        cycle,
		cycleTimeout: cycleTimeout,
		onResult:     onResult,
		logger:       logger.With("assistant", a.Config.Name, "zone", a.Config.ZoneID),
		refreshCh:    make(chan struct{}, 1),
		status: Status{
			Name:     a.Config.Name,
			ZoneID:   a.Config.ZoneID,
			Interval: a.Config.Interval,
			Muted:    a.Config.Muted,
		},
	}
}

// TriggerRefresh requests an out-of-band cycle. Requests coalesce.
func (s *Scheduler) TriggerRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Run evaluates immediately and then every interval until ctx is cancelled.
// On cancellation it stops spawning cycles and waits for the in-flight one.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.assistant.Config.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.inFlight.Wait()
			return
		case <-ticker.C:
			s.tick(ctx)
		case <-s.refreshCh:
			s.tick(ctx)
		}
	}
}

// Status returns a copy of the worker counters and last result.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.status
	out.InFlight = s.busy.Load()
	if s.status.Last != nil {
		last := *s.status.Last
		out.Last = &last
	}
	return out
}

func (s *Scheduler) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.mu.Lock()
		s.status.Skipped++
		s.mu.Unlock()
		s.logger.Debug("previous cycle still running; tick skipped")
		return false
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		defer s.busy.Store(false)

		// In-flight cycles are not aborted by stop; only the cycle timeout bounds them.
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
		defer cancel()

		result := s.cycle.Run(cycleCtx, s.assistant)
		s.record(result)
		if s.onResult != nil {
			s.onResult(result)
		}
	}()
	return true
}

func (s *Scheduler) record(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Cycles++
	if result.Outcome == OutcomeWritten {
		s.status.Writes++
	}
	s.status.Last = &result
}
