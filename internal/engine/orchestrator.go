package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

const defaultShutdownTimeout = 10 * time.Second

var (
	// ErrAlreadyStarted means StartAll was called on running workers.
	ErrAlreadyStarted = errors.New("assistants already started")
	// ErrAssistantNotFound means no worker is registered under the given name.
	ErrAssistantNotFound = errors.New("assistant not found")
)

// CleanupScope selects which zones are deleted on shutdown.
type CleanupScope string

const (
	// CleanupOwned deletes only zones owned by configured assistants.
	CleanupOwned CleanupScope = "owned"
	// CleanupAll deletes every zone present on the device.
	CleanupAll CleanupScope = "all"
)

// ParseCleanupScope maps a configuration value to a scope, defaulting to CleanupOwned.
func ParseCleanupScope(raw string) CleanupScope {
	if strings.EqualFold(strings.TrimSpace(raw), string(CleanupAll)) {
		return CleanupAll
	}
	return CleanupOwned
}

// Observer receives every finished cycle result.
type Observer interface {
	Observe(result Result)
}

// Options tunes orchestrator behaviour.
type Options struct {
	Debug           bool
	CycleTimeout    time.Duration
	ShutdownTimeout time.Duration
	CleanupScope    CleanupScope
	Observers       []Observer
}

type worker struct {
	scheduler *Scheduler
	cancel    context.CancelFunc
	done      chan struct{}
}

// Orchestrator runs one scheduler per assistant and coordinates shutdown.
type Orchestrator struct {
	gateway    signal.Gateway
	cycle      *Cycle
	assistants []Assistant
	opts       Options
	logger     *slog.Logger

	mu      sync.Mutex
	workers []*worker
	byName  map[string]*worker

	fatalCh   chan error
	fatalOnce sync.Once
}

// New creates an orchestrator for assistants.
func New(gateway signal.Gateway, assistants []Assistant, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.CleanupScope == "" {
		opts.CleanupScope = CleanupOwned
	}
	return &Orchestrator{
		gateway:    gateway,
		cycle:      NewCycle(gateway, logger.With("component", "cycle"), opts.Debug),
		assistants: append([]Assistant(nil), assistants...),
		opts:       opts,
		logger:     logger,
		byName:     map[string]*worker{},
		fatalCh:    make(chan error, 1),
	}
}

// StartAll launches one worker per assistant and returns without waiting for any cycle.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.workers) > 0 {
		return ErrAlreadyStarted
	}

	for _, assistant := range o.assistants {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			scheduler: NewScheduler(assistant, o.cycle, o.opts.CycleTimeout, o.handleResult, o.logger),
			cancel:    cancel,
			done:      make(chan struct{}),
		}
		go func() {
			defer close(w.done)
			w.scheduler.Run(workerCtx)
		}()
		o.workers = append(o.workers, w)
		o.byName[assistant.Config.Name] = w
	}
	o.logger.Info("assistants started", "count", len(o.workers))
	return nil
}

// ShutdownAll stops every worker, waits for them up to the shutdown timeout and
// deletes the selected zones from the device.
func (o *Orchestrator) ShutdownAll(ctx context.Context) error {
	o.mu.Lock()
	workers := o.workers
	o.workers = nil
	o.byName = map[string]*worker{}
	o.mu.Unlock()

	for _, w := range workers {
		w.cancel()
	}
	o.awaitWorkers(workers)

	snapshot, err := o.gateway.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("cleanup fetch: %w", err)
	}

	zones := o.cleanupZones(snapshot)
	var deleteErrors []error
	for _, zone := range zones {
		if err := o.gateway.Delete(ctx, zone); err != nil {
			o.logger.Warn("zone cleanup failed", "zone", zone, "err", err)
			deleteErrors = append(deleteErrors, fmt.Errorf("delete zone %s: %w", zone, err))
		}
	}
	o.logger.Info("assistants stopped", "workers", len(workers), "zones_cleared", len(zones)-len(deleteErrors))
	return errors.Join(deleteErrors...)
}

// Fatal delivers the first error that makes the whole process unusable.
func (o *Orchestrator) Fatal() <-chan error {
	return o.fatalCh
}

// Refresh requests an immediate cycle for the named assistant.
func (o *Orchestrator) Refresh(name string) error {
	o.mu.Lock()
	w, ok := o.byName[name]
	o.mu.Unlock()
	if !ok {
		return ErrAssistantNotFound
	}
	w.scheduler.TriggerRefresh()
	return nil
}

// Statuses returns worker statuses ordered by assistant name.
func (o *Orchestrator) Statuses() []Status {
	o.mu.Lock()
	workers := append([]*worker(nil), o.workers...)
	o.mu.Unlock()

	out := make([]Status, 0, len(workers))
	for _, w := range workers {
		out = append(out, w.scheduler.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Assistants returns the number of configured assistants.
func (o *Orchestrator) Assistants() int {
	return len(o.assistants)
}

func (o *Orchestrator) handleResult(result Result) {
	if signal.IsFatal(result.Err) {
		o.fatalOnce.Do(func() {
			o.fatalCh <- result.Err
		})
	}
	for _, observer := range o.opts.Observers {
		observer.Observe(result)
	}
}

func (o *Orchestrator) awaitWorkers(workers []*worker) {
	timer := time.NewTimer(o.opts.ShutdownTimeout)
	defer timer.Stop()
	for _, w := range workers {
		select {
		case <-w.done:
		case <-timer.C:
			o.logger.Warn("workers did not stop before timeout; abandoning in-flight cycles",
				"timeout", o.opts.ShutdownTimeout.String())
			return
		}
	}
}

func (o *Orchestrator) cleanupZones(snapshot signal.Snapshot) []string {
	var zones []string
	switch o.opts.CleanupScope {
	case CleanupAll:
		zones = snapshot.Zones()
	default:
		seen := map[string]struct{}{}
		for _, assistant := range o.assistants {
			zone := assistant.Config.ZoneID
			if _, dup := seen[zone]; dup {
				continue
			}
			seen[zone] = struct{}{}
			if _, ok := snapshot.Lookup(zone); ok {
				zones = append(zones, zone)
			}
		}
	}
	sort.Strings(zones)
	return zones
}
