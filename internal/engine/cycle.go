package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

// Assistant pairs an assistant configuration with its resolver.
type Assistant struct {
	Config   signal.AssistantConfig
	Resolver signal.Resolver
}

// Outcome is the delivery result of one cycle.
type Outcome string

const (
	// OutcomeWritten means a set-signal request was issued.
	OutcomeWritten Outcome = "written"
	// OutcomeUnchanged means the device already showed the computed signal.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeFailed means the gateway could not be read or written.
	OutcomeFailed Outcome = "failed"
)

// Result describes one finished cycle.
type Result struct {
	ID            string        `json:"id"`
	Assistant     string        `json:"assistant"`
	ZoneID        string        `json:"zone_id"`
	State         signal.State  `json:"state,omitempty"`
	Signal        signal.Signal `json:"signal"`
	Outcome       Outcome       `json:"outcome"`
	Fallback      bool          `json:"fallback"`
	NoPriorSignal bool          `json:"no_prior_signal"`
	ErrorKind     signal.Kind   `json:"error_kind,omitempty"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration_ns"`
	Err           error         `json:"-"`
}

func (r *Result) fail(err *signal.Error) {
	r.Err = err
	r.ErrorKind = err.Kind
	r.Error = err.Error()
}

// Cycle runs one resolve-diff-deliver pass for an assistant.
type Cycle struct {
	gateway signal.Gateway
	logger  *slog.Logger
	debug   bool
	now     func() time.Time
}

// NewCycle creates a cycle runner. With debug set, every classified failure is logged
// with its elaboration; otherwise failures only show up on the device.
func NewCycle(gateway signal.Gateway, logger *slog.Logger, debug bool) *Cycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cycle{gateway: gateway, logger: logger, debug: debug, now: time.Now}
}

// Run evaluates the assistant once. It never panics and never returns an error;
// failures are reported through the returned Result.
func (c *Cycle) Run(ctx context.Context, a Assistant) (result Result) {
	cfg := a.Config
	startedAt := c.now()
	result = Result{
		ID:        uuid.NewString(),
		Assistant: cfg.Name,
		ZoneID:    cfg.ZoneID,
		StartedAt: startedAt.UTC(),
	}
	defer func() {
		result.Duration = c.now().Sub(startedAt)
	}()

	desired, state, err := resolve(ctx, a)
	if err != nil {
		classified := signal.Classify(cfg.Name, err)
		c.elaborate(classified)
		desired = cfg.ErrorSignal()
		result.Fallback = true
		result.fail(classified)
	} else {
		result.State = state
	}
	result.Signal = desired

	snapshot, err := c.gateway.FetchAll(ctx)
	if err != nil {
		c.deliveryFailed(&result, err)
		return result
	}

	current, ok := snapshot.Lookup(cfg.ZoneID)
	switch {
	case !ok:
		result.NoPriorSignal = true
		if c.debug {
			c.logger.Debug("no signal found for zone", "assistant", cfg.Name, "zone", cfg.ZoneID)
		}
	case current.SameAs(desired):
		result.Outcome = OutcomeUnchanged
		return result
	}

	if err := c.gateway.Set(ctx, desired); err != nil {
		c.deliveryFailed(&result, err)
		return result
	}
	result.Outcome = OutcomeWritten
	return result
}

func (c *Cycle) deliveryFailed(result *Result, err error) {
	classified := signal.Classify(result.Assistant, err)
	if classified.Kind != signal.KindGatewayUnreachable && classified.Kind != signal.KindGatewayRejected {
		classified = &signal.Error{
			Kind:      signal.KindGatewayRejected,
			Assistant: result.Assistant,
			Err:       err,
		}
	}
	c.elaborate(classified)
	result.Outcome = OutcomeFailed
	result.fail(classified)
}

func (c *Cycle) elaborate(err *signal.Error) {
	if !c.debug || err == nil {
		return
	}
	c.logger.Warn("assistant error",
		"assistant", err.Assistant,
		"kind", string(err.Kind),
		"detail", err.Elaborate(),
	)
}

// resolve calls the resolver in order state, color, message and applies mute.
func resolve(ctx context.Context, a Assistant) (out signal.Signal, state signal.State, err error) {
	cfg := a.Config
	defer func() {
		if recovered := recover(); recovered != nil {
			err = signal.StateUnresolved(cfg.Name, fmt.Errorf("resolver panic: %v", recovered))
		}
	}()

	resolver := a.Resolver
	if resolver == nil {
		resolver = signal.Unimplemented{Name: cfg.Name}
	}
	state, err = resolver.ResolveState(ctx)
	if err != nil {
		return signal.Signal{}, "", err
	}
	color, err := resolver.ResolveColor(state)
	if err != nil {
		return signal.Signal{}, "", err
	}
	message, err := resolver.ResolveMessage(state)
	if err != nil {
		return signal.Signal{}, "", err
	}
	if cfg.Muted {
		message = ""
	}
	return signal.Signal{
		ZoneID:  cfg.ZoneID,
		Name:    cfg.Name,
		Color:   color,
		Message: message,
	}, state, nil
}
