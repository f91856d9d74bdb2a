package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

var ErrUnknownKind = errors.New("unknown assistant kind")

// Spec is what a factory needs to build one resolver.
type Spec struct {
	Name   string
	Params map[string]any
	Logger *slog.Logger
}

// Factory builds a resolver for one configured assistant.
type Factory func(spec Spec) (signal.Resolver, error)

// Registry stores resolver factories keyed by kind.
type Registry struct {
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds a factory for kind, replacing any previous one.
func (r *Registry) Register(kind string, factory Factory) {
	if factory == nil {
		return
	}
	r.factories[kind] = factory
}

// Build creates the resolver for kind.
func (r *Registry) Build(kind string, spec Spec) (signal.Resolver, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	if spec.Params == nil {
		spec.Params = map[string]any{}
	}
	if spec.Logger == nil {
		spec.Logger = slog.Default()
	}
	resolver, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("assistant %q (%s): %w", spec.Name, kind, err)
	}
	return resolver, nil
}

// Kinds returns the registered kinds in stable order.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}
