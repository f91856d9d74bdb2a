// Package resolvers wires every built-in assistant kind into one registry.
package resolvers

import (
	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/clock"
	"github.com/micro-ha/q5-assistants/internal/resolvers/command"
	"github.com/micro-ha/q5-assistants/internal/resolvers/cpu"
	"github.com/micro-ha/q5-assistants/internal/resolvers/gitrepo"
	"github.com/micro-ha/q5-assistants/internal/resolvers/jenkins"
	"github.com/micro-ha/q5-assistants/internal/resolvers/messages"
	"github.com/micro-ha/q5-assistants/internal/resolvers/metra"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
	"github.com/micro-ha/q5-assistants/internal/resolvers/vagrant"
	"github.com/micro-ha/q5-assistants/internal/resolvers/yamlwatch"
)

// KindTemplate builds an assistant without detection logic. Every cycle of it
// falls back to the error signal.
const KindTemplate = "template"

// Default returns a registry with all built-in kinds. External commands run
// through command.Exec.
func Default() *registry.Registry {
	return NewRegistry(command.Exec{})
}

// NewRegistry returns a registry with all built-in kinds; git and vagrant use runner.
func NewRegistry(runner command.Runner) *registry.Registry {
	reg := registry.New()
	reg.Register(KindTemplate, func(spec registry.Spec) (signal.Resolver, error) {
		spec.Logger.Warn("assistant has no detection logic", "assistant", spec.Name)
		return signal.Unimplemented{Name: spec.Name}, nil
	})
	reg.Register(clock.Kind, clock.New)
	reg.Register(cpu.Kind, cpu.New)
	for kind, factory := range gitrepo.Factories(runner) {
		reg.Register(kind, factory)
	}
	reg.Register(jenkins.Kind, jenkins.New)
	reg.Register(metra.Kind, metra.New)
	reg.Register(messages.Kind, messages.New)
	reg.Register(vagrant.Kind, vagrant.Factory(runner))
	reg.Register(yamlwatch.Kind, yamlwatch.New)
	return reg
}
