// Package vagrant signals the state of one vagrant VM.
package vagrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/command"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

const Kind = "vagrant"

const (
	StatePoweroff  signal.State = "poweroff"
	StateAborted   signal.State = "aborted"
	StateRunning   signal.State = "running"
	StateRestoring signal.State = "restoring"
	StateSaved     signal.State = "saved"
	StateSaving    signal.State = "saving"
)

// Resolver reads `vagrant status <id>` and takes the token that follows the VM name.
type Resolver struct {
	name   string
	vmName string
	vmID   string
	runner command.Runner
}

// Factory returns a registry factory using runner. Params: vm_name, vm_id.
func Factory(runner command.Runner) registry.Factory {
	return func(spec registry.Spec) (signal.Resolver, error) {
		vmName, err := params.String(spec.Params, "vm_name")
		if err != nil {
			return nil, err
		}
		vmID, err := params.String(spec.Params, "vm_id")
		if err != nil {
			return nil, err
		}
		return New(spec.Name, vmName, vmID, runner), nil
	}
}

func New(name, vmName, vmID string, runner command.Runner) *Resolver {
	if runner == nil {
		runner = command.Exec{}
	}
	return &Resolver{name: name, vmName: vmName, vmID: vmID, runner: runner}
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	out, err := r.runner.Run(ctx, "", "vagrant", "status", r.vmID)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	for i, field := range fields {
		if field == r.vmName && i+1 < len(fields) {
			return signal.State(fields[i+1]), nil
		}
	}
	return "", fmt.Errorf("status of vm %q not found", r.vmName)
}

var colors = signal.Table{
	StatePoweroff:  signal.ColorRed,
	StateAborted:   signal.ColorRed,
	StateRunning:   signal.ColorLightGreen,
	StateRestoring: signal.ColorLightGreen,
	StateSaved:     signal.ColorLightBlue,
	StateSaving:    signal.ColorLightBlue,
}

var messages = signal.Table{
	StatePoweroff:  "Your vagrant is off",
	StateAborted:   "Your vagrant is aborted",
	StateRunning:   "Your vagrant is running",
	StateRestoring: "Your vagrant is running",
	StateSaved:     "Your vagrant is suspended",
	StateSaving:    "Your vagrant is suspended",
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	return messages.Message(r.name, state)
}
