package registry

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

func TestRegistryRegisterAndBuild(t *testing.T) {
	reg := New()
	reg.Register("template", func(spec Spec) (signal.Resolver, error) {
		return signal.Unimplemented{Name: spec.Name}, nil
	})
	reg.Register("broken", func(Spec) (signal.Resolver, error) {
		return nil, errors.New("missing param \"path\"")
	})
	reg.Register("ignored", nil)

	if got, want := reg.Kinds(), []string{"broken", "template"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Kinds() = %v, want %v", got, want)
	}

	resolver, err := reg.Build("template", Spec{Name: "T"})
	if err != nil {
		t.Fatalf("Build(template) error: %v", err)
	}
	if _, err := resolver.ResolveState(context.Background()); signal.KindOf(err) != signal.KindNotImplemented {
		t.Fatalf("ResolveState() kind = %q, want %q", signal.KindOf(err), signal.KindNotImplemented)
	}

	if _, err := reg.Build("broken", Spec{Name: "B"}); err == nil {
		t.Fatalf("Build(broken) error = nil, want error")
	}
	if _, err := reg.Build("nope", Spec{Name: "N"}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Build(nope) error = %v, want %v", err, ErrUnknownKind)
	}
}
