package signal

import "context"

// Resolver produces the state, color and message of one assistant.
// ResolveState is called first; ResolveColor and ResolveMessage receive its result.
type Resolver interface {
	ResolveState(ctx context.Context) (State, error)
	ResolveColor(state State) (string, error)
	ResolveMessage(state State) (string, error)
}

// Unimplemented is the resolver used when no detection logic was supplied.
type Unimplemented struct {
	Name string
}

func (u Unimplemented) ResolveState(context.Context) (State, error) {
	return "", NotImplemented(u.Name, MethodState)
}

func (u Unimplemented) ResolveColor(State) (string, error) {
	return "", NotImplemented(u.Name, MethodColor)
}

func (u Unimplemented) ResolveMessage(State) (string, error) {
	return "", NotImplemented(u.Name, MethodMessage)
}

// Table maps states to a color or message.
type Table map[State]string

// Lookup returns the value for state or a ValueNotFound error naming value.
func (t Table) Lookup(assistant string, state State, value string) (string, error) {
	if item, ok := t[state]; ok {
		return item, nil
	}
	return "", ValueNotFound(assistant, state, value)
}

// Color looks state up as a color.
func (t Table) Color(assistant string, state State) (string, error) {
	return t.Lookup(assistant, state, MethodColor)
}

// Message looks state up as a message.
func (t Table) Message(assistant string, state State) (string, error) {
	return t.Lookup(assistant, state, MethodMessage)
}
