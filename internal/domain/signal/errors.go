package signal

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures recognised by the engine.
type Kind string

const (
	KindNotImplemented     Kind = "not_implemented"
	KindValueNotFound      Kind = "value_not_found"
	KindStateUnresolved    Kind = "state_unresolved"
	KindGatewayUnreachable Kind = "gateway_unreachable"
	KindGatewayRejected    Kind = "gateway_rejected"
)

// Resolver methods named in NotImplemented errors.
const (
	MethodState   = "state"
	MethodColor   = "color"
	MethodMessage = "message"
)

// Error is the engine-level failure of one assistant.
type Error struct {
	Kind      Kind
	Assistant string
	// Method is the resolver method for NotImplemented and the HTTP method for gateway failures.
	Method string
	// State and Value describe a ValueNotFound lookup.
	State State
	Value string
	// StatusCode is the device response status for GatewayRejected, 0 when no response arrived.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "assistant error"
	}
	if e.Assistant == "" {
		return e.Elaborate()
	}
	return e.Assistant + ": " + e.Elaborate()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Elaborate returns the human-readable explanation for the failure.
func (e *Error) Elaborate() string {
	if e == nil {
		return "assistant error"
	}
	var text string
	switch e.Kind {
	case KindNotImplemented:
		text = fmt.Sprintf("the method for identifying %s was never implemented", e.Method)
	case KindValueNotFound:
		text = fmt.Sprintf("the value of %s could not be found for the state of %q", e.Value, e.State)
	case KindStateUnresolved:
		text = "failed to identify state"
	case KindGatewayUnreachable:
		text = "the connection to the keyboard was refused, please verify that the client application is running"
	case KindGatewayRejected:
		if e.StatusCode == 0 {
			text = fmt.Sprintf("%s request to the keyboard received no response", e.Method)
		} else {
			text = fmt.Sprintf("%s request to the keyboard failed with status %d %s",
				e.Method, e.StatusCode, http.StatusText(e.StatusCode))
		}
	default:
		text = string(e.Kind)
	}
	if e.Err != nil {
		text += ": " + e.Err.Error()
	}
	return text
}

// NotImplemented reports a resolver method that has not been supplied.
func NotImplemented(assistant, method string) error {
	return &Error{Kind: KindNotImplemented, Assistant: assistant, Method: method}
}

// ValueNotFound reports a state with no color or message mapping.
func ValueNotFound(assistant string, state State, value string) error {
	return &Error{Kind: KindValueNotFound, Assistant: assistant, State: state, Value: value}
}

// StateUnresolved reports that the assistant could not determine its state.
func StateUnresolved(assistant string, cause error) error {
	return &Error{Kind: KindStateUnresolved, Assistant: assistant, Err: cause}
}

// GatewayUnreachable reports that the device API is not listening.
func GatewayUnreachable(method string, cause error) error {
	return &Error{Kind: KindGatewayUnreachable, Method: method, Err: cause}
}

// GatewayRejected reports a non-success device response.
func GatewayRejected(method string, statusCode int, cause error) error {
	return &Error{Kind: KindGatewayRejected, Method: method, StatusCode: statusCode, Err: cause}
}

// KindOf classifies err. Errors outside the taxonomy fold into KindStateUnresolved.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target.Kind
	}
	return KindStateUnresolved
}

// IsFatal reports whether err makes every assistant unusable.
func IsFatal(err error) bool {
	return KindOf(err) == KindGatewayUnreachable
}

// Classify returns err as an *Error attributed to assistant.
// Unknown errors are wrapped as StateUnresolved.
func Classify(assistant string, err error) *Error {
	if err == nil {
		return nil
	}
	var target *Error
	if errors.As(err, &target) && target != nil {
		out := *target
		if out.Assistant == "" {
			out.Assistant = assistant
		}
		return &out
	}
	return &Error{Kind: KindStateUnresolved, Assistant: assistant, Err: err}
}
