package signal

import "time"

// State is the resolver-defined condition an assistant is currently in.
type State string

// AssistantConfig is the immutable per-assistant configuration read by the engine.
type AssistantConfig struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	ZoneID   string        `json:"zone_id"`
	Muted    bool          `json:"muted"`
}

// ErrorSignal returns the fallback signal shown when the assistant state is unknown.
func (c AssistantConfig) ErrorSignal() Signal {
	return Signal{
		ZoneID:  c.ZoneID,
		Name:    c.Name,
		Color:   ColorError,
		Message: UnknownStateMessage(c.Name),
		Blink:   true,
	}
}

// UnknownStateMessage is the message delivered with the error color.
func UnknownStateMessage(name string) string {
	return name + " is in an unknown state"
}

// Signal is the desired or observed state of one device zone.
type Signal struct {
	ZoneID  string `json:"zone_id"`
	Name    string `json:"name,omitempty"`
	Color   string `json:"color"`
	Message string `json:"message"`
	Blink   bool   `json:"blink"`
}

// SameAs reports whether two signals show the same color and message.
// The blink flag is ignored.
func (s Signal) SameAs(other Signal) bool {
	return s.Color == other.Color && s.Message == other.Message
}

// Snapshot maps zone identifiers to the signals the device currently holds.
type Snapshot map[string]Signal

// Lookup returns the signal for zoneID.
func (s Snapshot) Lookup(zoneID string) (Signal, bool) {
	if s == nil {
		return Signal{}, false
	}
	item, ok := s[zoneID]
	return item, ok
}

// Zones returns all zone identifiers present in the snapshot.
func (s Snapshot) Zones() []string {
	out := make([]string, 0, len(s))
	for zone := range s {
		out = append(out, zone)
	}
	return out
}
