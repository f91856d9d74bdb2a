package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
)

var ErrNoAssistants = errors.New("config: at least one assistant is required")

// Duration accepts either a Go duration string ("30s") or a bare integer
// number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	raw := strings.TrimSpace(value.Value)
	if value.Tag == "!!int" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("interval %q: %w", raw, err)
		}
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("interval %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// AssistantSpec is one entry of the assistants file.
type AssistantSpec struct {
	Kind     string         `yaml:"kind"`
	Name     string         `yaml:"name"`
	Interval Duration       `yaml:"interval"`
	Zone     string         `yaml:"zone"`
	Muted    bool           `yaml:"muted"`
	Params   map[string]any `yaml:"params"`
}

// Config returns the scheduling part of the entry.
func (s AssistantSpec) Config() signal.AssistantConfig {
	return signal.AssistantConfig{
		Name:     s.Name,
		Interval: time.Duration(s.Interval),
		ZoneID:   s.Zone,
		Muted:    s.Muted,
	}
}

// AssistantsFile is the top-level document of the assistants file.
type AssistantsFile struct {
	Assistants []AssistantSpec `yaml:"assistants"`
}

// LoadAssistants reads path, expands ${VAR} references and validates the result.
func LoadAssistants(path string) (AssistantsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AssistantsFile{}, fmt.Errorf("config: load assistants: %w", err)
	}
	return ParseAssistants(data)
}

// ParseAssistants decodes and validates an assistants document.
func ParseAssistants(data []byte) (AssistantsFile, error) {
	expanded := os.ExpandEnv(string(data))

	var file AssistantsFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return AssistantsFile{}, fmt.Errorf("config: parse assistants: %w", err)
	}
	for i := range file.Assistants {
		spec := &file.Assistants[i]
		spec.Kind = strings.ToLower(strings.TrimSpace(spec.Kind))
		spec.Name = strings.TrimSpace(spec.Name)
		spec.Zone = strings.ReplaceAll(strings.TrimSpace(spec.Zone), " ", "")
	}
	if err := file.Validate(); err != nil {
		return AssistantsFile{}, err
	}
	return file, nil
}

// Validate checks required fields and uniqueness of names and zones.
func (f AssistantsFile) Validate() error {
	if len(f.Assistants) == 0 {
		return ErrNoAssistants
	}
	names := make(map[string]struct{}, len(f.Assistants))
	zones := make(map[string]string, len(f.Assistants))
	for i, a := range f.Assistants {
		if a.Name == "" {
			return fmt.Errorf("config: assistant #%d: name is required", i+1)
		}
		if a.Kind == "" {
			return fmt.Errorf("config: assistant %q: kind is required", a.Name)
		}
		if a.Zone == "" {
			return fmt.Errorf("config: assistant %q: zone is required", a.Name)
		}
		if a.Interval <= 0 {
			return fmt.Errorf("config: assistant %q: interval must be positive", a.Name)
		}
		if _, dup := names[a.Name]; dup {
			return fmt.Errorf("config: duplicate assistant name %q", a.Name)
		}
		names[a.Name] = struct{}{}
		if owner, dup := zones[a.Zone]; dup {
			return fmt.Errorf("config: zone %q used by %q and %q", a.Zone, owner, a.Name)
		}
		zones[a.Zone] = a.Name
	}
	return nil
}
