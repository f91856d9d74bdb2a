// Package params reads typed values out of the free-form params map of an
// assistants file entry.
package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// String returns a required, non-empty string param.
func String(params map[string]any, key string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("missing param %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q must be string", key)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("param %q is empty", key)
	}
	return value, nil
}

// OptionalString returns fallback when key is absent or empty.
func OptionalString(params map[string]any, key, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("param %q must be string", key)
	}
	if value = strings.TrimSpace(value); value == "" {
		return fallback, nil
	}
	return value, nil
}

// Int returns a required integer param. YAML numbers and numeric strings are accepted.
func Int(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("missing param %q", key)
	}
	return toInt(key, raw)
}

// OptionalInt returns fallback when key is absent.
func OptionalInt(params map[string]any, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	return toInt(key, raw)
}

func toInt(key string, raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("param %q must be an integer", key)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("param %q must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("param %q must be an integer", key)
	}
}

// OptionalBool returns fallback when key is absent.
func OptionalBool(params map[string]any, key string, fallback bool) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("param %q must be boolean", key)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("param %q must be boolean", key)
	}
}

// Strings returns a list of strings. A single string is treated as a one-item list.
func Strings(params map[string]any, key string) ([]string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("param %q item %d must be string", key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %q must be a list of strings", key)
	}
}

// OptionalStrings is like Strings but keeps nil entries, returned as nil pointers.
// A YAML null in a list is how a direct-message group is written.
func OptionalStrings(params map[string]any, key string) ([]*string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if s, isString := raw.(string); isString {
			return []*string{&s}, nil
		}
		return nil, fmt.Errorf("param %q must be a list", key)
	}
	out := make([]*string, 0, len(items))
	for i, item := range items {
		if item == nil {
			out = append(out, nil)
			continue
		}
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("param %q item %d must be string or null", key, i)
		}
		out = append(out, &s)
	}
	return out, nil
}

// OptionalDuration accepts a duration string or a number of the given unit.
func OptionalDuration(params map[string]any, key string, unit, fallback time.Duration) (time.Duration, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	if s, isString := raw.(string); isString {
		if parsed, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return parsed, nil
		}
	}
	n, err := toInt(key, raw)
	if err != nil {
		return 0, fmt.Errorf("param %q must be a duration", key)
	}
	return time.Duration(n) * unit, nil
}
