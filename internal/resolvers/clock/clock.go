// Package clock signals a recurring time window on selected weekdays.
package clock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

const (
	Kind = "clock"

	StateNotify signal.State = "notify"
	StateSleep  signal.State = "sleep"
)

var weekdayNames = map[string]int{
	"monday": 0, "mon": 0,
	"tuesday": 1, "tue": 1,
	"wednesday": 2, "wed": 2,
	"thursday": 3, "thu": 3,
	"friday": 4, "fri": 4,
	"saturday": 5, "sat": 5,
	"sunday": 6, "sun": 6,
}

// Resolver is in StateNotify while now falls in [hour:minute, +duration) of an
// enabled weekday. A window that crosses midnight belongs to the day it starts on.
type Resolver struct {
	name     string
	weekdays map[int]struct{}
	location *time.Location
	hour     int
	minute   int
	duration time.Duration
	now      func() time.Time
	colors   signal.Table
	messages signal.Table
}

// New builds a clock resolver from params: weekdays, timezone, hour, minute, duration.
func New(spec registry.Spec) (signal.Resolver, error) {
	weekdays, err := parseWeekdays(spec.Params["weekdays"])
	if err != nil {
		return nil, err
	}
	tzName, err := params.OptionalString(spec.Params, "timezone", "Local")
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("param \"timezone\": %w", err)
	}
	hour, err := params.Int(spec.Params, "hour")
	if err != nil {
		return nil, err
	}
	minute, err := params.OptionalInt(spec.Params, "minute", 0)
	if err != nil {
		return nil, err
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, fmt.Errorf("time %02d:%02d is out of range", hour, minute)
	}
	duration, err := params.OptionalDuration(spec.Params, "duration", time.Minute, 0)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, fmt.Errorf("param \"duration\" must be positive")
	}
	return newResolver(spec.Name, weekdays, location, hour, minute, duration, time.Now), nil
}

func newResolver(
	name string,
	weekdays map[int]struct{},
	location *time.Location,
	hour, minute int,
	duration time.Duration,
	now func() time.Time,
) *Resolver {
	return &Resolver{
		name:     name,
		weekdays: weekdays,
		location: location,
		hour:     hour,
		minute:   minute,
		duration: duration,
		now:      now,
		colors: signal.Table{
			StateNotify: signal.ColorOrange,
			StateSleep:  signal.ColorLightBlue,
		},
		messages: signal.Table{
			StateNotify: name + " is within the desired time range",
			StateSleep:  name + " is not within the desired time range",
		},
	}
}

func (r *Resolver) ResolveState(context.Context) (signal.State, error) {
	now := r.now().In(r.location)
	// Check the window starting today and the one that started yesterday.
	for _, offset := range []int{0, -1} {
		day := now.AddDate(0, 0, offset)
		if _, ok := r.weekdays[mondayIndex(day.Weekday())]; !ok {
			continue
		}
		start := time.Date(day.Year(), day.Month(), day.Day(), r.hour, r.minute, 0, 0, r.location)
		if !now.Before(start) && now.Before(start.Add(r.duration)) {
			return StateNotify, nil
		}
	}
	return StateSleep, nil
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return r.colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	return r.messages.Message(r.name, state)
}

// mondayIndex maps time.Weekday to 0=Monday ... 6=Sunday.
func mondayIndex(day time.Weekday) int {
	return (int(day) + 6) % 7
}

func parseWeekdays(raw any) (map[int]struct{}, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("param \"weekdays\" must be a non-empty list")
	}
	out := make(map[int]struct{}, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case int:
			if v < 0 || v > 6 {
				return nil, fmt.Errorf("weekday index %d is out of range 0-6", v)
			}
			out[v] = struct{}{}
		case string:
			idx, ok := weekdayNames[strings.ToLower(strings.TrimSpace(v))]
			if !ok {
				return nil, fmt.Errorf("unknown weekday %q", v)
			}
			out[idx] = struct{}{}
		default:
			return nil, fmt.Errorf("weekday %v must be an index or a name", item)
		}
	}
	return out, nil
}
