package sched

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// TriggerTimes holds the notifier's daily trigger schedule in the source
// timezone.
type TriggerTimes struct {
	times []timeOfDay
	loc   *time.Location
}

type timeOfDay struct {
	hour   int
	minute int
}

// Window is a half-open publication interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the half-open interval.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.From) && ts.Before(w.To)
}

// ParseTriggerTimes parses a list of "HH:MM" values. Duplicates are dropped;
// the schedule is kept sorted.
func ParseTriggerTimes(values []string, loc *time.Location) (*TriggerTimes, error) {
	if len(values) == 0 {
		return nil, errors.New("trigger times: at least one HH:MM time required")
	}
	if loc == nil {
		loc = time.UTC
	}

	seen := make(map[timeOfDay]struct{}, len(values))
	times := make([]timeOfDay, 0, len(values))
	for _, value := range values {
		parsed, err := time.Parse("15:04", value)
		if err != nil {
			return nil, fmt.Errorf("trigger times: invalid time %q", value)
		}
		tod := timeOfDay{hour: parsed.Hour(), minute: parsed.Minute()}
		if _, ok := seen[tod]; ok {
			continue
		}
		seen[tod] = struct{}{}
		times = append(times, tod)
	}
	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})

	return &TriggerTimes{times: times, loc: loc}, nil
}

// Next returns the earliest trigger strictly after now.
func (t *TriggerTimes) Next(now time.Time) time.Time {
	now = now.In(t.loc)
	for _, tod := range t.times {
		candidate := t.at(now, tod)
		if candidate.After(now) {
			return candidate
		}
	}
	return t.at(now.AddDate(0, 0, 1), t.times[0])
}

// Current returns the latest trigger at or before now.
func (t *TriggerTimes) Current(now time.Time) time.Time {
	now = now.In(t.loc)
	for i := len(t.times) - 1; i >= 0; i-- {
		candidate := t.at(now, t.times[i])
		if !candidate.After(now) {
			return candidate
		}
	}
	return t.at(now.AddDate(0, 0, -1), t.times[len(t.times)-1])
}

// Before returns the latest trigger strictly before now. For a trigger time
// itself this is the preceding slot, which is what window computation needs.
func (t *TriggerTimes) Before(now time.Time) time.Time {
	return t.Current(now.In(t.loc).Add(-time.Second))
}

// WindowAt computes the publication window for a cycle running at trigger:
// [previous trigger - shift, trigger). The backward shift tolerates analysis
// lag between the downloader and this trigger.
func (t *TriggerTimes) WindowAt(trigger time.Time, shift time.Duration) Window {
	return Window{
		From: t.Before(trigger).Add(-shift),
		To:   trigger.In(t.loc),
	}
}

// ShiftedPrevious returns the lower bound the downloader uses to decide
// which articles are fresh: the latest trigger at or before now, minus shift.
func (t *TriggerTimes) ShiftedPrevious(now time.Time, shift time.Duration) time.Time {
	return t.Current(now).Add(-shift)
}

func (t *TriggerTimes) at(day time.Time, tod timeOfDay) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.hour, tod.minute, 0, 0, t.loc)
}
