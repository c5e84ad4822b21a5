// Package mealwindow decides which meal a point in time belongs to and
// whether ordering, confirmation, and cancellation are currently allowed.
// Every comparison happens on the canteen's canonical civil clock; the
// only projection point is Policy.Civil.
package mealwindow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

// Window is a half-open civil time-of-day range [Start, End), in minutes
// from midnight.
type Window struct {
	Start int
	End   int
}

type Policy struct {
	loc          *time.Location
	windows      map[dining.MealType]Window
	cancelCutoff time.Duration
}

// New builds a policy from the configured timezone name, a window spec of
// the form "breakfast=06:00-10:00,lunch=11:00-14:00,dinner=17:00-20:00",
// and the cancellation cutoff (how long before a meal's start cancellation
// closes).
func New(tzName, spec string, cancelCutoff time.Duration) (*Policy, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tzName, err)
	}
	windows, err := parseSpec(spec)
	if err != nil {
		return nil, err
	}
	return &Policy{loc: loc, windows: windows, cancelCutoff: cancelCutoff}, nil
}

func parseSpec(spec string) (map[dining.MealType]Window, error) {
	windows := map[dining.MealType]Window{}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, rng, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("meal window %q: want meal=HH:MM-HH:MM", part)
		}
		meal := dining.MealType(strings.TrimSpace(name))
		if !meal.Valid() {
			return nil, fmt.Errorf("unknown meal type %q", name)
		}
		from, to, ok := strings.Cut(rng, "-")
		if !ok {
			return nil, fmt.Errorf("meal window %q: want meal=HH:MM-HH:MM", part)
		}
		start, err := parseMinutes(from)
		if err != nil {
			return nil, fmt.Errorf("meal window %q: %w", part, err)
		}
		end, err := parseMinutes(to)
		if err != nil {
			return nil, fmt.Errorf("meal window %q: %w", part, err)
		}
		if end <= start {
			return nil, fmt.Errorf("meal window %q: end must be after start", part)
		}
		windows[meal] = Window{Start: start, End: end}
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("no meal windows configured")
	}
	return windows, nil
}

func parseMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Civil projects an absolute instant onto the canonical civil clock. All
// window math goes through here; nothing else may shift hours.
func (p *Policy) Civil(t time.Time) time.Time {
	return t.In(p.loc)
}

// Today returns the canonical civil date for an instant.
func (p *Policy) Today(now time.Time) string {
	return p.Civil(now).Format("2006-01-02")
}

// ResolveMealType maps an instant to the meal whose window contains it.
func (p *Policy) ResolveMealType(now time.Time) (dining.MealType, bool) {
	m := minuteOfDay(p.Civil(now))
	for meal, w := range p.windows {
		if m >= w.Start && m < w.End {
			return meal, true
		}
	}
	return "", false
}

// WithinConfirmationWindow reports whether a confirmation for the given
// meal is allowed right now, i.e. now falls inside the meal's serving
// window on the canonical clock.
func (p *Policy) WithinConfirmationWindow(meal dining.MealType, now time.Time) bool {
	w, ok := p.windows[meal]
	if !ok {
		return false
	}
	m := minuteOfDay(p.Civil(now))
	return m >= w.Start && m < w.End
}

// WithinOrderingWindow reports whether an order for (date, meal) may still
// be placed: the dining date is today or later, and for today's orders the
// meal has not started yet.
func (p *Policy) WithinOrderingWindow(date string, meal dining.MealType, now time.Time) (bool, error) {
	start, err := p.MealStart(date, meal)
	if err != nil {
		return false, err
	}
	return now.Before(start), nil
}

// PastCancellationCutoff reports whether cancellation for (date, meal) has
// closed: the cutoff sits cancelCutoff before the meal's start.
func (p *Policy) PastCancellationCutoff(date string, meal dining.MealType, now time.Time) (bool, error) {
	start, err := p.MealStart(date, meal)
	if err != nil {
		return false, err
	}
	return !now.Before(start.Add(-p.cancelCutoff)), nil
}

// DateInPast reports whether a civil dining date is before today on the
// canonical clock.
func (p *Policy) DateInPast(date string, now time.Time) (bool, error) {
	d, err := time.ParseInLocation("2006-01-02", date, p.loc)
	if err != nil {
		return false, dining.E(dining.KindValidation, "invalid date, want YYYY-MM-DD")
	}
	today, _ := time.ParseInLocation("2006-01-02", p.Today(now), p.loc)
	return d.Before(today), nil
}

// MealStart returns the absolute instant the meal's window opens on the
// given civil date.
func (p *Policy) MealStart(date string, meal dining.MealType) (time.Time, error) {
	w, ok := p.windows[meal]
	if !ok {
		return time.Time{}, dining.E(dining.KindValidation, "unknown meal type")
	}
	d, err := time.ParseInLocation("2006-01-02", date, p.loc)
	if err != nil {
		return time.Time{}, dining.E(dining.KindValidation, "invalid date, want YYYY-MM-DD")
	}
	return d.Add(time.Duration(w.Start) * time.Minute), nil
}

// Meals lists the configured meal types ordered by window start.
func (p *Policy) Meals() []dining.MealType {
	out := make([]dining.MealType, 0, len(p.windows))
	for meal := range p.windows {
		out = append(out, meal)
	}
	sort.Slice(out, func(i, j int) bool {
		return p.windows[out[i]].Start < p.windows[out[j]].Start
	})
	return out
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
