package mealwindow

import (
	"testing"
	"time"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

const spec = "breakfast=06:00-10:00,lunch=11:00-14:00,dinner=17:00-20:00"

func newPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := New("Asia/Shanghai", spec, 2*time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func shanghai(t *testing.T, value string) time.Time {
	t.Helper()
	loc, _ := time.LoadLocation("Asia/Shanghai")
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return ts
}

func TestResolveMealType(t *testing.T) {
	p := newPolicy(t)
	cases := []struct {
		at   string
		want dining.MealType
		ok   bool
	}{
		{"2025-09-11 06:00:00", dining.Breakfast, true},
		{"2025-09-11 09:59:59", dining.Breakfast, true},
		{"2025-09-11 10:00:00", "", false},
		{"2025-09-11 10:59:59", "", false},
		{"2025-09-11 11:00:00", dining.Lunch, true},
		{"2025-09-11 13:59:00", dining.Lunch, true},
		{"2025-09-11 14:00:00", "", false},
		{"2025-09-11 19:30:00", dining.Dinner, true},
		{"2025-09-11 23:00:00", "", false},
	}
	for _, c := range cases {
		got, ok := p.ResolveMealType(shanghai(t, c.at))
		if ok != c.ok || got != c.want {
			t.Errorf("ResolveMealType(%s) = (%q, %v), want (%q, %v)", c.at, got, ok, c.want, c.ok)
		}
	}
}

func TestConfirmationWindowBoundary(t *testing.T) {
	p := newPolicy(t)
	if p.WithinConfirmationWindow(dining.Lunch, shanghai(t, "2025-09-11 10:59:59")) {
		t.Error("10:59:59 must be outside the lunch confirmation window")
	}
	if !p.WithinConfirmationWindow(dining.Lunch, shanghai(t, "2025-09-11 11:00:00")) {
		t.Error("11:00:00 must be inside the lunch confirmation window")
	}
	if p.WithinConfirmationWindow(dining.Lunch, shanghai(t, "2025-09-11 14:00:00")) {
		t.Error("14:00:00 must be outside the lunch confirmation window")
	}
}

// The same absolute instant must produce the same outcome regardless of the
// representation it arrives in.
func TestTimezoneNormalization(t *testing.T) {
	p := newPolicy(t)
	// 03:30 UTC == 11:30 in Asia/Shanghai
	utc := time.Date(2025, 9, 11, 3, 30, 0, 0, time.UTC)
	if !p.WithinConfirmationWindow(dining.Lunch, utc) {
		t.Error("03:30 UTC is inside the Shanghai lunch window")
	}
	if meal, ok := p.ResolveMealType(utc); !ok || meal != dining.Lunch {
		t.Errorf("ResolveMealType(03:30 UTC) = (%q, %v), want lunch", meal, ok)
	}
	if got := p.Today(utc); got != "2025-09-11" {
		t.Errorf("Today(03:30 UTC) = %q", got)
	}
	// 20:00 UTC on the 10th is already the 11th in Shanghai
	late := time.Date(2025, 9, 10, 20, 0, 0, 0, time.UTC)
	if got := p.Today(late); got != "2025-09-11" {
		t.Errorf("Today must roll to the canonical civil date, got %q", got)
	}
}

func TestOrderingWindow(t *testing.T) {
	p := newPolicy(t)
	ok, err := p.WithinOrderingWindow("2025-09-11", dining.Lunch, shanghai(t, "2025-09-11 10:59:00"))
	if err != nil || !ok {
		t.Errorf("ordering before meal start must be allowed, got ok=%v err=%v", ok, err)
	}
	ok, err = p.WithinOrderingWindow("2025-09-11", dining.Lunch, shanghai(t, "2025-09-11 11:00:00"))
	if err != nil || ok {
		t.Errorf("ordering at meal start must be closed, got ok=%v err=%v", ok, err)
	}
	ok, err = p.WithinOrderingWindow("2025-09-12", dining.Lunch, shanghai(t, "2025-09-11 23:00:00"))
	if err != nil || !ok {
		t.Errorf("ordering for tomorrow must be allowed, got ok=%v err=%v", ok, err)
	}
}

func TestCancellationCutoff(t *testing.T) {
	p := newPolicy(t)
	past, err := p.PastCancellationCutoff("2025-09-11", dining.Lunch, shanghai(t, "2025-09-11 08:59:59"))
	if err != nil || past {
		t.Errorf("cancellation before the cutoff must be open, got past=%v err=%v", past, err)
	}
	past, err = p.PastCancellationCutoff("2025-09-11", dining.Lunch, shanghai(t, "2025-09-11 09:00:00"))
	if err != nil || !past {
		t.Errorf("cutoff is 2h before 11:00, 09:00 is past it, got past=%v err=%v", past, err)
	}
}

func TestDateInPast(t *testing.T) {
	p := newPolicy(t)
	now := shanghai(t, "2025-09-11 12:00:00")
	for date, want := range map[string]bool{
		"2025-09-10": true,
		"2025-09-11": false,
		"2025-09-12": false,
	} {
		got, err := p.DateInPast(date, now)
		if err != nil || got != want {
			t.Errorf("DateInPast(%s) = (%v, %v), want %v", date, got, err, want)
		}
	}
}

func TestParseSpecErrors(t *testing.T) {
	for _, bad := range []string{
		"",
		"supper=06:00-10:00",
		"lunch=11:00",
		"lunch=14:00-11:00",
		"lunch=25:00-26:00",
	} {
		if _, err := New("Asia/Shanghai", bad, time.Hour); err == nil {
			t.Errorf("spec %q must fail to parse", bad)
		}
	}
}
