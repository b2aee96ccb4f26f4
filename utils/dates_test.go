package utils

import (
	"testing"
	"time"
)

func TestParseCalendarDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-03-15",
		" 2024-03-15 ",
		"2024-03-15T10:30:00Z",
		"2024-03-15T23:59:59+07:00",
		"2024-03-15T08:00:00",
		"15/03/2024",
	} {
		got, ok := ParseCalendarDate(raw)
		if !ok {
			t.Errorf("%q: expected a date", raw)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("%q: got %v want %v", raw, got, want)
		}
	}
}

func TestParseCalendarDateRejectsPlaceholders(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "undefined", "Invalid Date", "0001-01-01", "0000-00-00", "15.03.2024", "2024-13-01"} {
		if _, ok := ParseCalendarDate(raw); ok {
			t.Errorf("%q: expected no date", raw)
		}
	}
}

func TestIsBlankDate(t *testing.T) {
	if !IsBlankDate("Invalid date") || !IsBlankDate("") {
		t.Error("expected placeholders to be blank")
	}
	if IsBlankDate("2024-13-01") {
		t.Error("malformed date must not be treated as blank")
	}
}

func TestFormatCalendarDate(t *testing.T) {
	if got := FormatCalendarDate(nil); got != "" {
		t.Errorf("nil: got %q", got)
	}
	d := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	if got := FormatCalendarDate(&d); got != "2024-01-05" {
		t.Errorf("got %q want 2024-01-05", got)
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 2, 28, 18, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 2 {
		t.Errorf("leap year span: got %d want 2", got)
	}
	if got := DaysBetween(to, from); got != -2 {
		t.Errorf("reverse span: got %d want -2", got)
	}
	if got := DaysBetween(from, from); got != 0 {
		t.Errorf("same day: got %d want 0", got)
	}

	ref := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if got := DaysBetween(ref, time.Date(1700, 3, 1, 0, 0, 0, 0, time.UTC)); got != -118704 {
		t.Errorf("centuries back: got %d want -118704", got)
	}
	if got := DaysBetween(time.Date(1700, 3, 1, 0, 0, 0, 0, time.UTC), ref); got != 118704 {
		t.Errorf("centuries forward: got %d want 118704", got)
	}
}

func TestTodayIsMidnightUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	today := Today(loc)
	if today.Location() != time.UTC || today.Hour() != 0 || today.Minute() != 0 {
		t.Errorf("expected midnight UTC, got %v", today)
	}
}
