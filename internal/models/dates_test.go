package models

import (
	"testing"
	"time"
)

func TestDayUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2024, 1, 1, 22, 30, 0, 0, loc) // 2024-01-02 03:30 UTC
	got := DayUTC(in)
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("expected %v, got %v", want, got)
	}
	end := EndOfDayUTC(in)
	if end.Format("15:04:05.000") != "23:59:59.999" || !DayUTC(end).Equal(want) {
		t.Fatalf("unexpected end of day %v", end)
	}
}

func TestDaysInRange(t *testing.T) {
	since := time.Date(2024, 2, 27, 15, 0, 0, 0, time.UTC)
	until := time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC)
	days := DaysInRange(since, until)
	want := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01", "2024-03-02"}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if FormatDay(d) != want[i] {
			t.Fatalf("day %d: expected %s, got %s", i, want[i], FormatDay(d))
		}
	}

	if got := DaysInRange(until, since); got != nil {
		t.Fatalf("expected nil for inverted range, got %v", got)
	}
	if got := DaysInRange(since, since); len(got) != 1 {
		t.Fatalf("expected single day, got %d", len(got))
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2024-01-03")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day %v", d)
	}
	for _, bad := range []string{"", "2024-1-3", "03/01/2024", "2024-02-30"} {
		if _, err := ParseDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDateSet(t *testing.T) {
	s := DateSet{}
	s.Add(time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC))
	if !s.Has(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected day to be present")
	}
	if s.Has(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected day to be absent")
	}
}
