package utils

import (
	"testing"
	"time"
)

func TestFormatParseMandiDate(t *testing.T) {
	d := time.Date(2024, 12, 25, 0, 0, 0, 0, IST)

	s := FormatMandiDate(d)
	if s != "25-Dec-2024" {
		t.Fatalf("FormatMandiDate = %q, want 25-Dec-2024", s)
	}

	back, err := ParseMandiDate(s)
	if err != nil {
		t.Fatalf("ParseMandiDate(%q): %v", s, err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip mismatch: %v vs %v", back, d)
	}
}

func TestParseMandiDateRejectsOtherLayouts(t *testing.T) {
	for _, s := range []string{"2024-12-25", "25/12/2024", "Dec 25, 2024", ""} {
		if _, err := ParseMandiDate(s); err == nil {
			t.Errorf("ParseMandiDate(%q) accepted, want error", s)
		}
	}
}

func TestNextMidnight(t *testing.T) {
	at := time.Date(2025, 6, 1, 14, 30, 0, 0, IST)
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, IST)
	if got := NextMidnight(at); !got.Equal(want) {
		t.Errorf("NextMidnight = %v, want %v", got, want)
	}
}

func TestSameDayAcrossZones(t *testing.T) {
	// 20:00 UTC is 01:30 IST the next day.
	utc := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	ist := time.Date(2025, 6, 2, 8, 0, 0, 0, IST)
	if !SameDay(utc, ist) {
		t.Error("expected same IST day for 20:00 UTC and next-day 08:00 IST")
	}
}
