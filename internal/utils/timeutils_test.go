package utils

import (
	"testing"
	"time"
)

func TestParseTimestampLayouts(t *testing.T) {
	cases := []string{
		"2026-03-02T14:00:00Z",
		"2026-03-02 14:00:00",
		"2026-03-02T14:00:00",
		"2026-03-02 14:00",
	}
	for _, value := range cases {
		got, err := ParseTimestamp(value)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", value, err)
		}
		if got.Hour() != 14 {
			t.Fatalf("%s: unexpected hour %d", value, got.Hour())
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	if _, err := ParseTimestamp(""); err == nil {
		t.Fatal("expected error for empty value")
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatal("expected error for unrecognised value")
	}
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	if got := DurationMinutes(start, end); got != 90 {
		t.Fatalf("expected 90, got %f", got)
	}
	if got := DurationMinutes(end, start); got != 90 {
		t.Fatalf("expected order-independent result, got %f", got)
	}
}
