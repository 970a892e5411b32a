package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthKeyOf(t *testing.T) {
	cases := []struct {
		t    time.Time
		want MonthKey
	}{
		{time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local), "2025-01"},
		{time.Date(2024, 12, 31, 23, 59, 59, 0, time.Local), "2024-12"},
		{time.Date(987, 7, 1, 0, 0, 0, 0, time.Local), "0987-07"},
	}
	for _, tc := range cases {
		if got := MonthKeyOf(tc.t); got != tc.want {
			t.Errorf("MonthKeyOf(%v) = %s, want %s", tc.t, got, tc.want)
		}
	}
}

func TestParseMonthKey(t *testing.T) {
	valid := []string{"2025-01", "2024-12", "0001-06", "12025-03", "0000-01", "-001-06", "-2025-01"}
	for _, s := range valid {
		if _, err := ParseMonthKey(s); err != nil {
			t.Errorf("ParseMonthKey(%q) unexpected error: %v", s, err)
		}
	}
	invalid := []string{"", "2025", "2025-1", "2025-13", "2025-00", "2025/01", "abcd-01", "2025-1a", "-1-06", "+2025-01", "-0000-01", "2025-01-01"}
	for _, s := range invalid {
		if _, err := ParseMonthKey(s); !errors.Is(err, ErrInvalidMonthKey) {
			t.Errorf("ParseMonthKey(%q) expected ErrInvalidMonthKey, got %v", s, err)
		}
	}
}

func TestMonthKeyNegativeYearRoundTrip(t *testing.T) {
	for _, year := range []int{-1, -44, -2025} {
		key := MonthKeyOf(time.Date(year, time.March, 10, 0, 0, 0, 0, time.Local))
		parsed, err := ParseMonthKey(string(key))
		if err != nil {
			t.Fatalf("ParseMonthKey(%q): %v", key, err)
		}
		if parsed.Year() != year || parsed.Month() != time.March {
			t.Fatalf("%q parsed as %d-%d", key, parsed.Year(), parsed.Month())
		}
		r := parsed.Range(time.Local)
		if r.Start.Year() != year || r.End.Month() != time.March || r.End.Day() != 31 {
			t.Fatalf("bad range for %q: %v", key, r)
		}
	}
}

func TestRangeOfRoundTrip(t *testing.T) {
	for year := 2019; year <= 2025; year++ {
		for month := time.January; month <= time.December; month++ {
			mid := time.Date(year, month, 14, 12, 0, 0, 0, time.Local)
			r, err := RangeOf(string(MonthKeyOf(mid)))
			if err != nil {
				t.Fatalf("RangeOf failed for %d-%d: %v", year, month, err)
			}
			if r.Start.Day() != 1 || r.Start.Hour() != 0 || r.Start.Minute() != 0 || r.Start.Month() != month {
				t.Fatalf("bad start for %d-%d: %v", year, month, r.Start)
			}
			lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
			if r.End.Day() != lastDay || r.End.Hour() != 23 || r.End.Minute() != 59 || r.End.Second() != 59 || r.End.Month() != month {
				t.Fatalf("bad end for %d-%d: %v", year, month, r.End)
			}
			first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
			last := time.Date(year, month, lastDay, 23, 59, 59, 0, time.Local)
			if !r.Contains(first) || !r.Contains(last) || !r.Contains(mid) {
				t.Fatalf("range %v does not contain its own month", r)
			}
			if r.Contains(first.Add(-time.Second)) || r.Contains(last.Add(time.Second)) {
				t.Fatalf("range %v leaks into neighbouring months", r)
			}
		}
	}
}

func TestRangeOfLeapYears(t *testing.T) {
	leap, err := RangeOf("2024-02")
	if err != nil {
		t.Fatal(err)
	}
	if leap.End.Day() != 29 || leap.End.Hour() != 23 || leap.End.Second() != 59 {
		t.Fatalf("2024-02 should end on Feb 29 23:59:59, got %v", leap.End)
	}
	plain, err := RangeOf("2023-02")
	if err != nil {
		t.Fatal(err)
	}
	if plain.End.Day() != 28 || plain.End.Month() != time.February {
		t.Fatalf("2023-02 should end on Feb 28 23:59:59, got %v", plain.End)
	}
}

func TestRangeOfInvalid(t *testing.T) {
	if _, err := RangeOf("2025-13"); !errors.Is(err, ErrInvalidMonthKey) {
		t.Fatalf("expected ErrInvalidMonthKey, got %v", err)
	}
}

func TestMonthKeyShift(t *testing.T) {
	if got := MonthKey("2025-01").Prev(); got != "2024-12" {
		t.Errorf("Prev = %s", got)
	}
	if got := MonthKey("2024-12").Next(); got != "2025-01" {
		t.Errorf("Next = %s", got)
	}
	k := MonthKey("2025-07")
	if k.Year() != 2025 || k.Month() != time.July {
		t.Errorf("components = %d %v", k.Year(), k.Month())
	}
}
