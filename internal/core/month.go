package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// MonthKey identifies a calendar month in canonical YYYY-MM form.
type MonthKey string

// DateRange is an inclusive [Start, End] interval covering one month.
type DateRange struct {
	Start time.Time
	End   time.Time
}

var ErrInvalidMonthKey = errors.New("invalid month key")

// MonthKeyOf returns the month key of t in t's own location.
func MonthKeyOf(t time.Time) MonthKey {
	return newMonthKey(t.Year(), t.Month())
}

// CurrentMonthKey returns the month key of now in local time.
func CurrentMonthKey(now time.Time) MonthKey {
	return MonthKeyOf(now.In(time.Local))
}

func newMonthKey(year int, month time.Month) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, int(month)))
}

// ParseMonthKey validates s and returns it as a MonthKey. The input must
// already be canonical; "2024-2" or "2024-13" are rejected, not corrected.
func ParseMonthKey(s string) (MonthKey, error) {
	year, month, err := splitMonthKey(s)
	if err != nil {
		return "", err
	}
	key := newMonthKey(year, month)
	if string(key) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return key, nil
}

func splitMonthKey(s string) (int, time.Month, error) {
	// Year is unbounded (negative years keep Go's "-001" form) but the month
	// is always the last three bytes.
	if len(s) < 6 || s[len(s)-3] != '-' {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	yearPart, monthPart := s[:len(s)-3], s[len(s)-2:]
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	month, err := strconv.Atoi(monthPart)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return year, time.Month(month), nil
}

// RangeOf resolves a month key string into its local-time range.
func RangeOf(s string) (DateRange, error) {
	key, err := ParseMonthKey(s)
	if err != nil {
		return DateRange{}, err
	}
	return key.Range(time.Local), nil
}

// Range returns the month's range in loc. End is 23:59:59 of the last day,
// found as day 0 of the following month.
func (k MonthKey) Range(loc *time.Location) DateRange {
	if loc == nil {
		loc = time.Local
	}
	year, month, err := splitMonthKey(string(k))
	if err != nil {
		return DateRange{}
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	end := time.Date(year, month+1, 0, 23, 59, 59, 0, loc)
	return DateRange{Start: start, End: end}
}

func (k MonthKey) Validate() error {
	_, err := ParseMonthKey(string(k))
	return err
}

func (k MonthKey) String() string {
	return string(k)
}

// Year and Month return the components of a valid key, zero otherwise.
func (k MonthKey) Year() int {
	y, _, _ := splitMonthKey(string(k))
	return y
}

func (k MonthKey) Month() time.Month {
	_, m, _ := splitMonthKey(string(k))
	return m
}

func (k MonthKey) Prev() MonthKey {
	return k.shift(-1)
}

func (k MonthKey) Next() MonthKey {
	return k.shift(1)
}

func (k MonthKey) shift(months int) MonthKey {
	year, month, err := splitMonthKey(string(k))
	if err != nil {
		return k
	}
	t := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	return newMonthKey(t.Year(), t.Month())
}

// Contains reports whether t falls within the range, both ends included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}
