package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kharcha/internal/core"
)

const maxBodyBytes = 1 << 20

var (
	errMalformedBody = fmt.Errorf("%w: malformed request body", core.ErrValidation)
	errInvalidDate   = fmt.Errorf("%w: date must be YYYY-MM-DD or RFC 3339", core.ErrValidation)
	errInvalidLimit  = fmt.Errorf("%w: limit must be a non-negative integer", core.ErrValidation)
)

// decodeJSON reads one JSON object into dst, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errMalformedBody
	}
	return nil
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(r *http.Request) (core.MonthKey, error) {
	v := strings.TrimSpace(r.URL.Query().Get("month"))
	if v == "" {
		return core.CurrentMonthKey(time.Now()), nil
	}
	return core.ParseMonthKey(v)
}

// limitParam reads ?limit=; absent means 0 so services apply their default.
func limitParam(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errInvalidLimit
	}
	return n, nil
}

func methodParam(r *http.Request, fallback core.PaymentMethod) (core.PaymentMethod, error) {
	v := strings.TrimSpace(r.URL.Query().Get("method"))
	if v == "" {
		return fallback, nil
	}
	m := core.PaymentMethod(strings.ToUpper(v))
	return m, m.Validate()
}

// parseDate accepts a calendar date, taken as local midnight, or a full
// RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrMissingSpendingDate
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errInvalidDate
}

// parseDecimal parses an amount without judging its sign.
func parseDecimal(n json.Number) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(string(n)))
	if err != nil {
		return decimal.Zero, core.ErrInvalidAmount
	}
	return d.Round(2), nil
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
