package validation

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalidDateFormat is returned when a query date is not a real DD-MM-YYYY calendar date.
var ErrInvalidDateFormat = errors.New("invalid date format")

// ErrDateEmpty is returned when the date argument is empty or whitespace-only.
var ErrDateEmpty = errors.New("date is required")

// ParseDate parses input strictly as DD-MM-YYYY. Day and month take one or two
// digits, the year exactly four. The date must exist on the calendar, so
// 31-02-2025 and 29-02-2023 are rejected. Every failure wraps ErrInvalidDateFormat.
func ParseDate(input string) (year, month, day int, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, 0, 0, errors.Join(ErrInvalidDateFormat, ErrDateEmpty)
	}
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return 0, 0, 0, ErrInvalidDateFormat
	}
	day, ok := parseField(parts[0], 1, 2)
	if !ok {
		return 0, 0, 0, ErrInvalidDateFormat
	}
	month, ok = parseField(parts[1], 1, 2)
	if !ok {
		return 0, 0, 0, ErrInvalidDateFormat
	}
	year, ok = parseField(parts[2], 4, 4)
	if !ok {
		return 0, 0, 0, ErrInvalidDateFormat
	}
	if month < 1 || month > 12 || day < 1 || day > daysIn(year, month) || year < 1 {
		return 0, 0, 0, ErrInvalidDateFormat
	}
	return year, month, day, nil
}

// parseField accepts only ASCII digits with a length in [minLen, maxLen].
func parseField(s string, minLen, maxLen int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, false
	}
	for _, c := range s {
		if c > unicode.MaxASCII || !unicode.IsDigit(c) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// daysIn returns the number of days in the given month, honoring leap years.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
