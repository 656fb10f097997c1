// Package datekey converts calendar days to and from canonical YYYY-MM-DD keys.
//
// A key names a calendar day, not an instant: two times on the same day in
// the same location always produce the same key, and parsing a key yields
// local midnight of that day.
package datekey

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Layout is the time layout of a key.
const Layout = "2006-01-02"

// ErrInvalidFormat is returned for strings that are not a valid YYYY-MM-DD day.
var ErrInvalidFormat = errors.New("invalid date key")

var keyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Years a key can represent.
const (
	MinYear = 0
	MaxYear = 9999
)

// Supported reports whether t's year fits the four digit key format.
func Supported(t time.Time) bool {
	return t.Year() >= MinYear && t.Year() <= MaxYear
}

// ToKey returns the key for the calendar day of t in t's own location.
// FromKey(ToKey(t)) round-trips only when Supported(t); other years produce
// strings FromKey rejects.
func ToKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// FromKey parses a key into local midnight of that day.
func FromKey(s string) (time.Time, error) {
	if !keyPattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return t, nil
}

// Valid reports whether s is a well-formed key.
func Valid(s string) bool {
	_, err := FromKey(s)
	return err == nil
}

// Midnight truncates t to the start of its calendar day in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Today returns the key for now in the local timezone.
func Today(now time.Time) string {
	return ToKey(now.In(time.Local))
}

// Range returns every key from start to end inclusive in ascending order.
// The result is empty when end falls on an earlier day than start.
func Range(start, end time.Time) []string {
	first := Midnight(start)
	last := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, start.Location())
	if last.Before(first) {
		return []string{}
	}
	keys := make([]string, 0, int(last.Sub(first).Hours()/24)+1)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		keys = append(keys, ToKey(d))
	}
	return keys
}

// RangeKeys is Range over two keys.
func RangeKeys(startKey, endKey string) ([]string, error) {
	start, err := FromKey(startKey)
	if err != nil {
		return nil, err
	}
	end, err := FromKey(endKey)
	if err != nil {
		return nil, err
	}
	return Range(start, end), nil
}

// MonthKeys returns every day of the given month.
func MonthKeys(year int, month time.Month) []string {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	return Range(first, first.AddDate(0, 1, -1))
}

// MonthOf returns the year and month a key falls in.
func MonthOf(key string) (int, time.Month, error) {
	t, err := FromKey(key)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

// ParseMonth parses a YYYY-MM month reference.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.ParseInLocation("2006-01", s, time.Local)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

// Weekend reports whether the key is a Saturday or Sunday.
func Weekend(key string) bool {
	t, err := FromKey(key)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
