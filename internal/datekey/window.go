package datekey

import (
	"fmt"
	"time"
)

// Window is the inclusive tracking period, expressed as keys.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultWindow is the Dec '25 - Apr '26 tracking period.
var DefaultWindow = Window{Start: "2025-12-23", End: "2026-04-22"}

// Validate checks both bounds and their order.
func (w Window) Validate() error {
	start, err := FromKey(w.Start)
	if err != nil {
		return fmt.Errorf("window start: %w", err)
	}
	end, err := FromKey(w.End)
	if err != nil {
		return fmt.Errorf("window end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("window end %s is before start %s", w.End, w.Start)
	}
	return nil
}

// Keys returns every day of the window.
func (w Window) Keys() []string {
	keys, err := RangeKeys(w.Start, w.End)
	if err != nil {
		return []string{}
	}
	return keys
}

// Contains reports whether key lies inside the window. Keys compare
// lexically in calendar order.
func (w Window) Contains(key string) bool {
	return Valid(key) && key >= w.Start && key <= w.End
}

// Clamp returns the part of keys that lies inside the window.
func (w Window) Clamp(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if w.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}

// Month is a calendar month reference.
type Month struct {
	Year  int
	Month time.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Add returns the month n months away.
func (m Month) Add(n int) Month {
	t := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.Local).AddDate(0, n, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Keys returns every day of the month.
func (m Month) Keys() []string {
	return MonthKeys(m.Year, m.Month)
}

// Months returns the months the window touches, in order.
func (w Window) Months() []Month {
	if w.Validate() != nil {
		return nil
	}
	sy, sm, _ := MonthOf(w.Start)
	ey, em, _ := MonthOf(w.End)
	last := Month{Year: ey, Month: em}
	var out []Month
	for m := (Month{Year: sy, Month: sm}); ; m = m.Add(1) {
		out = append(out, m)
		if m == last {
			break
		}
	}
	return out
}

// MonthKeys returns the days of m that fall inside the window.
func (w Window) MonthKeys(m Month) []string {
	return w.Clamp(m.Keys())
}
