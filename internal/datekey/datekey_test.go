package datekey

import (
	"errors"
	"testing"
	"time"
)

func TestToKeyIgnoresTimeOfDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	morning := time.Date(2025, time.December, 3, 0, 0, 1, 0, loc)
	night := time.Date(2025, time.December, 3, 23, 59, 59, 999, loc)

	if got := ToKey(morning); got != "2025-12-03" {
		t.Fatalf("ToKey(morning) = %q, want 2025-12-03", got)
	}
	if ToKey(morning) != ToKey(night) {
		t.Fatalf("same day produced different keys: %q vs %q", ToKey(morning), ToKey(night))
	}
}

func TestRoundTrip(t *testing.T) {
	zones := []*time.Location{time.UTC, time.Local, time.FixedZone("W", -11*3600), time.FixedZone("E", 14*3600)}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, loc := range zones {
		for i := 0; i < 800; i += 7 {
			d := start.AddDate(0, 0, i).Add(time.Duration(i) * time.Minute).In(loc)
			back, err := FromKey(ToKey(d))
			if err != nil {
				t.Fatalf("FromKey(%q): %v", ToKey(d), err)
			}
			if back.Year() != d.Year() || back.Month() != d.Month() || back.Day() != d.Day() {
				t.Fatalf("round trip of %v gave %v", d, back)
			}
			if back.Hour() != 0 || back.Minute() != 0 {
				t.Fatalf("FromKey should return midnight, got %v", back)
			}
		}
	}
}

func TestYearBounds(t *testing.T) {
	for _, d := range []time.Time{
		time.Date(1, time.January, 1, 12, 0, 0, 0, time.UTC),
		time.Date(MaxYear, time.December, 31, 12, 0, 0, 0, time.UTC),
	} {
		if !Supported(d) {
			t.Fatalf("Supported(%v) = false", d)
		}
		back, err := FromKey(ToKey(d))
		if err != nil || back.Year() != d.Year() || back.YearDay() != d.YearDay() {
			t.Fatalf("round trip of %v = %v, %v", d, back, err)
		}
	}
	for _, d := range []time.Time{
		time.Date(MaxYear+1, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(-1, time.June, 1, 0, 0, 0, 0, time.UTC),
	} {
		if Supported(d) {
			t.Fatalf("Supported(%v) = true", d)
		}
		if Valid(ToKey(d)) {
			t.Fatalf("ToKey(%v) = %q should not parse", d, ToKey(d))
		}
	}
}

func TestFromKeyRejectsMalformed(t *testing.T) {
	bad := []string{"", "2025-1-02", "2025-13-01", "2025-02-30", "25-12-01", "2025/12/01", "2025-12-01T00:00", " 2025-12-01"}
	for _, s := range bad {
		if _, err := FromKey(s); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("FromKey(%q) err = %v, want ErrInvalidFormat", s, err)
		}
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{name: "single day", start: "2025-12-23", end: "2025-12-23", want: []string{"2025-12-23"}},
		{name: "across year", start: "2025-12-30", end: "2026-01-02", want: []string{"2025-12-30", "2025-12-31", "2026-01-01", "2026-01-02"}},
		{name: "leap day", start: "2024-02-28", end: "2024-03-01", want: []string{"2024-02-28", "2024-02-29", "2024-03-01"}},
		{name: "reversed is empty", start: "2025-12-24", end: "2025-12-23", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RangeKeys(tt.start, tt.end)
			if err != nil {
				t.Fatalf("RangeKeys: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRangeIgnoresEndTimeOfDay(t *testing.T) {
	start := time.Date(2025, time.March, 1, 18, 0, 0, 0, time.Local)
	end := time.Date(2025, time.March, 3, 1, 0, 0, 0, time.Local)
	if got := Range(start, end); len(got) != 3 {
		t.Fatalf("Range = %v, want 3 days", got)
	}
}

func TestDefaultWindow(t *testing.T) {
	if err := DefaultWindow.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	keys := DefaultWindow.Keys()
	if keys[0] != "2025-12-23" || keys[len(keys)-1] != "2026-04-22" {
		t.Fatalf("window bounds = %s..%s", keys[0], keys[len(keys)-1])
	}
	if len(keys) != 121 {
		t.Fatalf("window length = %d, want 121", len(keys))
	}

	months := DefaultWindow.Months()
	if len(months) != 5 || months[0].String() != "2025-12" || months[4].String() != "2026-04" {
		t.Fatalf("Months() = %v", months)
	}
	dec := DefaultWindow.MonthKeys(months[0])
	if len(dec) != 9 || dec[0] != "2025-12-23" {
		t.Fatalf("December keys = %v", dec)
	}
}

func TestWindowContains(t *testing.T) {
	w := Window{Start: "2025-12-23", End: "2025-12-25"}
	for key, want := range map[string]bool{
		"2025-12-22": false,
		"2025-12-23": true,
		"2025-12-25": true,
		"2025-12-26": false,
		"garbage":    false,
	} {
		if got := w.Contains(key); got != want {
			t.Errorf("Contains(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestParseMonthAndAdd(t *testing.T) {
	y, m, err := ParseMonth("2025-12")
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	next := Month{Year: y, Month: m}.Add(1)
	if next.String() != "2026-01" {
		t.Fatalf("Add(1) = %s, want 2026-01", next)
	}
	if _, _, err := ParseMonth("2025-13"); err == nil {
		t.Fatal("expected error for month 13")
	}
	if len(MonthKeys(2024, time.February)) != 29 {
		t.Fatal("February 2024 should have 29 days")
	}
}
