// Package scoring computes weighted day scores and range aggregates.
package scoring

import (
	"math"

	"github.com/agusx1211/dtrack/internal/catalog"
)

// Flags is anything that reports a 0/1 completion flag per task id.
type Flags interface {
	Flag(taskID string) int
}

// FlagMap is a plain id -> 0|1 map.
type FlagMap map[string]int

func (m FlagMap) Flag(taskID string) int {
	if m[taskID] == 1 {
		return 1
	}
	return 0
}

// Lookup resolves a date key to its flags. Returning nil means the day has
// no record and counts as all zeros.
type Lookup func(key string) Flags

// Level classifies a day score for display.
type Level string

const (
	LevelNone    Level = "none"
	LevelPartial Level = "partial"
	LevelPerfect Level = "perfect"
)

// Stats is the aggregate over a range of days.
type Stats struct {
	Days          int     `json:"days"`
	ActualTotal   int     `json:"actualTotal"`
	PossibleTotal int     `json:"possibleTotal"`
	PerfectDays   int     `json:"perfectDays"`
	Percentage    float64 `json:"percentage"`
}

// Engine scores days against one catalog.
type Engine struct {
	catalog *catalog.Catalog
}

func New(c *catalog.Catalog) *Engine {
	return &Engine{catalog: c}
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// DayScore is the sum of weight*flag over the catalog. Ids outside the
// catalog are ignored.
func (e *Engine) DayScore(f Flags) int {
	if f == nil {
		return 0
	}
	score := 0
	for _, t := range e.catalog.Tasks() {
		score += t.Weight * f.Flag(t.ID)
	}
	return score
}

// MaxDayScore is the score of a day with every task done.
func (e *Engine) MaxDayScore() int {
	return e.catalog.MaxScore()
}

// Level classifies score against the maximum.
func (e *Engine) Level(score int) Level {
	switch {
	case score <= 0:
		return LevelNone
	case score >= e.MaxDayScore():
		return LevelPerfect
	default:
		return LevelPartial
	}
}

// Aggregate scores every key in one pass.
func (e *Engine) Aggregate(keys []string, lookup Lookup) Stats {
	max := e.MaxDayScore()
	st := Stats{Days: len(keys), PossibleTotal: len(keys) * max}
	for _, key := range keys {
		score := e.DayScore(resolve(lookup, key))
		st.ActualTotal += score
		if score == max {
			st.PerfectDays++
		}
	}
	st.Percentage = Percentage(st.ActualTotal, st.PossibleTotal)
	return st
}

// Percentage returns 100*actual/possible rounded to one decimal, or 0 when
// possible is 0.
func Percentage(actual, possible int) float64 {
	if possible <= 0 {
		return 0
	}
	return round1(100 * float64(actual) / float64(possible))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func resolve(lookup Lookup, key string) Flags {
	if lookup == nil {
		return nil
	}
	return lookup(key)
}
