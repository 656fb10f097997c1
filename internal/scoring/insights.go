package scoring

// Streaks are runs of consecutive days ending at or before today.
type Streaks struct {
	CurrentPerfect int `json:"currentPerfect"`
	LongestPerfect int `json:"longestPerfect"`
	CurrentActive  int `json:"currentActive"`
	LongestActive  int `json:"longestActive"`
}

// TaskStat is the completion count of one task over a range.
type TaskStat struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Weight    int     `json:"weight"`
	Completed int     `json:"completed"`
	Days      int     `json:"days"`
	Rate      float64 `json:"rate"`
}

// Streaks walks keys (ascending, consecutive days) up to and including today.
// A day counts as active with any score and perfect at the maximum. The
// current streaks may end yesterday when today has nothing logged yet.
func (e *Engine) Streaks(keys []string, lookup Lookup, today string) Streaks {
	var st Streaks
	max := e.MaxDayScore()

	var perfectRun, activeRun int
	var lastKey string
	var lastScore int
	for _, key := range keys {
		if key > today {
			break
		}
		score := e.DayScore(resolve(lookup, key))
		perfectRun = nextRun(perfectRun, score == max)
		activeRun = nextRun(activeRun, score > 0)
		st.LongestPerfect = maxInt(st.LongestPerfect, perfectRun)
		st.LongestActive = maxInt(st.LongestActive, activeRun)
		lastKey, lastScore = key, score
	}
	if lastKey == "" {
		return st
	}

	st.CurrentPerfect = perfectRun
	st.CurrentActive = activeRun
	if lastKey == today && lastScore == 0 {
		// Today is still open; carry yesterday's runs.
		st.CurrentPerfect, st.CurrentActive = e.trailingRuns(keys, lookup, today)
	}
	return st
}

// trailingRuns counts the runs that end on the day before today.
func (e *Engine) trailingRuns(keys []string, lookup Lookup, today string) (perfect, active int) {
	max := e.MaxDayScore()
	end := -1
	for i, key := range keys {
		if key == today {
			end = i - 1
			break
		}
	}
	perfectOpen, activeOpen := true, true
	for i := end; i >= 0 && (perfectOpen || activeOpen); i-- {
		score := e.DayScore(resolve(lookup, keys[i]))
		if perfectOpen {
			if score == max {
				perfect++
			} else {
				perfectOpen = false
			}
		}
		if activeOpen {
			if score > 0 {
				active++
			} else {
				activeOpen = false
			}
		}
	}
	return perfect, active
}

// TaskBreakdown reports per task completion over keys, in catalog order.
func (e *Engine) TaskBreakdown(keys []string, lookup Lookup) []TaskStat {
	tasks := e.catalog.Tasks()
	out := make([]TaskStat, len(tasks))
	for i, t := range tasks {
		out[i] = TaskStat{ID: t.ID, Label: t.Label, Weight: t.Weight, Days: len(keys)}
	}
	for _, key := range keys {
		f := resolve(lookup, key)
		if f == nil {
			continue
		}
		for i, t := range tasks {
			out[i].Completed += f.Flag(t.ID)
		}
	}
	for i := range out {
		out[i].Rate = Percentage(out[i].Completed, out[i].Days)
	}
	return out
}

func nextRun(run int, ok bool) int {
	if ok {
		return run + 1
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
