package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/gitlog"
	"github.com/agusx1211/dtrack/internal/scoring"
	"github.com/agusx1211/dtrack/internal/store"
)

// TaskView is one task cell of a day.
type TaskView struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Weight    int        `json:"weight"`
	Done      bool       `json:"done"`
	Value     int        `json:"value"`
	Topic     string     `json:"topic,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DayView is a scored day in catalog order.
type DayView struct {
	Date        string         `json:"date"`
	Weekday     string         `json:"weekday"`
	Weekend     bool           `json:"weekend"`
	Tasks       []TaskView     `json:"tasks"`
	Score       int            `json:"score"`
	MaxScore    int            `json:"maxScore"`
	Level       scoring.Level  `json:"level"`
	CommitCount int            `json:"commitCount"`
	Metadata    store.Metadata `json:"metadata"`
}

// MonthView is one page of the grid.
type MonthView struct {
	Month string        `json:"month"`
	Label string        `json:"label"`
	Days  []DayView     `json:"days"`
	Stats scoring.Stats `json:"stats"`
	Prev  string        `json:"prev,omitempty"`
	Next  string        `json:"next,omitempty"`
}

// Insights aggregates a range.
type Insights struct {
	Start   string             `json:"start"`
	End     string             `json:"end"`
	Stats   scoring.Stats      `json:"stats"`
	Streaks scoring.Streaks    `json:"streaks"`
	Tasks   []scoring.TaskStat `json:"tasks"`
}

// Activity is the commit-count progress view.
type Activity struct {
	TodayCount    int            `json:"todayCount"`
	TotalCount    int            `json:"totalCount"`
	RecentCommits []gitlog.Entry `json:"recentCommits"`
	DailyGoal     int            `json:"dailyGoal"`
	Progress      float64        `json:"progress"`
	Remaining     int            `json:"remaining"`
	Message       string         `json:"message"`
}

func (s *Service) dayView(rec *store.DayRecord) DayView {
	tasks := s.Catalog().Tasks()
	v := DayView{
		Date:        rec.Date,
		Weekend:     datekey.Weekend(rec.Date),
		Tasks:       make([]TaskView, 0, len(tasks)),
		Score:       s.engine.DayScore(rec),
		MaxScore:    s.engine.MaxDayScore(),
		CommitCount: rec.CommitCount,
		Metadata:    rec.Metadata,
	}
	if t, err := datekey.FromKey(rec.Date); err == nil {
		v.Weekday = t.Weekday().String()[:3]
	}
	v.Level = s.engine.Level(v.Score)
	for _, t := range tasks {
		st := rec.Tasks[t.ID]
		tv := TaskView{
			ID:     t.ID,
			Label:  t.Label,
			Weight: t.Weight,
			Done:   st.Done,
			Value:  rec.Flag(t.ID),
			Topic:  st.Topic,
		}
		if !st.UpdatedAt.IsZero() {
			ts := st.UpdatedAt
			tv.UpdatedAt = &ts
		}
		v.Tasks = append(v.Tasks, tv)
	}
	return v
}

// Day returns the scored view of one day.
func (s *Service) Day(ctx context.Context, key string) (DayView, error) {
	rec, err := s.store.Get(ctx, key)
	if err != nil {
		return DayView{}, err
	}
	return s.dayView(rec), nil
}

func (s *Service) lookup(snap map[string]*store.DayRecord) scoring.Lookup {
	return func(key string) scoring.Flags {
		if rec, ok := snap[key]; ok {
			return rec
		}
		return nil
	}
}

// Month returns the window's days in the given month. Months outside the
// window have no days and zero stats.
func (s *Service) Month(ctx context.Context, year int, month time.Month) MonthView {
	m := datekey.Month{Year: year, Month: month}
	keys := s.opts.Window.MonthKeys(m)
	snap := s.store.Snapshot(ctx, keys)

	view := MonthView{
		Month: m.String(),
		Label: fmt.Sprintf("%s %d", month.String(), year),
		Days:  make([]DayView, 0, len(keys)),
		Stats: s.engine.Aggregate(keys, s.lookup(snap)),
	}
	for _, key := range keys {
		rec, ok := snap[key]
		if !ok {
			rec = store.NewDayRecord(key)
		}
		view.Days = append(view.Days, s.dayView(rec))
	}

	months := s.opts.Window.Months()
	for i, wm := range months {
		if wm != m {
			continue
		}
		if i > 0 {
			view.Prev = months[i-1].String()
		}
		if i < len(months)-1 {
			view.Next = months[i+1].String()
		}
	}
	return view
}

// CurrentMonth returns the month containing today, clamped to the window.
func (s *Service) CurrentMonth() datekey.Month {
	today := s.Today()
	key := today
	switch {
	case today < s.opts.Window.Start:
		key = s.opts.Window.Start
	case today > s.opts.Window.End:
		key = s.opts.Window.End
	}
	y, mo, err := datekey.MonthOf(key)
	if err != nil {
		now := s.now()
		return datekey.Month{Year: now.Year(), Month: now.Month()}
	}
	return datekey.Month{Year: y, Month: mo}
}

// Insights aggregates start..end; empty bounds default to the window.
func (s *Service) Insights(ctx context.Context, start, end string) (Insights, error) {
	if start == "" {
		start = s.opts.Window.Start
	}
	if end == "" {
		end = s.opts.Window.End
	}
	keys, err := datekey.RangeKeys(start, end)
	if err != nil {
		return Insights{}, err
	}
	snap := s.store.Snapshot(ctx, keys)
	lookup := s.lookup(snap)
	return Insights{
		Start:   start,
		End:     end,
		Stats:   s.engine.Aggregate(keys, lookup),
		Streaks: s.engine.Streaks(keys, lookup, s.Today()),
		Tasks:   s.engine.TaskBreakdown(keys, lookup),
	}, nil
}

// Activity reads commit counts from the notifier. Read failures are logged
// and show as zero, the view is for display only.
func (s *Service) Activity(ctx context.Context) Activity {
	a := Activity{DailyGoal: s.opts.DailyGoal, RecentCommits: []gitlog.Entry{}}
	if s.notifier != nil {
		var err error
		if a.TodayCount, err = s.notifier.TodayCount(ctx); err != nil {
			debug.LogKV("tracker", "today count failed", "error", err)
		}
		if a.TotalCount, err = s.notifier.TotalCount(ctx); err != nil {
			debug.LogKV("tracker", "total count failed", "error", err)
		}
		if recent, err := s.notifier.Recent(ctx, s.opts.RecentLimit); err != nil {
			debug.LogKV("tracker", "recent commits failed", "error", err)
		} else if recent != nil {
			a.RecentCommits = recent
		}
	}
	a.Progress, a.Remaining, a.Message = GoalProgress(a.TodayCount, a.DailyGoal)
	return a
}

// GoalProgress returns the percentage toward goal (capped at 100), how many
// commits remain and the encouragement line shown next to it.
func GoalProgress(count, goal int) (float64, int, string) {
	if goal <= 0 {
		goal = DefaultDailyGoal
	}
	progress := scoring.Percentage(count, goal)
	if progress > 100 {
		progress = 100
	}
	remaining := goal - count
	if remaining < 0 {
		remaining = 0
	}

	var msg string
	switch {
	case count == 0:
		msg = "Let's get started! 🚀"
	case count < goal/2:
		msg = "Great start! Keep going! 💪"
	case count < goal:
		msg = fmt.Sprintf("Almost there! %d more to go! 🔥", remaining)
	default:
		msg = "Goal achieved! You're crushing it! 🎉"
	}
	return progress, remaining, msg
}
