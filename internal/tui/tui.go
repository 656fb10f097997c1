package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/tracker"
)

// Model is the bubbletea model for the month grid.
type Model struct {
	svc    *tracker.Service
	keys   KeyMap
	width  int
	height int

	month datekey.Month
	view  tracker.MonthView
	today string

	// Cursor: row is the day index within view.Days, col the task index.
	row int
	col int

	todayCommits int
	events       <-chan tracker.Event
	unsubscribe  func()

	status string
	err    error
}

type activityMsg struct {
	todayCount int
}

type trackerEventMsg struct {
	event tracker.Event
	ok    bool
}

// New creates a grid model positioned on month (or on today's month when
// month is zero) and loads its days.
func New(svc *tracker.Service, month datekey.Month) Model {
	m := Model{
		svc:   svc,
		keys:  DefaultKeyMap(),
		today: svc.Today(),
	}
	if month.Year == 0 {
		month = svc.CurrentMonth()
	}
	m.month = month
	m.loadMonth()
	m.cursorToToday()
	return m
}

// Run starts the grid full-screen and blocks until the user quits.
func Run(ctx context.Context, svc *tracker.Service, month datekey.Month) error {
	m := New(svc, month)
	m.events, m.unsubscribe = svc.Subscribe()
	defer m.unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// loadMonth reads the selected month from the tracker and clamps the cursor.
func (m *Model) loadMonth() {
	m.view = m.svc.Month(context.Background(), m.month.Year, m.month.Month)
	if m.row >= len(m.view.Days) {
		m.row = len(m.view.Days) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if n := m.svc.Catalog().Len(); m.col >= n {
		m.col = n - 1
	}
}

func (m *Model) cursorToToday() {
	for i, d := range m.view.Days {
		if d.Date == m.today {
			m.row = i
			return
		}
	}
}

func (m Model) activityCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return activityMsg{todayCount: svc.Activity(context.Background()).TodayCount}
	}
}

func waitForEvent(ch <-chan tracker.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return trackerEventMsg{event: ev, ok: ok}
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("dtrack - "+m.view.Label),
		m.activityCmd(),
		waitForEvent(m.events),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case activityMsg:
		m.todayCommits = msg.todayCount
		return m, nil

	case trackerEventMsg:
		if !msg.ok {
			return m, nil
		}
		var cmds []tea.Cmd
		switch msg.event.Type {
		case tracker.EventDayUpdated:
			m.loadMonth()
		case tracker.EventCommitCreated:
			cmds = append(cmds, m.activityCmd())
		case tracker.EventCommitFailed:
			if data, ok := msg.event.Data.(map[string]any); ok {
				m.status = fmt.Sprintf("commit failed: %v", data["error"])
			}
		}
		cmds = append(cmds, waitForEvent(m.events))
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.view.Days)-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(msg, m.keys.Right):
		if m.col < m.svc.Catalog().Len()-1 {
			m.col++
		}
	case key.Matches(msg, m.keys.Toggle):
		m.toggleSelected()
	case key.Matches(msg, m.keys.NextMonth):
		m.shiftMonth(m.view.Next)
	case key.Matches(msg, m.keys.PrevMonth):
		m.shiftMonth(m.view.Prev)
	case key.Matches(msg, m.keys.Today):
		m.today = m.svc.Today()
		m.month = m.svc.CurrentMonth()
		m.loadMonth()
		m.cursorToToday()
	case key.Matches(msg, m.keys.Refresh):
		m.loadMonth()
		return m, m.activityCmd()
	}
	return m, nil
}

func (m *Model) toggleSelected() {
	if len(m.view.Days) == 0 {
		return
	}
	tasks := m.svc.Catalog().Tasks()
	if m.col < 0 || m.col >= len(tasks) {
		return
	}
	day := m.view.Days[m.row]
	res, err := m.svc.Toggle(context.Background(), day.Date, tasks[m.col].ID)
	if err != nil {
		debug.LogKV("tui", "toggle failed", "date", day.Date, "task", tasks[m.col].ID, "error", err)
		m.err = err
		return
	}
	m.err = nil
	m.status = fmt.Sprintf("%s %s: %d/%d", day.Date, tasks[m.col].Label, res.Day.Score, res.Day.MaxScore)
	m.loadMonth()
}

// shiftMonth moves to an adjacent month; target is empty at the window edge.
func (m *Model) shiftMonth(target string) {
	if target == "" {
		return
	}
	year, month, err := datekey.ParseMonth(target)
	if err != nil {
		m.err = err
		return
	}
	m.month = datekey.Month{Year: year, Month: month}
	m.row = 0
	m.loadMonth()
}
