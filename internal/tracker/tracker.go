// Package tracker is the application service behind the CLI, the TUI and
// the HTTP API. It applies task updates to the day store, scores them and
// hands activity to the commit notifier without letting notifier latency or
// failure reach the caller.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/eventq"
	"github.com/agusx1211/dtrack/internal/gitlog"
	"github.com/agusx1211/dtrack/internal/scoring"
	"github.com/agusx1211/dtrack/internal/store"
)

const (
	DefaultDailyGoal     = 10
	DefaultNotifyTimeout = 5 * time.Second
	DefaultDebounce      = time.Second
	DefaultQueueSize     = 64
	DefaultRecentLimit   = 10
)

var (
	// ErrEmptyUpdate is returned when an update changes no field.
	ErrEmptyUpdate = errors.New("update has no fields")
	// ErrInvalidValue is returned for a legacy value other than 0 or 1.
	ErrInvalidValue = errors.New("value must be 0 or 1")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("tracker closed")
)

// Notifier records activity and reports it back for display.
type Notifier interface {
	Notify(ctx context.Context, action, details string) gitlog.Result
	TodayCount(ctx context.Context) (int, error)
	TotalCount(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]gitlog.Entry, error)
}

// Alerter is told when a day reaches the maximum score.
type Alerter interface {
	Alert(ctx context.Context, title, body string) error
}

type Options struct {
	Window        datekey.Window
	DailyGoal     int
	NotifyTimeout time.Duration
	Debounce      time.Duration
	QueueSize     int
	RecentLimit   int
	Alerter       Alerter
}

// UpdateRequest is one task change. Value is the legacy 0/1 form of
// Updates.Done. Empty Action and Details are generated.
type UpdateRequest struct {
	Date    string
	TaskID  string
	Updates store.TaskUpdate
	Value   *int
	Action  string
	Details string
}

// Notification states reported in UpdateResult.
const (
	NotifyQueued    = "queued"
	NotifyDebounced = "debounced"
	NotifyDropped   = "dropped"
	NotifySkipped   = "skipped"
)

// UpdateResult is the outcome of Update.
type UpdateResult struct {
	Day          DayView `json:"day"`
	Changed      bool    `json:"changed"`
	Notification string  `json:"notification"`
}

type jobKind int

const (
	jobCommit jobKind = iota
	jobAlert
)

type job struct {
	kind    jobKind
	date    string
	taskID  string
	action  string
	details string
}

// Service is safe for concurrent use.
type Service struct {
	store    *store.Store
	engine   *scoring.Engine
	notifier Notifier
	opts     Options
	now      func() time.Time

	queue    *eventq.Worker[job]
	debounce *debouncer
	events   *hub

	closeMu sync.RWMutex
	closed  bool
}

// New wires a service. A nil notifier disables commit activity.
func New(st *store.Store, n Notifier, opts Options) *Service {
	if opts.Window.Start == "" || opts.Window.End == "" {
		opts.Window = datekey.DefaultWindow
	}
	if opts.DailyGoal <= 0 {
		opts.DailyGoal = DefaultDailyGoal
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = DefaultNotifyTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}

	s := &Service{
		store:    st,
		engine:   scoring.New(st.Catalog()),
		notifier: n,
		opts:     opts,
		now:      time.Now,
		events:   newHub(),
	}
	s.queue = eventq.NewWorker(opts.QueueSize, s.handle)
	s.debounce = newDebouncer(opts.Debounce, func(j job) { s.enqueue(j) })
	return s
}

func (s *Service) Catalog() *catalog.Catalog { return s.store.Catalog() }
func (s *Service) Engine() *scoring.Engine   { return s.engine }
func (s *Service) Window() datekey.Window    { return s.opts.Window }
func (s *Service) Store() *store.Store       { return s.store }

// Today returns today's key.
func (s *Service) Today() string { return datekey.Today(s.now()) }

// Subscribe returns a stream of tracker events and a cancel func that must
// be called when the subscriber goes away.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Update applies req to the store and returns the persisted day. The commit
// notification runs asynchronously; its outcome never changes the result.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	u := req.Updates
	if req.Value != nil && u.Done == nil {
		if *req.Value != 0 && *req.Value != 1 {
			return nil, ErrInvalidValue
		}
		done := *req.Value == 1
		u.Done = &done
	}
	if u.Empty() {
		return nil, ErrEmptyUpdate
	}

	taskID := catalog.NormalizeID(req.TaskID)
	rec, changed, err := s.store.Apply(ctx, req.Date, taskID, u)
	if err != nil {
		return nil, err
	}

	day := s.dayView(rec)
	res := &UpdateResult{Day: day, Changed: changed, Notification: NotifySkipped}
	if !changed {
		return res, nil
	}
	s.events.publish(Event{Type: EventDayUpdated, Time: s.now(), Data: day})

	label := s.Catalog().Label(taskID)
	done := rec.Flag(taskID) == 1
	j := job{kind: jobCommit, date: req.Date, taskID: taskID, action: req.Action, details: req.Details}
	if u.SetsFlag() {
		if j.action == "" {
			j.action = flagAction(label, done)
		}
		if j.details == "" {
			j.details = fmt.Sprintf("%s: %s = %d (Score: %d/%d)", req.Date, label, rec.Flag(taskID), day.Score, day.MaxScore)
		}
		res.Notification = s.enqueue(j)
	} else {
		if j.action == "" {
			j.action = label + " topic updated"
		}
		if j.details == "" {
			j.details = fmt.Sprintf("%s: %s topic = %q", req.Date, label, rec.Topic(taskID))
		}
		s.debounce.schedule(req.Date+"/"+taskID, j)
		res.Notification = NotifyDebounced
	}

	// Only a flag set to done can move a day onto the maximum.
	if u.SetsFlag() && done && day.Level == scoring.LevelPerfect {
		s.events.publish(Event{Type: EventDayPerfect, Time: s.now(), Data: day})
		if s.opts.Alerter != nil {
			s.enqueue(job{
				kind:    jobAlert,
				date:    req.Date,
				action:  "Perfect day",
				details: fmt.Sprintf("%s: all %d tasks done (Score: %d/%d)", req.Date, s.Catalog().Len(), day.Score, day.MaxScore),
			})
		}
	}
	return res, nil
}

// Toggle flips a task's flag. The flip happens under the store's per-day
// lock, so two quick toggles always cancel out.
func (s *Service) Toggle(ctx context.Context, key, taskID string) (*UpdateResult, error) {
	return s.Update(ctx, UpdateRequest{Date: key, TaskID: taskID, Updates: store.TaskUpdate{Flip: true}})
}

// SetTopic records a topic for a task; its commit is debounced.
func (s *Service) SetTopic(ctx context.Context, key, taskID, topic string) (*UpdateResult, error) {
	return s.Update(ctx, UpdateRequest{Date: key, TaskID: taskID, Updates: store.TaskUpdate{Topic: &topic}})
}

func flagAction(label string, done bool) string {
	if done {
		return label + " completed"
	}
	return label + " unchecked"
}

func (s *Service) enqueue(j job) string {
	if s.notifier == nil && j.kind == jobCommit {
		return NotifySkipped
	}
	if !s.queue.Offer(j) {
		debug.LogKV("tracker", "notifier failure", "reason", "queue full", "date", j.date, "action", j.action)
		s.events.publish(Event{Type: EventCommitFailed, Time: s.now(), Data: map[string]any{
			"date":   j.date,
			"taskId": j.taskID,
			"action": j.action,
			"error":  "notification queue full",
		}})
		return NotifyDropped
	}
	return NotifyQueued
}

// handle runs on the queue worker.
func (s *Service) handle(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.NotifyTimeout)
	defer cancel()

	switch j.kind {
	case jobAlert:
		if err := s.opts.Alerter.Alert(ctx, j.action, j.details); err != nil {
			debug.LogKV("tracker", "alert failed", "date", j.date, "error", err)
		}
	case jobCommit:
		res := s.notifier.Notify(ctx, j.action, j.details)
		if !res.Success && res.Error == "" && ctx.Err() != nil {
			res.Error = ctx.Err().Error()
		}
		if !res.Success {
			debug.LogKV("tracker", "notifier failure", "date", j.date, "task", j.taskID, "action", j.action, "error", res.Error)
			s.events.publish(Event{Type: EventCommitFailed, Time: s.now(), Data: map[string]any{
				"date":   j.date,
				"taskId": j.taskID,
				"action": j.action,
				"error":  res.Error,
			}})
			return
		}
		debug.LogKV("tracker", "commit created", "date", j.date, "task", j.taskID, "ref", res.Reference, "commits", res.Commits)
		s.events.publish(Event{Type: EventCommitCreated, Time: s.now(), Data: map[string]any{
			"date":      j.date,
			"taskId":    j.taskID,
			"action":    j.action,
			"reference": res.Reference,
			"commits":   res.Commits,
		}})
	}
}

// Close flushes pending debounced commits, drains the queue within ctx and
// closes subscriber streams.
func (s *Service) Close(ctx context.Context) error {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return nil
	}
	s.closed = true
	s.closeMu.Unlock()

	s.debounce.flush()
	err := s.queue.Close(ctx)
	s.events.closeAll()
	return err
}
