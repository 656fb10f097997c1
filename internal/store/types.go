package store

import (
	"bytes"
	"encoding/json"
	"time"
)

// TaskState is the stored state of one task on one day.
type TaskState struct {
	Done      bool      `json:"done"`
	Topic     string    `json:"topic,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Metadata tracks when a day record was first and last written.
type Metadata struct {
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// DayRecord is the per-day task completion document.
type DayRecord struct {
	Date        string               `json:"date"`
	Tasks       map[string]TaskState `json:"tasks"`
	CommitCount int                  `json:"commitCount"`
	Metadata    Metadata             `json:"metadata"`
}

// NewDayRecord returns the default record for a day: no task set.
func NewDayRecord(key string) *DayRecord {
	return &DayRecord{Date: key, Tasks: make(map[string]TaskState)}
}

// Flag returns 1 when the task is done, else 0.
func (r *DayRecord) Flag(taskID string) int {
	if r == nil {
		return 0
	}
	if r.Tasks[taskID].Done {
		return 1
	}
	return 0
}

// Topic returns the topic text recorded for a task.
func (r *DayRecord) Topic(taskID string) string {
	if r == nil {
		return ""
	}
	return r.Tasks[taskID].Topic
}

// Clone returns a deep copy.
func (r *DayRecord) Clone() *DayRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Tasks = make(map[string]TaskState, len(r.Tasks))
	for id, st := range r.Tasks {
		out.Tasks[id] = st
	}
	return &out
}

// TaskUpdate is a partial change to one task. Nil fields are left alone.
// Flip inverts the stored flag and takes precedence over Done.
type TaskUpdate struct {
	Done  *bool   `json:"done,omitempty"`
	Topic *string `json:"topic,omitempty"`
	Flip  bool    `json:"-"`
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Done == nil && u.Topic == nil && !u.Flip
}

// SetsFlag reports whether the update touches the done flag.
func (u TaskUpdate) SetsFlag() bool {
	return u.Done != nil || u.Flip
}

// decodeDayRecord accepts the current document layout, the task list the
// file server wrote ({"tasks": [{"id", "done"|"value", "topic"}]}) and the
// flat {"taskId": 0|1} layout the browser variant keeps in local storage.
// Any parse failure is a *DecodeError.
func decodeDayRecord(key string, raw []byte) (*DayRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	if tasks, ok := fields["tasks"]; ok {
		if t := bytes.TrimSpace(tasks); len(t) > 0 && t[0] == '[' {
			return decodeTaskList(key, raw)
		}
		var rec DayRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, &DecodeError{Key: key, Err: err}
		}
		if rec.Tasks == nil {
			rec.Tasks = make(map[string]TaskState)
		}
		if rec.Date == "" {
			rec.Date = key
		}
		return &rec, nil
	}

	var flags map[string]int
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	rec := NewDayRecord(key)
	for id, v := range flags {
		rec.Tasks[id] = TaskState{Done: v == 1}
	}
	return rec, nil
}

// taskEntry is one element of the task list layout. Toggle tasks carry
// "value", topic tasks carry "done".
type taskEntry struct {
	ID        string    `json:"id"`
	Done      *bool     `json:"done"`
	Value     any       `json:"value"`
	Topic     string    `json:"topic"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type taskListRecord struct {
	Date        string      `json:"date"`
	Tasks       []taskEntry `json:"tasks"`
	CommitCount int         `json:"commitCount"`
	Metadata    Metadata    `json:"metadata"`
}

func decodeTaskList(key string, raw []byte) (*DayRecord, error) {
	var doc taskListRecord
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &DecodeError{Key: key, Err: err}
	}
	rec := NewDayRecord(key)
	if doc.Date != "" {
		rec.Date = doc.Date
	}
	rec.CommitCount = doc.CommitCount
	rec.Metadata = doc.Metadata
	for _, t := range doc.Tasks {
		if t.ID == "" {
			continue
		}
		done := false
		switch v := t.Value.(type) {
		case bool:
			done = v
		case float64:
			done = v == 1
		}
		if t.Done != nil {
			done = *t.Done
		}
		rec.Tasks[t.ID] = TaskState{Done: done, Topic: t.Topic, UpdatedAt: t.UpdatedAt}
	}
	return rec, nil
}
