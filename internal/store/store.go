// Package store persists per-day task completion records.
//
// A Store validates task ids against the catalog, serialises writes per day
// and delegates durability to a Backend: one JSON file per day, a single JSON
// blob, or SQLite.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
)

// Backend is the durable storage behind a Store.
// Load returns (nil, nil) when no record exists for the key.
// Save must replace the stored record atomically.
type Backend interface {
	Name() string
	Load(ctx context.Context, key string) (*DayRecord, error)
	Save(ctx context.Context, rec *DayRecord) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Quarantiner is implemented by backends that can move an undecodable day
// aside so the next write starts from a fresh record without losing it.
type Quarantiner interface {
	Quarantine(ctx context.Context, key string) (string, error)
}

type Store struct {
	backend Backend
	catalog *catalog.Catalog
	locks   sync.Map // date key -> *sync.Mutex
	now     func() time.Time
}

func New(backend Backend, c *catalog.Catalog) *Store {
	return &Store{backend: backend, catalog: c, now: time.Now}
}

// Catalog returns the task catalog the store validates against.
func (s *Store) Catalog() *catalog.Catalog { return s.catalog }

// Backend returns the storage backend.
func (s *Store) Backend() Backend { return s.backend }

func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) lockFor(key string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Get returns the record for key, or a default record if none was written.
// A backend read failure is logged and also yields the default record.
func (s *Store) Get(ctx context.Context, key string) (*DayRecord, error) {
	if _, err := datekey.FromKey(key); err != nil {
		return nil, err
	}
	rec, err := s.backend.Load(ctx, key)
	if err != nil {
		debug.LogKV("store", "load failed, using default record", "backend", s.backend.Name(), "date", key, "error", err)
		return NewDayRecord(key), nil
	}
	if rec == nil {
		return NewDayRecord(key), nil
	}
	return rec, nil
}

// load is the read used on the write path. I/O failures are returned; a
// document that cannot be decoded is moved aside when the backend supports
// it and replaced by a fresh record.
func (s *Store) load(ctx context.Context, key string) (*DayRecord, error) {
	rec, err := s.backend.Load(ctx, key)
	var de *DecodeError
	if errors.As(err, &de) {
		moved := ""
		if q, ok := s.backend.(Quarantiner); ok {
			if moved, err = q.Quarantine(ctx, key); err != nil {
				return nil, &PersistenceError{Op: "quarantine", Key: key, Err: err}
			}
		}
		debug.LogKV("store", "undecodable day replaced", "backend", s.backend.Name(), "date", key, "moved_to", moved, "error", de)
		return NewDayRecord(key), nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load", Key: key, Err: err}
	}
	if rec == nil {
		return NewDayRecord(key), nil
	}
	return rec, nil
}

// SetTaskFlag marks a task done or not done for a day.
func (s *Store) SetTaskFlag(ctx context.Context, key, taskID string, done bool) (*DayRecord, error) {
	rec, _, err := s.Apply(ctx, key, taskID, TaskUpdate{Done: &done})
	return rec, err
}

// ToggleTaskFlag flips a task's flag. The current value is read under the
// day's lock, so concurrent toggles never collapse into one.
func (s *Store) ToggleTaskFlag(ctx context.Context, key, taskID string) (*DayRecord, error) {
	rec, _, err := s.Apply(ctx, key, taskID, TaskUpdate{Flip: true})
	return rec, err
}

// SetTaskTopic records the topic text for a task on a day.
func (s *Store) SetTaskTopic(ctx context.Context, key, taskID, topic string) (*DayRecord, error) {
	rec, _, err := s.Apply(ctx, key, taskID, TaskUpdate{Topic: &topic})
	return rec, err
}

// Apply merges u into the task's state and persists the whole record before
// returning. The reported bool is false when the update matched the stored
// state; nothing is written in that case. The returned record is a copy.
func (s *Store) Apply(ctx context.Context, key, taskID string, u TaskUpdate) (*DayRecord, bool, error) {
	if _, err := datekey.FromKey(key); err != nil {
		return nil, false, err
	}
	task, ok := s.catalog.Lookup(taskID)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownTask, taskID)
	}

	mu := s.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	current, err := s.load(ctx, key)
	if err != nil {
		return nil, false, err
	}

	state := current.Tasks[task.ID]
	if u.Flip {
		done := !state.Done
		u.Done = &done
	}
	changed := false
	if u.Done != nil && state.Done != *u.Done {
		state.Done = *u.Done
		changed = true
	}
	if u.Topic != nil && state.Topic != *u.Topic {
		state.Topic = *u.Topic
		changed = true
	}
	if !changed {
		return current.Clone(), false, nil
	}

	now := s.now().UTC()
	next := current.Clone()
	state.UpdatedAt = now
	next.Tasks[task.ID] = state
	next.CommitCount++
	if next.Metadata.CreatedAt.IsZero() {
		next.Metadata.CreatedAt = now
	}
	next.Metadata.LastUpdatedAt = now

	if err := s.backend.Save(ctx, next); err != nil {
		debug.LogKV("store", "save failed", "backend", s.backend.Name(), "date", key, "task", task.ID, "error", err)
		return nil, false, &PersistenceError{Op: "save", Key: key, Err: err}
	}
	debug.LogKV("store", "day saved", "backend", s.backend.Name(), "date", key, "task", task.ID, "done", state.Done)
	return next.Clone(), true, nil
}

// AllDatesInRange returns every key from start to end inclusive.
func (s *Store) AllDatesInRange(start, end time.Time) []string {
	return datekey.Range(start, end)
}

// Snapshot returns the stored records for keys. Days that were never written
// or could not be read are absent from the map.
func (s *Store) Snapshot(ctx context.Context, keys []string) map[string]*DayRecord {
	out := make(map[string]*DayRecord, len(keys))
	for _, key := range keys {
		rec, err := s.backend.Load(ctx, key)
		if err != nil {
			debug.LogKV("store", "snapshot load failed", "date", key, "error", err)
			continue
		}
		if rec != nil {
			out[key] = rec
		}
	}
	return out
}

// Keys lists the days that have a stored record, ascending.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Key: "*", Err: err}
	}
	return keys, nil
}
