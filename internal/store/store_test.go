package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/datekey"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Task{
		{ID: "dsa", Label: "DSA Practice", Weight: 2},
		{ID: "college", Label: "College", Weight: 1},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

// backends returns one fresh instance of every backend kind.
func backends(t *testing.T) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		BackendFiles: func(t *testing.T) Backend { return OpenFiles(t.TempDir()) },
		BackendBlob: func(t *testing.T) Backend {
			b, err := OpenBlob(t.TempDir())
			if err != nil {
				t.Fatalf("OpenBlob: %v", err)
			}
			return b
		},
		BackendSQLite: func(t *testing.T) Backend {
			b, err := OpenSQLite(filepath.Join(t.TempDir(), SQLiteFile))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { b.Close() })
			return b
		},
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(open(t), testCatalog(t))
			fixed := time.Date(2025, 12, 23, 8, 0, 0, 0, time.UTC)
			s.now = func() time.Time { return fixed }

			t.Run("absent day is default", func(t *testing.T) {
				rec, err := s.Get(ctx, "2025-12-20")
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if rec.Date != "2025-12-20" || len(rec.Tasks) != 0 || rec.Flag("dsa") != 0 {
					t.Fatalf("default record = %+v", rec)
				}
			})

			t.Run("set flag persists", func(t *testing.T) {
				rec, err := s.SetTaskFlag(ctx, "2025-12-23", "dsa", true)
				if err != nil {
					t.Fatalf("SetTaskFlag: %v", err)
				}
				if rec.Flag("dsa") != 1 || rec.CommitCount != 1 {
					t.Fatalf("returned record = %+v", rec)
				}
				if !rec.Metadata.LastUpdatedAt.Equal(fixed) || !rec.Metadata.CreatedAt.Equal(fixed) {
					t.Fatalf("metadata = %+v", rec.Metadata)
				}
				got, err := s.Get(ctx, "2025-12-23")
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if got.Flag("dsa") != 1 || got.Flag("college") != 0 {
					t.Fatalf("stored record = %+v", got)
				}
			})

			t.Run("idempotent", func(t *testing.T) {
				before, _ := s.Get(ctx, "2025-12-23")
				again, err := s.SetTaskFlag(ctx, "2025-12-23", "dsa", true)
				if err != nil {
					t.Fatalf("SetTaskFlag: %v", err)
				}
				after, _ := s.Get(ctx, "2025-12-23")
				if again.CommitCount != before.CommitCount || after.CommitCount != before.CommitCount {
					t.Fatalf("repeat write changed record: before=%+v after=%+v", before, after)
				}
				if !after.Metadata.LastUpdatedAt.Equal(before.Metadata.LastUpdatedAt) {
					t.Fatal("repeat write bumped LastUpdatedAt")
				}
			})

			t.Run("unknown task leaves record unchanged", func(t *testing.T) {
				before, _ := s.Get(ctx, "2025-12-23")
				_, err := s.SetTaskFlag(ctx, "2025-12-23", "yoga", true)
				if !errors.Is(err, ErrUnknownTask) {
					t.Fatalf("err = %v, want ErrUnknownTask", err)
				}
				after, _ := s.Get(ctx, "2025-12-23")
				if after.CommitCount != before.CommitCount || len(after.Tasks) != len(before.Tasks) {
					t.Fatalf("record changed: before=%+v after=%+v", before, after)
				}
			})

			t.Run("invalid key", func(t *testing.T) {
				if _, err := s.Get(ctx, "2025-13-01"); !errors.Is(err, datekey.ErrInvalidFormat) {
					t.Fatalf("Get err = %v", err)
				}
				if _, err := s.SetTaskFlag(ctx, "yesterday", "dsa", true); !errors.Is(err, datekey.ErrInvalidFormat) {
					t.Fatalf("SetTaskFlag err = %v", err)
				}
			})

			t.Run("topic and toggle back", func(t *testing.T) {
				if _, err := s.SetTaskTopic(ctx, "2025-12-24", "college", "Compiler design"); err != nil {
					t.Fatalf("SetTaskTopic: %v", err)
				}
				if _, err := s.SetTaskFlag(ctx, "2025-12-24", "college", true); err != nil {
					t.Fatalf("SetTaskFlag: %v", err)
				}
				rec, err := s.SetTaskFlag(ctx, "2025-12-24", "college", false)
				if err != nil {
					t.Fatalf("SetTaskFlag: %v", err)
				}
				if rec.Flag("college") != 0 || rec.Topic("college") != "Compiler design" {
					t.Fatalf("record = %+v", rec)
				}
			})

			t.Run("keys and snapshot", func(t *testing.T) {
				keys, err := s.Keys(ctx)
				if err != nil {
					t.Fatalf("Keys: %v", err)
				}
				if len(keys) != 2 || keys[0] != "2025-12-23" || keys[1] != "2025-12-24" {
					t.Fatalf("Keys = %v", keys)
				}
				snap := s.Snapshot(ctx, []string{"2025-12-22", "2025-12-23", "2025-12-24"})
				if len(snap) != 2 || snap["2025-12-22"] != nil {
					t.Fatalf("Snapshot = %v", snap)
				}
			})

			t.Run("returned records are copies", func(t *testing.T) {
				rec, _ := s.Get(ctx, "2025-12-23")
				rec.Tasks["dsa"] = TaskState{}
				again, _ := s.Get(ctx, "2025-12-23")
				if again.Flag("dsa") != 1 {
					t.Fatal("mutating a returned record leaked into the store")
				}
			})
		})
	}
}

func TestConcurrentWritesSameDay(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(open(t), testCatalog(t))
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					task := "dsa"
					if i%2 == 1 {
						task = "college"
					}
					if _, err := s.SetTaskFlag(ctx, "2025-12-25", task, true); err != nil {
						t.Errorf("SetTaskFlag: %v", err)
					}
				}(i)
			}
			wg.Wait()

			rec, _ := s.Get(ctx, "2025-12-25")
			if rec.Flag("dsa") != 1 || rec.Flag("college") != 1 {
				t.Fatalf("lost update: %+v", rec)
			}
			if rec.CommitCount != 2 {
				t.Fatalf("CommitCount = %d, want 2 (one per real change)", rec.CommitCount)
			}
		})
	}
}

func TestFileLayout(t *testing.T) {
	dir := t.TempDir()
	s := New(OpenFiles(dir), testCatalog(t))
	if _, err := s.SetTaskFlag(context.Background(), "2026-01-05", "dsa", true); err != nil {
		t.Fatalf("SetTaskFlag: %v", err)
	}
	path := filepath.Join(dir, "2026", "01", "05.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestCorruptDayReadsDefaultAndAcceptsWrites(t *testing.T) {
	dir := t.TempDir()
	b := OpenFiles(dir)
	path := b.PathFor("2025-12-23")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(b, testCatalog(t))
	ctx := context.Background()

	rec, err := s.Get(ctx, "2025-12-23")
	if err != nil || rec.Flag("dsa") != 0 {
		t.Fatalf("Get = %+v, %v; want default record", rec, err)
	}

	for i := 0; i < 2; i++ {
		task := []string{"dsa", "college"}[i]
		if _, err := s.SetTaskFlag(ctx, "2025-12-23", task, true); err != nil {
			t.Fatalf("SetTaskFlag(%s) over corrupt day: %v", task, err)
		}
	}
	rec, _ = s.Get(ctx, "2025-12-23")
	if rec.Flag("dsa") != 1 || rec.Flag("college") != 1 {
		t.Fatalf("record after recovery = %+v", rec)
	}

	matches, _ := filepath.Glob(path + ".corrupt-*")
	if len(matches) != 1 {
		t.Fatalf("quarantined files = %v, want one", matches)
	}
	if data, _ := os.ReadFile(matches[0]); string(data) != "{not json" {
		t.Fatalf("quarantined content = %q", data)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 1 || keys[0] != "2025-12-23" {
		t.Fatalf("Keys = %v", keys)
	}
}

func TestTaskListLayout(t *testing.T) {
	dir := t.TempDir()
	b := OpenFiles(dir)
	path := b.PathFor("2025-12-23")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	doc := `{
  "date": "2025-12-23",
  "tasks": [
    {"id": "exercise", "type": "toggle", "value": true},
    {"id": "dsa", "type": "topic", "topic": "heaps", "done": true, "updatedAt": "2025-12-23T08:00:00Z"},
    {"id": "college", "type": "topic", "topic": "", "done": false}
  ],
  "commitCount": 4,
  "metadata": {"createdAt": "2025-12-23T07:00:00Z", "lastUpdatedAt": "2025-12-23T08:00:00Z"}
}`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	s := New(b, testCatalog(t))
	ctx := context.Background()

	rec, err := s.Get(ctx, "2025-12-23")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Flag("dsa") != 1 || rec.Topic("dsa") != "heaps" || rec.Flag("college") != 0 {
		t.Fatalf("decoded record = %+v", rec)
	}
	if !rec.Tasks["exercise"].Done || rec.CommitCount != 4 {
		t.Fatalf("decoded record = %+v", rec)
	}

	rec, err = s.SetTaskFlag(ctx, "2025-12-23", "college", true)
	if err != nil {
		t.Fatalf("SetTaskFlag: %v", err)
	}
	if rec.Flag("dsa") != 1 || rec.Flag("college") != 1 || rec.CommitCount != 5 {
		t.Fatalf("record after write = %+v", rec)
	}
}

func TestConcurrentTogglesSameDay(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := New(open(t), testCatalog(t))
			var wg sync.WaitGroup
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.ToggleTaskFlag(ctx, "2025-12-26", "dsa"); err != nil {
						t.Errorf("ToggleTaskFlag: %v", err)
					}
				}()
			}
			wg.Wait()

			rec, _ := s.Get(ctx, "2025-12-26")
			if rec.Flag("dsa") != 0 || rec.CommitCount != 10 {
				t.Fatalf("after 10 toggles: flag=%d commits=%d", rec.Flag("dsa"), rec.CommitCount)
			}
		})
	}
}

type failingSave struct {
	Backend
}

func (f failingSave) Save(ctx context.Context, rec *DayRecord) error {
	return errors.New("disk full")
}

func TestSaveFailureIsSurfaced(t *testing.T) {
	b := OpenFiles(t.TempDir())
	s := New(failingSave{b}, testCatalog(t))
	_, err := s.SetTaskFlag(context.Background(), "2025-12-23", "dsa", true)
	var pe *PersistenceError
	if !errors.As(err, &pe) || pe.Op != "save" || pe.Key != "2025-12-23" {
		t.Fatalf("err = %v, want save PersistenceError", err)
	}
	rec, _ := s.Get(context.Background(), "2025-12-23")
	if rec.Flag("dsa") != 0 {
		t.Fatal("failed write is visible to readers")
	}
}

func TestBlobReloadAndLegacyFormat(t *testing.T) {
	dir := t.TempDir()
	legacy := `{"2025-12-23": {"dsa": 1, "college": 0}}`
	if err := os.WriteFile(filepath.Join(dir, BlobKey+".json"), []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}
	b, err := OpenBlob(dir)
	if err != nil {
		t.Fatalf("OpenBlob: %v", err)
	}
	s := New(b, testCatalog(t))
	rec, _ := s.Get(context.Background(), "2025-12-23")
	if rec.Flag("dsa") != 1 || rec.Flag("college") != 0 {
		t.Fatalf("legacy record = %+v", rec)
	}

	if _, err := s.SetTaskFlag(context.Background(), "2025-12-24", "college", true); err != nil {
		t.Fatalf("SetTaskFlag: %v", err)
	}
	reopened, err := OpenBlob(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	keys, _ := reopened.Keys(context.Background())
	if len(keys) != 2 {
		t.Fatalf("reopened keys = %v", keys)
	}
	day, _ := reopened.Load(context.Background(), "2025-12-24")
	if day.Flag("college") != 1 {
		t.Fatalf("reopened day = %+v", day)
	}
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	if _, err := Open("redis", t.TempDir()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	b, err := Open("", t.TempDir())
	if err != nil || b.Name() != BackendFiles {
		t.Fatalf("Open(\"\") = %v, %v; want files backend", b, err)
	}
}
