package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// BlobKey is the fixed application key the whole store is saved under.
const BlobKey = "daily-tracker-git"

// BlobBackend keeps every day in one JSON object keyed by date, read once at
// open and rewritten in full on every mutation.
type BlobBackend struct {
	path string
	mu   sync.RWMutex
	days map[string]*DayRecord
}

// OpenBlob loads <dir>/daily-tracker-git.json, or starts empty when absent.
func OpenBlob(dir string) (*BlobBackend, error) {
	b := &BlobBackend{
		path: filepath.Join(dir, BlobKey+".json"),
		days: make(map[string]*DayRecord),
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return b, nil
		}
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", b.path, err)
	}
	for key, doc := range raw {
		rec, err := decodeDayRecord(key, doc)
		if err != nil {
			return nil, err
		}
		b.days[key] = rec
	}
	return b, nil
}

func (b *BlobBackend) Name() string { return "blob" }

// Path returns the blob file location.
func (b *BlobBackend) Path() string { return b.path }

func (b *BlobBackend) Load(ctx context.Context, key string) (*DayRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.days[key].Clone(), nil
}

// Save rewrites the blob with rec applied. The in-memory map only changes
// once the file write succeeded.
func (b *BlobBackend) Save(ctx context.Context, rec *DayRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]*DayRecord, len(b.days)+1)
	for k, v := range b.days {
		next[k] = v
	}
	next[rec.Date] = rec.Clone()

	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return err
	}
	if err := writeJSONAtomic(b.path, next); err != nil {
		return err
	}
	b.days = next
	return nil
}

func (b *BlobBackend) Keys(ctx context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.days))
	for k := range b.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *BlobBackend) Close() error { return nil }
