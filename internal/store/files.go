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
	"strings"
	"time"

	"github.com/agusx1211/dtrack/internal/datekey"
)

// FileBackend stores each day as <dir>/<YYYY>/<MM>/<DD>.json.
type FileBackend struct {
	dir string
}

// OpenFiles returns a file-per-day backend rooted at dir. The directory is
// created on first write.
func OpenFiles(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) Name() string { return "files" }

// Dir returns the backend root.
func (b *FileBackend) Dir() string { return b.dir }

// PathFor returns the file that holds key's record.
func (b *FileBackend) PathFor(key string) string {
	return filepath.Join(b.dir, key[0:4], key[5:7], key[8:10]+".json")
}

func (b *FileBackend) Load(ctx context.Context, key string) (*DayRecord, error) {
	data, err := os.ReadFile(b.PathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return decodeDayRecord(key, data)
}

func (b *FileBackend) Save(ctx context.Context, rec *DayRecord) error {
	path := b.PathFor(rec.Date)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return writeJSONAtomic(path, rec)
}

// Quarantine renames key's file to <DD>.json.corrupt-<unix> and returns the
// new path.
func (b *FileBackend) Quarantine(ctx context.Context, key string) (string, error) {
	path := b.PathFor(key)
	dst := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
	if err := os.Rename(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (b *FileBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == b.dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		rel, err := filepath.Rel(b.dir, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 {
			return nil
		}
		key := parts[0] + "-" + parts[1] + "-" + strings.TrimSuffix(parts[2], ".json")
		if datekey.Valid(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (b *FileBackend) Close() error { return nil }

// writeJSONAtomic writes v next to path and renames it into place so readers
// never observe a partially written document.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
