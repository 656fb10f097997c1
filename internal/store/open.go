package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend kinds accepted by Open.
const (
	BackendFiles  = "files"
	BackendBlob   = "blob"
	BackendSQLite = "sqlite"
)

// SQLiteFile is the database file name used inside the data directory.
const SQLiteFile = "dtrack.db"

// Open constructs the named backend inside dataDir.
func Open(kind, dataDir string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", BackendFiles:
		return OpenFiles(dataDir), nil
	case BackendBlob:
		return OpenBlob(dataDir)
	case BackendSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dataDir, err)
		}
		return OpenSQLite(filepath.Join(dataDir, SQLiteFile))
	default:
		return nil, fmt.Errorf("unknown backend %q (want files, blob or sqlite)", kind)
	}
}
