// Package debug provides a verbose structured logger for development diagnostics.
//
// When enabled via --debug (or DTRACK_DEBUG=1), every store write, degraded
// read, git invocation, queued notification and HTTP request is appended to a
// single .log file under the debug directory (~/.dtrack/debug by default).
// Each line carries a timestamp, the elapsed time, the goroutine ID and the
// caller location.
//
// When disabled (the default), all logging functions are no-ops.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	logger   *Logger
	loggerMu sync.RWMutex
)

const (
	// EnvEnabled toggles the debug logger without the --debug flag.
	EnvEnabled = "DTRACK_DEBUG"
	// EnvLogPath forces logs to be appended to an existing file.
	EnvLogPath = "DTRACK_DEBUG_LOG_PATH"
)

// Logger writes structured debug lines to a file.
type Logger struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	id        string
	startedAt time.Time
	pid       int
}

// Init opens the global debug log inside dir (created if needed) and returns
// its path. An empty dir means ~/.dtrack/debug. Calling Init twice returns
// the already open log.
func Init(dir string) (string, error) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger != nil {
		return logger.path, nil
	}

	path, id, err := resolveLogPath(dir)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("debug: open log %s: %w", path, err)
	}

	now := time.Now()
	l := &Logger{file: f, path: path, id: id, startedAt: now, pid: os.Getpid()}
	fmt.Fprintf(f, "=== DTRACK DEBUG LOG ===\nStarted: %s\nPID: %d\nArgs: %s\nLog ID: %s\n===\n\n",
		now.Format(time.RFC3339Nano),
		l.pid,
		strings.Join(os.Args, " "),
		id,
	)
	logger = l
	return path, nil
}

// Close flushes and closes the debug log. Safe to call when not initialized.
func Close() {
	loggerMu.Lock()
	l := logger
	logger = nil
	loggerMu.Unlock()

	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "\n=== DEBUG LOG CLOSED === (pid=%d duration=%s)\n", l.pid, time.Since(l.startedAt))
	l.file.Close()
}

// Enabled returns true if the debug logger is active.
func Enabled() bool {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger != nil
}

// Path returns the log file path, or "" if not enabled.
func Path() string {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	if logger == nil {
		return ""
	}
	return logger.path
}

// ShouldEnableFromEnv reports whether the environment asks for debug logging.
func ShouldEnableFromEnv() bool {
	path := strings.TrimSpace(os.Getenv(EnvLogPath))
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvEnabled))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return path != ""
	}
}

func current() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// Log writes a debug line. No-op when debug is disabled.
func Log(component, msg string) {
	if l := current(); l != nil {
		l.write(component, msg, 2)
	}
}

// Logf writes a formatted debug line. No-op when debug is disabled.
func Logf(component, format string, args ...any) {
	if l := current(); l != nil {
		l.write(component, fmt.Sprintf(format, args...), 2)
	}
}

// LogKV writes a debug line with key-value context pairs.
// Usage: debug.LogKV("store", "day saved", "date", "2025-12-23", "task", "dsa")
func LogKV(component, msg string, kvs ...any) {
	l := current()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kvs[i], kvs[i+1])
	}
	if len(kvs)%2 == 1 {
		fmt.Fprintf(&b, " %v=?", kvs[len(kvs)-1])
	}
	l.write(component, b.String(), 2)
}

func (l *Logger) write(component, msg string, callerSkip int) {
	now := time.Now()

	_, file, line, ok := runtime.Caller(callerSkip)
	caller := "??:0"
	if ok {
		if idx := strings.LastIndex(file, "/internal/"); idx >= 0 {
			file = file[idx+1:]
		} else if idx := strings.LastIndex(file, "/cmd/"); idx >= 0 {
			file = file[idx+1:]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	// TIMESTAMP +ELAPSED [GID] [COMPONENT] CALLER | MESSAGE
	entry := fmt.Sprintf("%s +%12s [G%-6d] [%-10s] %-36s | %s\n",
		now.Format("15:04:05.000000"),
		now.Sub(l.startedAt).Truncate(time.Microsecond),
		goroutineID(),
		component,
		caller,
		msg,
	)

	l.mu.Lock()
	l.file.WriteString(entry)
	l.mu.Unlock()
}

func resolveLogPath(dir string) (path, id string, err error) {
	id = uuid.NewString()[:8]
	if inherited := strings.TrimSpace(os.Getenv(EnvLogPath)); inherited != "" {
		if err := os.MkdirAll(filepath.Dir(inherited), 0755); err != nil {
			return "", "", fmt.Errorf("debug: create dir for %s: %w", inherited, err)
		}
		return inherited, id, nil
	}

	if strings.TrimSpace(dir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", fmt.Errorf("debug: user home dir: %w", err)
		}
		dir = filepath.Join(home, ".dtrack", "debug")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("debug: create dir %s: %w", dir, err)
	}
	name := fmt.Sprintf("%s_%s.log", time.Now().Format("20060102T150405"), id)
	return filepath.Join(dir, name), id, nil
}

// goroutineID extracts the goroutine ID from runtime.Stack output.
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	var id int64
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + int64(c-'0')
	}
	return id
}
