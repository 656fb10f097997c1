// Package gitlog records tracker activity as commits in a git repository and
// reads the activity back for stats.
package gitlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
)

const (
	// FallbackName and FallbackEmail are used when the repository has no
	// identity configured.
	FallbackName  = "Daily Tracker"
	FallbackEmail = "dtrack@local"

	initialMessage = "Initial commit: Daily Tracker setup"
)

// ErrGitMissing is returned when the git binary is not on PATH.
var ErrGitMissing = errors.New("git executable not found")

type Options struct {
	// RepoDir is the working tree commits are made in.
	RepoDir string
	// CommitsPerUpdate is how many commits one Notify produces. Values
	// below 1 mean 1.
	CommitsPerUpdate int
	// AuthorName and AuthorEmail force the commit identity.
	AuthorName  string
	AuthorEmail string
	// StagePaths are staged before committing, relative to RepoDir.
	StagePaths []string
}

// Result is the outcome of one Notify call. Failures are reported here
// rather than as errors.
type Result struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message,omitempty"`
	Commits   int    `json:"commits"`
	Error     string `json:"error,omitempty"`
}

// Entry is one commit in the activity log.
type Entry struct {
	ID        string    `json:"hash"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"date"`
	Author    string    `json:"author"`
}

// Notifier serialises all git invocations against one repository.
type Notifier struct {
	opts Options
	mu   sync.Mutex
	now  func() time.Time
}

func New(opts Options) *Notifier {
	if opts.CommitsPerUpdate < 1 {
		opts.CommitsPerUpdate = 1
	}
	return &Notifier{opts: opts, now: time.Now}
}

// Dir returns the repository directory.
func (n *Notifier) Dir() string { return n.opts.RepoDir }

// Init creates the repository with an initial empty commit unless RepoDir is
// already the top level of one. A work tree that merely encloses RepoDir
// (a dotfiles repo in $HOME, say) gets a nested repository instead of the
// activity commits.
func (n *Notifier) Init(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := exec.LookPath("git"); err != nil {
		return ErrGitMissing
	}
	if err := os.MkdirAll(n.opts.RepoDir, 0755); err != nil {
		return fmt.Errorf("creating repo dir: %w", err)
	}
	if n.ownsRepo(ctx) {
		debug.LogKV("gitlog", "repository already initialized", "dir", n.opts.RepoDir)
		return nil
	}
	if _, err := n.git(ctx, "init"); err != nil {
		return err
	}
	args := append(n.identity(ctx), "commit", "--allow-empty", "-m", initialMessage)
	if _, err := n.git(ctx, args...); err != nil {
		return err
	}
	debug.LogKV("gitlog", "repository initialized", "dir", n.opts.RepoDir)
	return nil
}

// Notify commits "<action> [hh:mm AM]\n\n<details>" CommitsPerUpdate times.
func (n *Notifier) Notify(ctx context.Context, action, details string) Result {
	n.mu.Lock()
	defer n.mu.Unlock()

	msg := FormatMessage(action, details, n.now())
	res := Result{Message: msg}

	for _, p := range n.opts.StagePaths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := n.git(ctx, "add", "-A", "--", p); err != nil {
			res.Error = err.Error()
			return res
		}
	}

	ident := n.identity(ctx)
	for i := 0; i < n.opts.CommitsPerUpdate; i++ {
		args := append(append([]string{}, ident...), "commit", "--allow-empty", "-m", msg)
		if _, err := n.git(ctx, args...); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Commits++
	}

	ref, err := n.git(ctx, "rev-parse", "--short=7", "HEAD")
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Reference = strings.TrimSpace(ref)
	res.Success = true
	return res
}

// FormatMessage builds the commit message for an activity.
func FormatMessage(action, details string, at time.Time) string {
	head := fmt.Sprintf("%s [%s]", strings.TrimSpace(action), at.Format("03:04 PM"))
	details = strings.TrimSpace(details)
	if details == "" {
		return head
	}
	return head + "\n\n" + details
}

// TotalCount is the number of commits reachable from HEAD.
func (n *Notifier) TotalCount(ctx context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasHead(ctx) {
		return 0, nil
	}
	out, err := n.git(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parsing commit count %q: %w", out, err)
	}
	return count, nil
}

// TodayCount is the number of commits authored on the current local day.
func (n *Notifier) TodayCount(ctx context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.hasHead(ctx) {
		return 0, nil
	}
	today := datekey.Today(n.now())
	out, err := n.git(ctx, "log", "--format=%at")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, line := range strings.Split(out, "\n") {
		secs, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil {
			continue
		}
		if datekey.ToKey(time.Unix(secs, 0).In(time.Local)) == today {
			count++
		}
	}
	return count, nil
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Recent returns up to limit commits, newest first.
func (n *Notifier) Recent(ctx context.Context, limit int) ([]Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if limit <= 0 || !n.hasHead(ctx) {
		return []Entry{}, nil
	}
	out, err := n.git(ctx, "log", "-n", strconv.Itoa(limit),
		"--format=%H"+fieldSep+"%an"+fieldSep+"%at"+fieldSep+"%s"+recordSep)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []Entry {
	entries := []Entry{}
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\r\n")
		if rec == "" {
			continue
		}
		parts := strings.SplitN(rec, fieldSep, 4)
		if len(parts) != 4 {
			continue
		}
		id := parts[0]
		if len(id) > 7 {
			id = id[:7]
		}
		e := Entry{ID: id, Author: parts[1], Message: parts[3]}
		if secs, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			e.Timestamp = time.Unix(secs, 0)
		}
		entries = append(entries, e)
	}
	return entries
}

func (n *Notifier) hasHead(ctx context.Context) bool {
	_, err := n.git(ctx, "rev-parse", "--verify", "-q", "HEAD")
	return err == nil
}

// identity returns -c overrides for the commit author: the configured
// identity if set, the fallback when the repository has none.
func (n *Notifier) identity(ctx context.Context) []string {
	name, email := n.opts.AuthorName, n.opts.AuthorEmail
	if name == "" || email == "" {
		if out, err := n.git(ctx, "config", "--get", "user.email"); err == nil && strings.TrimSpace(out) != "" {
			if name == "" && email == "" {
				return nil
			}
		}
		if name == "" {
			name = FallbackName
		}
		if email == "" {
			email = FallbackEmail
		}
	}
	return []string{"-c", "user.name=" + name, "-c", "user.email=" + email}
}

// ownsRepo reports whether RepoDir is the top level of a work tree.
func (n *Notifier) ownsRepo(ctx context.Context) bool {
	out, err := n.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}
	top := strings.TrimSpace(out)
	if !samePath(top, n.opts.RepoDir) {
		debug.LogKV("gitlog", "repo dir is inside another work tree", "dir", n.opts.RepoDir, "toplevel", top)
		return false
	}
	return true
}

func samePath(a, b string) bool {
	return canonicalPath(a) == canonicalPath(b)
}

func canonicalPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}

func (n *Notifier) git(ctx context.Context, args ...string) (string, error) {
	debug.LogKV("gitlog", "git exec", "cmd", "git "+strings.Join(args, " "), "dir", n.opts.RepoDir)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = n.opts.RepoDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		debug.LogKV("gitlog", "git exec failed", "cmd", "git "+strings.Join(args, " "), "error", err, "output_len", len(out))
		return string(out), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
