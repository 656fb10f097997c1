package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/config"
	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/gitlog"
	"github.com/agusx1211/dtrack/internal/pushover"
	"github.com/agusx1211/dtrack/internal/store"
	"github.com/agusx1211/dtrack/internal/tracker"
)

const closeTimeout = 10 * time.Second

// app is everything a command needs, built from the resolved config.
type app struct {
	cfg      *config.Config
	store    *store.Store
	notifier *gitlog.Notifier
	svc      *tracker.Service
}

// loadConfig resolves the config and applies the global flag overrides.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}
	if opts.Backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(opts.Backend))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return c, nil
}

// openApp wires config, catalog, store, git notifier and tracker. A
// notifier that cannot be initialized is reported and left out; tracking
// keeps working without the activity log.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	c, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := store.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Backend, err)
	}
	st := store.New(backend, c)

	a := &app{cfg: cfg, store: st}
	var notifier tracker.Notifier
	if cfg.Notifier.Enabled {
		n := gitlog.New(gitlog.Options{
			RepoDir:          cfg.Notifier.RepoDir,
			CommitsPerUpdate: cfg.Notifier.CommitsPerUpdate,
			AuthorName:       cfg.Notifier.AuthorName,
			AuthorEmail:      cfg.Notifier.AuthorEmail,
			StagePaths:       cfg.StagePaths(),
		})
		if err := n.Init(cmd.Context()); err != nil {
			debug.LogKV("cli", "git notifier disabled", "dir", cfg.Notifier.RepoDir, "error", err)
			msg := err.Error()
			if errors.Is(err, gitlog.ErrGitMissing) {
				msg = "git not found in PATH"
			}
			fmt.Fprintf(os.Stderr, "%sWarning:%s activity log disabled: %s\n", styleBoldYellow, colorReset, msg)
		} else {
			a.notifier = n
			notifier = n
		}
	}

	topts := tracker.Options{
		Window:        cfg.Window,
		DailyGoal:     cfg.Notifier.DailyGoal,
		NotifyTimeout: cfg.Notifier.Timeout,
		Debounce:      cfg.Debounce,
		QueueSize:     cfg.Notifier.QueueSize,
		RecentLimit:   cfg.Notifier.RecentLimit,
	}
	if cfg.Pushover.Configured() {
		topts.Alerter = pushover.New(cfg.Pushover)
	}
	a.svc = tracker.New(st, notifier, topts)

	debug.LogKV("cli", "app opened",
		"backend", backend.Name(),
		"data_dir", cfg.DataDir,
		"tasks", c.Len(),
		"notifier", a.notifier != nil,
		"config_sources", cfg.Sources,
	)
	return a, nil
}

// Close flushes pending commits and releases the store.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	err := a.svc.Close(ctx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}

// resolveDate maps "", "today" and "yesterday" to keys and validates the rest.
func resolveDate(svc *tracker.Service, raw string) (string, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "", "today":
		return svc.Today(), nil
	case "yesterday":
		t, err := datekey.FromKey(svc.Today())
		if err != nil {
			return "", err
		}
		return datekey.ToKey(t.AddDate(0, 0, -1)), nil
	}
	if _, err := datekey.FromKey(raw); err != nil {
		return "", err
	}
	return raw, nil
}
