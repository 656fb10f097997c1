// Package cli implements the dtrack command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/buildinfo"
	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/debug"
	"github.com/agusx1211/dtrack/internal/tui"
)

const (
	// ANSI color codes
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"

	// Combined styles
	styleBoldCyan   = "\033[1;36m"
	styleBoldGreen  = "\033[1;32m"
	styleBoldYellow = "\033[1;33m"
	styleBoldWhite  = "\033[1;37m"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	Debug      bool
	ConfigPath string
	DataDir    string
	Backend    string
}

// NewRootCommand builds the dtrack command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dtrack",
		Short: "Daily habit tracker with a git activity log",
		Long: colorBold + `dtrack` + colorReset + ` v` + buildinfo.Current().Version + `

  Track a fixed set of daily tasks on a calendar grid. Every change is
  recorded as a commit in a local git repository.

` + colorBold + `Getting Started:` + colorReset + `
  dtrack grid                     Open the month grid
  dtrack toggle dsa               Mark today's DSA task done
  dtrack stats                    Consistency for the current month
  dtrack serve                    Start the HTTP API on :3000`,

		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive(cmd) {
				return runShow(cmd, opts, "")
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			return tui.Run(cmd.Context(), a.svc, datekey.Month{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.HiddenDefaultCmd = true

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Enable verbose debug logging to ~/.dtrack/debug/")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Config file (merged over ~/.dtrack/config.yaml and ./dtrack.yaml)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Directory holding day records")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "Storage backend: files, blob or sqlite")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !opts.Debug && !debug.ShouldEnableFromEnv() {
			return nil
		}
		dir := ""
		if cfg, err := loadConfig(opts); err == nil {
			dir = cfg.DebugDir
		}
		logPath, err := debug.Init(dir)
		if err != nil {
			return fmt.Errorf("initializing debug logger: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s[debug]%s logging to %s\n", colorDim, colorReset, logPath)
		bi := buildinfo.Current()
		debug.LogKV("cli", "dtrack starting",
			"version", bi.Version,
			"commit", bi.CommitHash,
			"build_date", bi.BuildDate,
			"pid", os.Getpid(),
			"command", cmd.Name(),
			"args", args,
		)
		return nil
	}

	cmd.AddCommand(
		newServeCmd(opts),
		newGridCmd(opts),
		newToggleCmd(opts),
		newTopicCmd(opts),
		newShowCmd(opts),
		newStatsCmd(opts),
		newLogCmd(opts),
		newTasksCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() {
	defer debug.Close()
	if err := NewRootCommand().Execute(); err != nil {
		debug.Logf("cli", "exit with error: %v", err)
		fmt.Fprintf(os.Stderr, "%sError: %s%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
	debug.Log("cli", "exit success")
}
