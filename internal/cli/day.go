package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/store"
	"github.com/agusx1211/dtrack/internal/tracker"
)

func newToggleCmd(opts *rootOptions) *cobra.Command {
	var date string
	var on, off bool

	cmd := &cobra.Command{
		Use:   "toggle <task>",
		Short: "Flip a task for a day (today by default)",
		Example: `  dtrack toggle dsa
  dtrack toggle college --date 2025-12-24 --off`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if on && off {
				return fmt.Errorf("--on and --off cannot be used together")
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := resolveDate(a.svc, date)
			if err != nil {
				return err
			}
			taskID := catalog.NormalizeID(args[0])

			var res *tracker.UpdateResult
			if on || off {
				done := on
				res, err = a.svc.Update(cmd.Context(), tracker.UpdateRequest{
					Date:    key,
					TaskID:  taskID,
					Updates: store.TaskUpdate{Done: &done},
				})
			} else {
				res, err = a.svc.Toggle(cmd.Context(), key, taskID)
			}
			if err != nil {
				return err
			}
			printUpdateResult(cmd, taskID, res)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to change (YYYY-MM-DD, today, yesterday)")
	cmd.Flags().BoolVar(&on, "on", false, "Mark the task done instead of toggling")
	cmd.Flags().BoolVar(&off, "off", false, "Mark the task not done instead of toggling")
	return cmd
}

func printUpdateResult(cmd *cobra.Command, taskID string, res *tracker.UpdateResult) {
	w := cmd.OutOrStdout()
	day := res.Day
	label, state := taskID, "not done"
	for _, t := range day.Tasks {
		if t.ID != taskID {
			continue
		}
		label = t.Label
		if t.Done {
			state = "done"
		}
	}
	if !res.Changed {
		fmt.Fprintf(w, "%s%s already %s for %s%s\n", colorDim, label, state, day.Date, colorReset)
		return
	}
	fmt.Fprintf(w, "%s%s %s%s for %s  %s%d/%d%s\n",
		styleBoldGreen, label, state, colorReset, day.Date,
		levelColor(day.Level), day.Score, day.MaxScore, colorReset)
}

func newTopicCmd(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "topic <task> <text>",
		Short: "Set the free-text topic of a task for a day",
		Example: `  dtrack topic dsa "segment trees"
  dtrack topic dsa "" --date yesterday`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			key, err := resolveDate(a.svc, date)
			if err != nil {
				return err
			}
			taskID := catalog.NormalizeID(args[0])
			topic := strings.TrimSpace(strings.Join(args[1:], " "))
			res, err := a.svc.SetTopic(cmd.Context(), key, taskID, topic)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintf(w, "%sTopic unchanged%s\n", colorDim, colorReset)
				return nil
			}
			fmt.Fprintf(w, "%s%s topic%s for %s: %s\n", styleBoldGreen, a.svc.Catalog().Label(taskID), colorReset, key, topic)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to change (YYYY-MM-DD, today, yesterday)")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a day's tasks, topics and score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, opts, date)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to show (YYYY-MM-DD, today, yesterday)")
	return cmd
}

func runShow(cmd *cobra.Command, opts *rootOptions, date string) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	key, err := resolveDate(a.svc, date)
	if err != nil {
		return err
	}
	day, err := a.svc.Day(cmd.Context(), key)
	if err != nil {
		return err
	}
	printDay(cmd.OutOrStdout(), day)
	return nil
}
