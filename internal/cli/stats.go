package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/tracker"
)

var errNoActivityLog = errors.New("activity log disabled (notifier.enabled=false or git unavailable)")

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var month, start, end string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show consistency, streaks and per-task completion",
		Long: `Aggregates a date range. Without flags the whole tracking window is used;
--month restricts to one month of the window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if month != "" && (start != "" || end != "") {
				return fmt.Errorf("--month cannot be combined with --start/--end")
			}
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if month != "" {
				year, mo, err := datekey.ParseMonth(month)
				if err != nil {
					return err
				}
				keys := a.svc.Window().MonthKeys(datekey.Month{Year: year, Month: mo})
				if len(keys) == 0 {
					return fmt.Errorf("month %s is outside the tracking window %s .. %s", month, a.svc.Window().Start, a.svc.Window().End)
				}
				start, end = keys[0], keys[len(keys)-1]
			}

			ins, err := a.svc.Insights(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(ins)
			}
			printInsights(cmd, ins)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to aggregate (YYYY-MM)")
	cmd.Flags().StringVar(&start, "start", "", "First day of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day of the range (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printInsights(cmd *cobra.Command, ins tracker.Insights) {
	w := cmd.OutOrStdout()
	printHeader(w, fmt.Sprintf("Stats %s .. %s", ins.Start, ins.End))
	printStats(w, ins.Stats)
	printField(w, "Perfect streak", fmt.Sprintf("%d (best %d)", ins.Streaks.CurrentPerfect, ins.Streaks.LongestPerfect))
	printField(w, "Active streak", fmt.Sprintf("%d (best %d)", ins.Streaks.CurrentActive, ins.Streaks.LongestActive))

	rows := make([][]string, 0, len(ins.Tasks))
	for _, t := range ins.Tasks {
		rows = append(rows, []string{
			t.Label,
			fmt.Sprintf("%d", t.Weight),
			fmt.Sprintf("%d/%d", t.Completed, t.Days),
			fmt.Sprintf("%.1f%%", t.Rate),
		})
	}
	fmt.Fprintln(w)
	printTable(w, []string{"Task", "Weight", "Done", "Rate"}, rows)
}

func newLogCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent activity commits and today's progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.notifier == nil {
				return errNoActivityLog
			}

			recent, err := a.notifier.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("reading activity log: %w", err)
			}
			act := a.svc.Activity(cmd.Context())

			w := cmd.OutOrStdout()
			printHeader(w, "Activity")
			printField(w, "Today", fmt.Sprintf("%d/%d (%.0f%%)", act.TodayCount, act.DailyGoal, act.Progress))
			printField(w, "Total", fmt.Sprintf("%d", act.TotalCount))
			printFieldColored(w, "Progress", act.Message, styleBoldYellow)
			fmt.Fprintln(w)

			rows := make([][]string, 0, len(recent))
			for _, e := range recent {
				rows = append(rows, []string{
					colorYellow + e.ID + colorReset,
					e.Timestamp.Format("2006-01-02 15:04"),
					firstLine(e.Message),
				})
			}
			printTable(w, []string{"Commit", "Date", "Message"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", tracker.DefaultRecentLimit, "Number of commits to show")
	return cmd
}

func newTasksCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the task catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			c, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, c.Len())
			for _, t := range c.Tasks() {
				rows = append(rows, []string{t.ID, t.Label, fmt.Sprintf("%d", t.Weight)})
			}
			w := cmd.OutOrStdout()
			printTable(w, []string{"ID", "Label", "Weight"}, rows)
			fmt.Fprintf(w, "\n  %sMax day score:%s %d\n", colorBold, colorReset, c.MaxScore())
			return nil
		},
	}
}

// firstLine returns the first line of a multi-line string.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
