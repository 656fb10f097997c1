package cli

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/datekey"
	"github.com/agusx1211/dtrack/internal/tui"
)

func newGridCmd(opts *rootOptions) *cobra.Command {
	var month string
	var plain bool

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Open the month grid",
		Long: `Opens the interactive month grid when stdout is a terminal, otherwise
prints the month as a plain table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			m := a.svc.CurrentMonth()
			if month != "" {
				year, mo, err := datekey.ParseMonth(month)
				if err != nil {
					return err
				}
				m = datekey.Month{Year: year, Month: mo}
			}

			if !plain && interactive(cmd) {
				return tui.Run(cmd.Context(), a.svc, m)
			}
			printMonth(cmd.OutOrStdout(), a.svc.Month(cmd.Context(), m.Year, m.Month), a.svc.Catalog())
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to open (YYYY-MM)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print a plain table even on a terminal")
	return cmd
}

// interactive reports whether the command writes to a real terminal.
func interactive(cmd *cobra.Command) bool {
	if cmd.OutOrStdout() != os.Stdout {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
