package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agusx1211/dtrack/internal/config"
	"github.com/agusx1211/dtrack/internal/pushover"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Prints the configuration after merging defaults, ~/.dtrack/config.yaml,
./dtrack.yaml, --config and DTRACK_* environment variables. Secrets are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(cfg.Sources) == 0 {
				fmt.Fprintf(w, "%s# no config files found, using defaults%s\n", colorDim, colorReset)
			}
			for _, src := range cfg.Sources {
				fmt.Fprintf(w, "%s# from %s%s\n", colorDim, src, colorReset)
			}
			return cfg.WriteYAML(w)
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the global config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GlobalConfigPath())
			return nil
		},
	}

	cmd.AddCommand(pathCmd, newPushoverCmd(opts))
	return cmd
}

func newPushoverCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pushover",
		Short: "Inspect the Pushover perfect-day alert",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show Pushover configuration status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printHeader(w, "Pushover")
			if cfg.Pushover.Configured() {
				printField(w, "User Key", config.MaskSecret(cfg.Pushover.UserKey))
				printField(w, "App Token", config.MaskSecret(cfg.Pushover.AppToken))
				printFieldColored(w, "Status", "configured", colorGreen)
				return nil
			}
			printFieldColored(w, "Status", "not configured", colorYellow)
			fmt.Fprintf(w, "\n  Set %spushover.user_key%s and %spushover.app_token%s in %s.\n",
				styleBoldWhite, colorReset, styleBoldWhite, colorReset, config.GlobalConfigPath())
			return nil
		},
	}

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Send a test Pushover notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if !cfg.Pushover.Configured() {
				return pushover.ErrNotConfigured
			}
			w := cmd.OutOrStdout()
			fmt.Fprint(w, "  Sending test notification... ")
			err = pushover.New(cfg.Pushover).Send(cmd.Context(), pushover.Message{
				Title:    "dtrack test",
				Body:     "This is a test notification from dtrack.",
				Priority: pushover.PriorityNormal,
			})
			if err != nil {
				fmt.Fprintln(w)
				return fmt.Errorf("test failed: %w", err)
			}
			fmt.Fprintf(w, "%sOK%s\n", styleBoldGreen, colorReset)
			return nil
		},
	}

	cmd.AddCommand(statusCmd, testCmd)
	return cmd
}
