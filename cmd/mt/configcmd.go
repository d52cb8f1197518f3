package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/store"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "records",
	Short:   "Show and change the application config table",
	Long: `Show and change the application config table (app_name, reminder_days_before, ...).

This is the config that is mirrored to the Config tab, not the mt.yaml settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			cfg, err := a.service.Config(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(cfg))
			for _, k := range store.SortedKeys(cfg) {
				rows = append(rows, []string{k, cfg[k]})
			}
			ui.Table(a.out, []string{"KEY", "VALUE"}, rows)
			if a.settings.File != "" {
				fmt.Fprintf(a.out, "\n%s\n", ui.RenderMuted("Settings file: "+a.settings.File))
			}
			return nil
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY=VALUE...",
	Short: "Set config values",
	Long: `Set one or more config values and rewrite the Config tab.

Example:
  mt config set company_name="PT Contoh" reminder_days_before=5`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates, err := parseAssignments(args)
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out, err := a.service.UpdateConfig(ctx, updates)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

// parseAssignments turns KEY=VALUE arguments into a map.
func parseAssignments(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q (want KEY=VALUE)", arg)
		}
		out[k] = v
	}
	return out, nil
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
