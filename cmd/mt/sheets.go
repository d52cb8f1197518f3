package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var sheetsCmd = &cobra.Command{
	Use:     "sheets",
	GroupID: "advanced",
	Short:   "Inspect and prepare the spreadsheet",
}

var sheetsTabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List the tabs of the spreadsheet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			if err := a.gateway.Connect(ctx); err != nil {
				return err
			}
			tabs, err := a.gateway.Tabs(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\n", ui.RenderAccent(a.gateway.Title()))
			for _, tab := range tabs {
				fmt.Fprintf(a.out, "  %s\n", tab)
			}
			return nil
		})
	},
}

var sheetsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every table has its tab",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			if err := a.gateway.Connect(ctx); err != nil {
				return err
			}
			missing, err := a.gateway.VerifyTablesExist(ctx)
			if err != nil {
				return err
			}
			gone := make(map[schema.Table]bool, len(missing))
			for _, t := range missing {
				gone[t] = true
			}
			names := a.settings.TabNames()
			for _, t := range schema.Tables() {
				if gone[t] {
					fmt.Fprintf(a.out, "%s %-10s tab %q missing\n", renderFailMark(), t, names.Tab(t))
				} else {
					fmt.Fprintf(a.out, "%s %-10s tab %q\n", renderOK(), t, names.Tab(t))
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d tab(s) missing, run 'mt sheets init'", len(missing))
			}
			return nil
		})
	},
}

var sheetsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create missing tabs with their header row",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			if err := a.gateway.Connect(ctx); err != nil {
				return err
			}
			missing, err := a.gateway.VerifyTablesExist(ctx)
			if err != nil {
				return err
			}
			if len(missing) == 0 {
				fmt.Fprintf(a.out, "%s All tabs present\n", renderOK())
				return nil
			}
			for _, t := range missing {
				if err := a.gateway.CreateTab(ctx, t); err != nil {
					return fmt.Errorf("failed to create tab for %s: %w", t, err)
				}
				fmt.Fprintf(a.out, "%s Created tab %q\n", renderOK(), a.settings.TabNames().Tab(t))
			}
			return nil
		})
	},
}

func init() {
	sheetsCmd.AddCommand(sheetsTabsCmd, sheetsVerifyCmd, sheetsInitCmd)
	rootCmd.AddCommand(sheetsCmd)
}
