package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/sync"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var errSyncFailed = errors.New("one or more tables failed")

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Push local records to the sheet",
	Long: `Push local records to the Google Sheet.

By default only records whose id is not yet in the sheet are appended.
Edits and deletions made outside mt only reach the sheet with --overwrite,
which rewrites each tab from the local records. The Config tab is always
rewritten.

Syncing every table records the time as last_manual_sync.

Examples:
  mt sync                          # append new records of every table
  mt sync --overwrite              # rewrite every tab
  mt sync --table followups`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tableName, _ := cmd.Flags().GetString("table")
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		mode := sync.Incremental
		if overwrite {
			mode = sync.Overwrite
		}

		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			if tableName != "" {
				table, err := schema.ParseTable(tableName)
				if err != nil {
					return err
				}
				r, err := a.engine.SyncTable(ctx, table, mode)
				printReport(a.out, r)
				return err
			}

			fmt.Fprintf(a.out, "%s Syncing all tables (%s)...\n", ui.RenderAccent("→"), mode)
			agg, err := a.engine.SyncAll(ctx, mode)
			printAggregate(a.out, agg)
			if err != nil {
				return err
			}
			if !agg.Success() {
				return errSyncFailed
			}
			return nil
		})
	},
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sheet connection and last sync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			fmt.Fprintf(a.out, "\n%s Sync Status\n\n", ui.RenderAccent("📊"))

			fmt.Fprintf(a.out, "Store: %s (%s)\n", a.settings.Store.Backend, a.settings.DataDir)
			for _, t := range schema.Tables() {
				n, err := countRecords(ctx, a, t)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "   %-11s %d\n", t.String()+":", n)
			}

			last := "never"
			if a.engine != nil {
				if v, err := a.engine.LastManualSync(ctx); err == nil && v != "" {
					last = v
				}
			}
			fmt.Fprintf(a.out, "Last full sync: %s\n", last)

			if a.gateway == nil {
				fmt.Fprintf(a.out, "Sheet: %s\n\n", ui.RenderWarn("not configured"))
				return nil
			}
			if err := a.gateway.Connect(ctx); err != nil {
				fmt.Fprintf(a.out, "Sheet: %s %v\n\n", renderFailMark(), err)
				return nil
			}
			fmt.Fprintf(a.out, "Sheet: %s %s\n", renderOK(), a.gateway.Title())
			missing, err := a.gateway.VerifyTablesExist(ctx)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				names := make([]string, len(missing))
				for i, t := range missing {
					names[i] = a.settings.TabNames().Tab(t)
				}
				fmt.Fprintf(a.out, "Missing tabs: %s (run 'mt sheets init')\n", ui.RenderWarn(strings.Join(names, ", ")))
			}
			fmt.Fprintln(a.out)
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:     "restore",
	GroupID: "sync",
	Short:   "Replace local records with the sheet content",
	Long: `Replace local records with the content of the Google Sheet.

This is destructive: local records that are not in the sheet are lost.
Rows that fail validation or repeat an id are skipped and reported.

Examples:
  mt restore --table users
  mt restore --yes                 # every table, no prompt`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tableName, _ := cmd.Flags().GetString("table")
		yes, _ := cmd.Flags().GetBool("yes")

		var table schema.Table
		what := "every table"
		if tableName != "" {
			t, err := schema.ParseTable(tableName)
			if err != nil {
				return err
			}
			table = t
			what = "the " + t.String() + " table"
		}
		if !yes {
			if err := confirm("Restore "+what+" from the sheet?", "Local records not in the sheet will be lost."); err != nil {
				return err
			}
		}

		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			if tableName != "" {
				r, err := a.engine.RestoreTable(ctx, table)
				printReport(a.out, r)
				return err
			}
			agg, err := a.engine.RestoreAll(ctx)
			printAggregate(a.out, agg)
			if err != nil {
				return err
			}
			if !agg.Success() {
				return errSyncFailed
			}
			return nil
		})
	},
}

func countRecords(ctx context.Context, a *app, t schema.Table) (int, error) {
	if !t.Keyed() {
		cfg, err := a.store.GetConfig(ctx)
		return len(cfg), err
	}
	recs, err := a.store.GetAll(ctx, t)
	return len(recs), err
}

func printReport(w io.Writer, r *sync.Report) {
	if r == nil {
		return
	}
	mark := renderOK()
	if !r.OK() {
		mark = renderFailMark()
	}
	fmt.Fprintf(w, "%s %s\n", mark, r.Summary())
	printDetails(w, r)
}

func printAggregate(w io.Writer, agg *sync.AggregateReport) {
	if agg == nil {
		return
	}
	mark := renderOK()
	if !agg.Success() {
		mark = renderFailMark()
	}
	fmt.Fprintf(w, "%s %s\n", mark, agg.Message())
	for _, r := range agg.Reports {
		printDetails(w, r)
	}
}

// printDetails lists anomalies and skipped records under a report.
func printDetails(w io.Writer, r *sync.Report) {
	for _, an := range r.Anomalies {
		fmt.Fprintf(w, "   %s %s kept as %q: %v\n", renderWarnMark(), an.RecordID+"."+an.Column, an.Value, an.Err)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "   %s skipped %v\n", renderWarnMark(), s)
	}
}

func init() {
	syncCmd.Flags().StringP("table", "t", "", "Only this table: activities, followups, users or config")
	syncCmd.Flags().Bool("overwrite", false, "Rewrite tabs instead of appending new records")
	restoreCmd.Flags().StringP("table", "t", "", "Only this table: activities, followups, users or config")
	restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd, restoreCmd)
}
