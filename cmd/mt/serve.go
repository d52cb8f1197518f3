package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/daemon"
	"github.com/aisuara/marketing-tracker/internal/dashboard"
	"github.com/aisuara/marketing-tracker/internal/store"
	"github.com/aisuara/marketing-tracker/internal/sync"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "sync",
	Short:   "Watch the data directory and keep the sheet in sync (foreground)",
	Long: `Run the sync daemon in the foreground.

The daemon:
  1. Syncs every table once at startup
  2. Watches the data directory for changes to the YAML data files
  3. Syncs the changed tables after a short quiet period
  4. Re-syncs every table every watch.interval

A dashboard is served alongside it:
  ws://localhost:8080/ws   sync reports as they happen
  /status                  totals and the last report of each table
  /health                  liveness
  /metrics                 Prometheus metrics

With the sqlite store backend only the periodic sync runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noDashboard, _ := cmd.Flags().GetBool("no-dashboard")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			port := a.settings.Dashboard.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}

			opts := sync.Options{
				Formatter:         a.fmt,
				Logger:            a.logs.Logger("sync"),
				CreateMissingTabs: a.settings.Sheets.CreateMissingTabs,
			}

			if !noDashboard {
				server := dashboard.NewServer(&dashboard.Config{
					Port:   port,
					Logger: a.logs.Logger("dashboard"),
				})
				opts.Observer = dashboard.NewHandler(server, a.logs.Logger("dashboard"))
				if err := server.Start(); err != nil {
					return fmt.Errorf("failed to start dashboard: %w", err)
				}
				defer server.Stop()
				fmt.Fprintf(a.out, "Dashboard: http://localhost:%d (ws://localhost:%d/ws)\n", port, port)
			}

			mode := sync.Incremental
			if overwrite || a.settings.Watch.Overwrite {
				mode = sync.Overwrite
			}
			if err := os.MkdirAll(a.settings.DataDir, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			engine := sync.New(a.store, a.gateway, opts)
			d, err := daemon.NewWithConfig(engine, a.settings.DataDir, &daemon.Config{
				DebounceInterval:  a.settings.Watch.Debounce,
				ReconcileInterval: a.settings.Watch.Interval,
				Mode:              mode,
				Logger:            a.logs.Logger("daemon"),
			})
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}

			fmt.Fprintf(a.out, "%s Starting sync daemon (%s)...\n", ui.RenderAccent("🚀"), mode)
			fmt.Fprintf(a.out, "   Data dir: %s\n", a.settings.DataDir)
			if a.settings.Store.Backend != store.BackendYAML {
				fmt.Fprintf(a.out, "   %s file watching is off for the %s backend\n", renderWarnMark(), a.settings.Store.Backend)
			}
			fmt.Fprintf(a.out, "   Sheet: %s\n", a.sheetLabel())
			fmt.Fprintf(a.out, "\nPress Ctrl+C to stop\n\n")

			if err := d.Start(ctx); err != nil {
				return fmt.Errorf("daemon stopped with error: %w", err)
			}
			return nil
		})
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Dashboard port (default: dashboard.port)")
	serveCmd.Flags().Bool("no-dashboard", false, "Do not start the dashboard")
	serveCmd.Flags().Bool("overwrite", false, "Rewrite changed tabs instead of appending new records")
	rootCmd.AddCommand(serveCmd)
}
