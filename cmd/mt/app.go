package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/config"
	"github.com/aisuara/marketing-tracker/internal/format"
	"github.com/aisuara/marketing-tracker/internal/hooks"
	"github.com/aisuara/marketing-tracker/internal/logging"
	"github.com/aisuara/marketing-tracker/internal/sheets"
	"github.com/aisuara/marketing-tracker/internal/store"
	"github.com/aisuara/marketing-tracker/internal/sync"
)

// app is everything a command needs, built from the settings.
type app struct {
	settings *config.Settings
	logs     *logging.Factory
	fmt      *format.Formatter
	store    store.Store

	// gateway and engine are nil when the sheet is not configured or
	// --offline is set.
	gateway sheets.Gateway
	engine  *sync.Engine
	service *hooks.Service

	out io.Writer
	err io.Writer
}

// openApp loads the settings and opens the store. With needSheet the
// gateway must be available; otherwise a missing sheet only disables sync.
func openApp(cmd *cobra.Command, needSheet bool) (*app, error) {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logs := logging.NewFactory(logging.Options{
		File:       settings.Log.File,
		MaxSizeMB:  settings.Log.MaxSizeMB,
		MaxBackups: settings.Log.MaxBackups,
		MaxAgeDays: settings.Log.MaxAgeDays,
		Quiet:      !verbose,
	})

	loc, err := format.LoadLocation(settings.Timezone)
	if err != nil {
		logs.Close()
		return nil, err
	}
	f := format.New(loc)

	st, err := store.Open(cmd.Context(), settings.Store.Backend, settings.DataDir, settings.Store.SQLitePath, store.Options{
		SeedAdmin: settings.Store.SeedAdmin,
		Formatter: f,
		Logger:    logs.Logger("store"),
	})
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	a := &app{
		settings: settings,
		logs:     logs,
		fmt:      f,
		store:    st,
		out:      cmd.OutOrStdout(),
		err:      cmd.ErrOrStderr(),
	}

	if !offline || needSheet {
		gw, err := buildGateway(settings, logs)
		switch {
		case err == nil:
			a.gateway = gw
			a.engine = sync.New(st, gw, sync.Options{
				Formatter:         f,
				Logger:            logs.Logger("sync"),
				CreateMissingTabs: settings.Sheets.CreateMissingTabs,
			})
		case needSheet:
			a.Close()
			return nil, err
		default:
			fmt.Fprintf(a.err, "Warning: sheet sync disabled: %v\n", err)
		}
	}

	var syncer sync.Syncer
	if a.engine != nil && !offline {
		syncer = a.engine
	}
	a.service = hooks.New(st, syncer, f, logs.Logger("hooks"))
	return a, nil
}

// buildGateway creates the configured sheet backend.
func buildGateway(settings *config.Settings, logs *logging.Factory) (sheets.Gateway, error) {
	switch settings.Sheets.Backend {
	case config.SheetsMemory:
		return sheets.NewMemoryGateway(settings.TabNames()), nil
	default:
		if settings.Sheets.SpreadsheetID == "" {
			return nil, fmt.Errorf("sheets.spreadsheet_id is not set (config file or MT_SHEETS_SPREADSHEET_ID)")
		}
		return sheets.NewGoogleGateway(sheets.GoogleConfig{
			SpreadsheetID: settings.Sheets.SpreadsheetID,
			Credentials:   settings.Credentials(),
			Tabs:          settings.TabNames(),
			Logger:        logs.Logger("sheets"),
		})
	}
}

// sheetLabel names the configured spreadsheet without connecting.
func (a *app) sheetLabel() string {
	if a.settings.Sheets.Backend == config.SheetsMemory {
		return "in-memory sheet"
	}
	return a.settings.Sheets.SpreadsheetID
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(a.err, "Warning: failed to close store: %v\n", err)
	}
	a.logs.Close()
}

// report prints the outcome of a hook call.
func (a *app) report(out *hooks.Outcome) {
	fmt.Fprintf(a.out, "%s %s\n", renderOK(), out.Message)
	if out.SyncWarning != nil {
		fmt.Fprintf(a.err, "%s %v\n", renderWarnMark(), out.SyncWarning)
		fmt.Fprintf(a.err, "   Run 'mt sync --overwrite' once the sheet is reachable\n")
	}
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, needSheet bool, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd, needSheet)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func stdinIsTerminal() bool {
	return isTerminal(os.Stdin)
}
