// Command mt manages the marketing tracker records and keeps the Google
// Sheet in step with them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/ui"
)

var (
	cfgFile string
	actor   string
	offline bool
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mt",
	Short: "Marketing tracker with Google Sheets sync",
	Long: `mt records marketing activities, followups and users locally and mirrors
them to a Google Sheet.

Every change made through mt is pushed to the sheet right away: new records
are appended, edits and deletions rewrite the affected tab. If the sheet
cannot be reached the local change is kept and a warning is printed; run
'mt sync --overwrite' later to catch the sheet up.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Sheet sync:"},
		&cobra.Group{ID: "advanced", Title: "Advanced:"},
	)

	defaultActor := os.Getenv("MT_USER")
	if defaultActor == "" {
		defaultActor = "admin"
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./mt.yaml or ~/.config/mt/mt.yaml)")
	rootCmd.PersistentFlags().StringVar(&actor, "as", defaultActor, "Username performing the change (env MT_USER)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Change local records without pushing to the sheet")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log component activity to stderr")
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}
