package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	GroupID: "records",
	Short:   "Add, edit, delete and list marketing activities",
}

// activityFlags maps command flags to activity fields.
var activityFlags = []struct {
	name  string
	usage string
	field func(a *schema.Activity) *string
}{
	{"prospect", "Prospect name", func(a *schema.Activity) *string { return &a.ProspectName }},
	{"location", "Prospect location", func(a *schema.Activity) *string { return &a.ProspectLocation }},
	{"contact", "Contact person", func(a *schema.Activity) *string { return &a.ContactPerson }},
	{"position", "Contact position", func(a *schema.Activity) *string { return &a.ContactPosition }},
	{"phone", "Contact phone", func(a *schema.Activity) *string { return &a.ContactPhone }},
	{"email", "Contact email", func(a *schema.Activity) *string { return &a.ContactEmail }},
	{"date", "Activity date (YYYY-MM-DD, 'today', 'next monday', ...)", func(a *schema.Activity) *string { return &a.ActivityDate }},
	{"type", "Activity type (visit, call, presentation, ...)", func(a *schema.Activity) *string { return &a.ActivityType }},
	{"description", "Description", func(a *schema.Activity) *string { return &a.Description }},
	{"marketer", "Marketer username (default: --as)", func(a *schema.Activity) *string { return &a.MarketerUsername }},
}

func addActivityFlags(cmd *cobra.Command) {
	for _, f := range activityFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().String("status", "", "Status: baru, dalam_proses, berhasil, gagal")
}

// applyActivityFlags copies the flags that were set onto a.
func applyActivityFlags(cmd *cobra.Command, a *schema.Activity) {
	for _, f := range activityFlags {
		if cmd.Flags().Changed(f.name) {
			v, _ := cmd.Flags().GetString(f.name)
			*f.field(a) = v
		}
	}
	if cmd.Flags().Changed("status") {
		v, _ := cmd.Flags().GetString("status")
		a.Status = schema.Status(v)
	}
}

var activityAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a new activity",
	Long: `Record a new activity and append it to the Activities tab.

Example:
  mt activity add --prospect "PT Maju" --contact Budi --phone 0812-3456 --date today --type visit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			act := &schema.Activity{}
			applyActivityFlags(cmd, act)
			if act.ProspectName == "" {
				return fmt.Errorf("--prospect is required")
			}
			if act.MarketerUsername == "" {
				act.MarketerUsername = actor
			}
			out, err := a.service.AddActivity(ctx, act)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var activityEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change fields of an activity",
	Long: `Change the given fields of an activity and rewrite the Activities tab.

Example:
  mt activity edit act-1a2b3c4d --status berhasil`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			rec, err := a.store.GetByID(ctx, schema.ActivityTable, args[0])
			if err != nil {
				return fmt.Errorf("activity %s: %w", args[0], err)
			}
			act := rec.(*schema.Activity)
			applyActivityFlags(cmd, act)
			out, err := a.service.EditActivity(ctx, act)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var activityDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an activity and its followups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if err := confirm("Delete activity "+args[0]+"?", "Its followups are deleted too."); err != nil {
				return err
			}
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out, err := a.service.DeleteActivity(ctx, args[0])
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		marketer, _ := cmd.Flags().GetString("marketer")
		status, _ := cmd.Flags().GetString("status")
		asJSON, _ := cmd.Flags().GetBool("json")

		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			acts, err := a.service.Activities(ctx, marketer)
			if err != nil {
				return err
			}
			var shown []*schema.Activity
			for _, act := range acts {
				if status == "" || string(act.Status) == status {
					shown = append(shown, act)
				}
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(shown)
			}
			if len(shown) == 0 {
				fmt.Fprintln(a.out, "No activities")
				return nil
			}
			rows := make([][]string, 0, len(shown))
			for _, act := range shown {
				rows = append(rows, []string{
					act.ID, act.ActivityDate, act.ProspectName, act.ActivityType,
					ui.RenderStatus(string(act.Status)), act.MarketerUsername,
				})
			}
			ui.Table(a.out, []string{"ID", "DATE", "PROSPECT", "TYPE", "STATUS", "MARKETER"}, rows)
			return nil
		})
	},
}

func init() {
	addActivityFlags(activityAddCmd)
	addActivityFlags(activityEditCmd)
	activityDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	activityListCmd.Flags().String("marketer", "", "Only activities of this marketer")
	activityListCmd.Flags().String("status", "", "Only activities with this status")
	activityListCmd.Flags().Bool("json", false, "Output as JSON")

	activityCmd.AddCommand(activityAddCmd, activityEditCmd, activityDeleteCmd, activityListCmd)
	rootCmd.AddCommand(activityCmd)
}
