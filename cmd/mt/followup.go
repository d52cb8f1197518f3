package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/schema"
	"github.com/aisuara/marketing-tracker/internal/ui"
)

var followupCmd = &cobra.Command{
	Use:     "followup",
	GroupID: "records",
	Short:   "Record and review followups of activities",
}

var followupAddCmd = &cobra.Command{
	Use:   "add ACTIVITY_ID",
	Short: "Add a followup to an activity",
	Long: `Add a followup to an activity and append it to the Followups tab.

A --status value also becomes the activity's status.

Example:
  mt followup add act-1a2b3c4d --notes "Sent quotation" --next "call back" --next-date "next friday" --status dalam_proses`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fu := &schema.Followup{ActivityID: args[0], MarketerUsername: actor}
		fu.FollowupDate, _ = cmd.Flags().GetString("date")
		fu.Notes, _ = cmd.Flags().GetString("notes")
		fu.NextAction, _ = cmd.Flags().GetString("next")
		fu.NextFollowupDate, _ = cmd.Flags().GetString("next-date")
		fu.InterestLevel, _ = cmd.Flags().GetString("interest")
		status, _ := cmd.Flags().GetString("status")
		fu.StatusUpdate = schema.Status(status)

		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out, err := a.service.AddFollowup(ctx, fu)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var followupListCmd = &cobra.Command{
	Use:   "list [ACTIVITY_ID]",
	Short: "List followups, optionally of one activity",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activityID := ""
		if len(args) == 1 {
			activityID = args[0]
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			fus, err := a.service.Followups(ctx, activityID)
			if err != nil {
				return err
			}
			if len(fus) == 0 {
				fmt.Fprintln(a.out, "No followups")
				return nil
			}
			rows := make([][]string, 0, len(fus))
			for _, fu := range fus {
				rows = append(rows, []string{
					fu.ID, fu.ActivityID, fu.FollowupDate, fu.NextAction, fu.NextFollowupDate,
					ui.RenderStatus(string(fu.StatusUpdate)),
				})
			}
			ui.Table(a.out, []string{"ID", "ACTIVITY", "DATE", "NEXT ACTION", "NEXT DATE", "STATUS"}, rows)
			return nil
		})
	},
}

var followupDueCmd = &cobra.Command{
	Use:   "due",
	Short: "Show followups that are due soon or overdue",
	Long: `Show followups whose next followup date is within --days days, overdue
ones first. The default window is the reminder_days_before config value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			days, err := dueWindow(ctx, cmd, a)
			if err != nil {
				return err
			}
			due, err := a.service.DueFollowups(ctx, days)
			if err != nil {
				return err
			}
			if len(due) == 0 {
				fmt.Fprintf(a.out, "Nothing due in the next %d days\n", days)
				return nil
			}
			rows := make([][]string, 0, len(due))
			for _, d := range due {
				when := fmt.Sprintf("in %d days", d.Days)
				switch {
				case d.Days < 0:
					when = ui.RenderFail(fmt.Sprintf("%d days overdue", -d.Days))
				case d.Days == 0:
					when = ui.RenderWarn("today")
				}
				rows = append(rows, []string{d.Followup.NextFollowupDate, when, d.Followup.ActivityID, d.Followup.NextAction})
			}
			ui.Table(a.out, []string{"DATE", "WHEN", "ACTIVITY", "NEXT ACTION"}, rows)
			return nil
		})
	},
}

// dueWindow returns --days, or the reminder_days_before config value.
func dueWindow(ctx context.Context, cmd *cobra.Command, a *app) (int, error) {
	if cmd.Flags().Changed("days") {
		return cmd.Flags().GetInt("days")
	}
	cfg, err := a.service.Config(ctx)
	if err != nil {
		return 0, err
	}
	var days int
	if _, err := fmt.Sscan(cfg["reminder_days_before"], &days); err != nil {
		days, _ = cmd.Flags().GetInt("days")
	}
	return days, nil
}

func init() {
	followupAddCmd.Flags().String("date", "", "Followup date (default: today)")
	followupAddCmd.Flags().String("notes", "", "Notes")
	followupAddCmd.Flags().String("next", "", "Next action")
	followupAddCmd.Flags().String("next-date", "", "Next followup date")
	followupAddCmd.Flags().String("interest", "", "Interest level")
	followupAddCmd.Flags().String("status", "", "New activity status: baru, dalam_proses, berhasil, gagal")
	followupDueCmd.Flags().Int("days", 3, "Window in days")

	followupCmd.AddCommand(followupAddCmd, followupListCmd, followupDueCmd)
	rootCmd.AddCommand(followupCmd)
}
