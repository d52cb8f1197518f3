package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aisuara/marketing-tracker/internal/ui"
)

var userCmd = &cobra.Command{
	Use:     "user",
	GroupID: "records",
	Short:   "Manage tracker accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Create an account",
	Long: `Create an account. The password is prompted for on a terminal and read
from the first line of stdin otherwise.

Example:
  mt user add sari --name "Sari Wulandari" --email sari@example.com
  echo "$PASSWORD" | mt user add budi --role superadmin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		role, _ := cmd.Flags().GetString("role")
		email, _ := cmd.Flags().GetString("email")

		password, err := readPassword("Password for "+args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out, err := a.service.AddUser(ctx, args[0], password, name, role, email)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete USERNAME",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			if err := confirm("Delete user "+args[0]+"?", ""); err != nil {
				return err
			}
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			out, err := a.service.DeleteUser(ctx, args[0], actor)
			if err != nil {
				return err
			}
			a.report(out)
			return nil
		})
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			users, err := a.service.Users(ctx)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(users))
			for _, u := range users {
				rows = append(rows, []string{u.ID, u.Username, u.Name, u.Role, u.Email, u.CreatedAt})
			}
			ui.Table(a.out, []string{"ID", "USERNAME", "NAME", "ROLE", "EMAIL", "CREATED"}, rows)
			return nil
		})
	},
}

var userLoginCmd = &cobra.Command{
	Use:   "login USERNAME",
	Short: "Check a username and password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword("Password for "+args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			u, err := a.service.Authenticate(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Logged in as %s (%s)\n", renderOK(), u.Username, u.Role)
			return nil
		})
	},
}

func init() {
	userAddCmd.Flags().String("name", "", "Full name")
	userAddCmd.Flags().String("role", "marketing", "Role: marketing or superadmin")
	userAddCmd.Flags().String("email", "", "Email address")
	userDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	userCmd.AddCommand(userAddCmd, userDeleteCmd, userListCmd, userLoginCmd)
	rootCmd.AddCommand(userCmd)
}
