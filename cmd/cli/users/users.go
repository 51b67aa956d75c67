package users

import (
	"fmt"
	"strconv"

	"github.com/crucial707/ndt-dochub/cmd/cli/api"
	"github.com/crucial707/ndt-dochub/cmd/cli/output"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// CLI Command Init
// ==========================
func InitUsers(rootCmd *cobra.Command) {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (admin)",
		Long: `List, create and update dochub accounts.
Requires an admin session (dochub login).`,
	}
	usersCmd.AddCommand(listUsersCmd(), createUserCmd(), updateUserCmd())
	rootCmd.AddCommand(usersCmd)
}

// ==========================
// List Users
// ==========================
func listUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			var users []models.User
			if err := api.Call("GET", "/admin/users?limit="+strconv.Itoa(limit), true, nil, &users); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(users)
			}

			rows := make([][]interface{}, 0, len(users))
			for _, u := range users {
				rows = append(rows, []interface{}{u.ID, u.Username, u.Role, u.IsActive, u.CreatedAt.Format("2006-01-02 15:04")})
			}
			output.RenderTable([]string{"ID", "Username", "Role", "Active", "Created"}, rows)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Output JSON")
	cmd.Flags().Int("limit", 100, "Maximum users to list")
	return cmd
}

// ==========================
// Create User
// ==========================
func createUserCmd() *cobra.Command {
	var username, password, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			var created models.User
			if err := api.Call("POST", "/admin/users", true, map[string]string{
				"username": username,
				"password": password,
				"role":     role,
			}, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, role %s).\n", created.Username, created.ID, created.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringVar(&role, "role", "user", "Role: admin or user")
	return cmd
}

// ==========================
// Update User (only flags given are sent)
// ==========================
func updateUserCmd() *cobra.Command {
	var role, password string
	var active bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a user's role, active flag or password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			payload := map[string]any{}
			if cmd.Flags().Changed("role") {
				payload["role"] = role
			}
			if cmd.Flags().Changed("active") {
				payload["is_active"] = active
			}
			if cmd.Flags().Changed("password") {
				payload["password"] = password
			}
			if len(payload) == 0 {
				return fmt.Errorf("nothing to update (use --role, --active or --password)")
			}
			if err := api.Call("PATCH", "/admin/users/"+args[0], true, payload, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated user %d.\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "New role: admin or user")
	cmd.Flags().BoolVar(&active, "active", true, "Set the active flag (--active=false disables the account)")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	return cmd
}
