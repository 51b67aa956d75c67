package auth

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/crucial707/ndt-dochub/cmd/cli/api"
	"github.com/crucial707/ndt-dochub/cmd/cli/config"
	"github.com/crucial707/ndt-dochub/cmd/cli/output"
	"github.com/spf13/cobra"
)

// InitAuth registers login, logout and whoami on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(loginCmd(), logoutCmd(), whoamiCmd())
}

type principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// loginCmd logs in and stores the session token locally.
func loginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the dochub API",
		Long:  "Authenticate with username and password and store the session token for subsequent CLI commands.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				username = prompt(in, "Username: ")
			}
			if password == "" {
				password = prompt(in, "Password: ")
			}
			if username == "" || password == "" {
				return fmt.Errorf("username and password are required")
			}

			var resp struct {
				Token string     `json:"token"`
				User  *principal `json:"user"`
			}
			if err := api.Call("POST", "/auth/login", false, map[string]string{
				"username": username,
				"password": password,
			}, &resp); err != nil {
				return fmt.Errorf("failed to login: %w", err)
			}
			if resp.Token == "" {
				return fmt.Errorf("login succeeded but no token returned")
			}
			if err := config.SaveToken(resp.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			role := ""
			if resp.User != nil {
				role = resp.User.Role
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s). Token stored in %s.\n", username, role, config.TokenPath())
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username to authenticate as")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

// logoutCmd ends the server session and removes the local token.
func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadToken(); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No user logged in.")
				return nil
			}
			if err := api.Call("POST", "/auth/logout", true, nil, nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
			}
			if err := config.RemoveToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out successfully.")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var me principal
			if err := api.Call("GET", "/auth/me", true, nil, &me); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(me)
			}
			output.RenderTable([]string{"ID", "Username", "Role"}, [][]interface{}{{me.ID, me.Username, me.Role}})
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Fprint(os.Stderr, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
