package reports

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/crucial707/ndt-dochub/cmd/cli/api"
	"github.com/crucial707/ndt-dochub/cmd/cli/output"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/spf13/cobra"
)

// InitReports registers the admin session and audit reports.
func InitReports(rootCmd *cobra.Command) {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Session and audit reports (admin)",
	}
	reportsCmd.AddCommand(sessionsCmd(), auditCmd())
	rootCmd.AddCommand(reportsCmd)
}

func sessionsCmd() *cobra.Command {
	var asJSON bool
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions with last activity and duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []models.SessionReport
			if err := api.Call("GET", "/admin/reports/sessions?limit="+strconv.Itoa(limit), true, nil, &list); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, s := range list {
				rows = append(rows, []interface{}{
					s.TokenPrefix, s.Username, s.Role, s.IsActive,
					s.CreatedAt.Format("2006-01-02 15:04"), s.LastSeenAt.Format("2006-01-02 15:04"),
					s.LastPath, formatDuration(s.DurationSeconds),
				})
			}
			output.RenderTable([]string{"Token", "User", "Role", "Active", "Started", "Last Seen", "Last Path", "Duration"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum sessions to list")
	return cmd
}

func auditCmd() *cobra.Command {
	var asJSON bool
	var limit, userID int
	var action string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List audit log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if action != "" {
				q.Set("action", action)
			}
			if userID > 0 {
				q.Set("user_id", strconv.Itoa(userID))
			}
			var list []models.AuditEntry
			if err := api.Call("GET", "/admin/reports/audit?"+q.Encode(), true, nil, &list); err != nil {
				return err
			}
			if asJSON {
				return output.PrintJSON(list)
			}
			rows := make([][]interface{}, 0, len(list))
			for _, e := range list {
				user := "-"
				if e.UserID != nil {
					user = fmt.Sprintf("%s (%d)", e.Username, *e.UserID)
				}
				rows = append(rows, []interface{}{
					e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), user, e.ActionType, string(e.Metadata),
				})
			}
			output.RenderTable([]string{"ID", "Time", "User", "Action", "Metadata"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum entries to list")
	cmd.Flags().StringVar(&action, "action", "", "Filter by action type, e.g. LOGIN_FAILED")
	cmd.Flags().IntVar(&userID, "user-id", 0, "Filter by user id")
	return cmd
}

func formatDuration(seconds int64) string {
	return fmt.Sprintf("%dh%02dm%02ds", seconds/3600, seconds%3600/60, seconds%60)
}
