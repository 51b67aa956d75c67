package main

import (
	"fmt"
	"os"

	"github.com/crucial707/ndt-dochub/cmd/cli/auth"
	"github.com/crucial707/ndt-dochub/cmd/cli/reports"
	"github.com/crucial707/ndt-dochub/cmd/cli/root"
	"github.com/crucial707/ndt-dochub/cmd/cli/users"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	users.InitUsers(rootCmd)
	reports.InitReports(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
