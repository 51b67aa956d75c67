package root

import (
	"github.com/spf13/cobra"
)

// RootCmd is the dochub command every subcommand package attaches to.
var RootCmd = &cobra.Command{
	Use:           "dochub",
	Short:         "NDT document hub admin CLI",
	Long:          "Command line interface for the NDT document hub API: sign in, manage users, read session and audit reports.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func GetRoot() *cobra.Command {
	return RootCmd
}
