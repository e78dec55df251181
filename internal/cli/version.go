package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"market-snapshot/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "marketsnap %s (commit %s, built %s)\n", version.Version, version.Commit, version.BuildDate)
	},
}
