package cli

import (
	"github.com/spf13/cobra"
)

var (
	simulateFail []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run the pipeline against canned quotes and trigger the alert path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateFail)
	},
}

func init() {
	simulateCmd.Flags().StringSliceVar(&simulateFail, "fail", nil, "Symbols to fail (defaults to the first catalog entry)")
}
