package cli

import (
	"github.com/spf13/cobra"

	"market-snapshot/internal/app"
)

var (
	showSection string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the current snapshot as a table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ShowOptions{
			Section: showSection,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showSection, "section", "", "Limit output to one section (equities, etfs, futures, commodities, crypto)")
}
