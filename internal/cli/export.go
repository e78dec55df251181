package cli

import (
	"github.com/spf13/cobra"

	"market-snapshot/internal/app"
)

var (
	exportCSVPath  string
	exportPNGPath  string
	exportXLSXPath string
	exportSection  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current snapshot as CSV, PNG chart and/or XLSX workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ExportOptions{
			CSVPath:  exportCSVPath,
			PNGPath:  exportPNGPath,
			XLSXPath: exportXLSXPath,
			Section:  exportSection,
		}

		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG change chart")
	exportCmd.Flags().StringVar(&exportXLSXPath, "xlsx", "", "Path to write XLSX workbook")
	exportCmd.Flags().StringVar(&exportSection, "section", "", "Section charted in the PNG (defaults to config)")
}
