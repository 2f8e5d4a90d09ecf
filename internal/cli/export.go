package cli

import (
	"github.com/spf13/cobra"

	"hotel-metrics/internal/app"
)

var (
	exportWindow  windowFlags
	exportMetric  string
	exportCSVPath string
	exportPNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export historical and forecast series as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := exportWindow.options()
		if err != nil {
			return err
		}

		opts := app.ExportOptions{
			QueryOptions: query,
			Metric:       exportMetric,
			CSVPath:      exportCSVPath,
			PNGPath:      exportPNGPath,
		}
		return getApp().Export(cmd.Context(), opts)
	},
}

func init() {
	exportWindow.bind(exportCmd)
	exportCmd.Flags().StringVar(&exportMetric, "metric", "occupancy", "Series to export: occupancy or events")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
}
