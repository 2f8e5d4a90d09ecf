package cli

import (
	"github.com/spf13/cobra"

	"hotel-metrics/internal/app"
)

var reportWindow windowFlags

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print sales per period for every business line",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := reportWindow.options()
		if err != nil {
			return err
		}
		return getApp().Report(cmd.Context(), app.ReportOptions{QueryOptions: query})
	},
}

func init() {
	reportWindow.bind(reportCmd)
}
