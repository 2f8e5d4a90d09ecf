package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"hotel-metrics/internal/app"
	"hotel-metrics/internal/config"
	"hotel-metrics/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "hotelmetrics",
	Short: "Hotel sales and occupancy aggregation with forecasting",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}

// windowFlags binds --type/--from/--to on a command.
type windowFlags struct {
	granularity string
	from        string
	to          string
}

func (w *windowFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.granularity, "type", "monthly", "Period granularity: monthly or yearly")
	cmd.Flags().StringVar(&w.from, "from", "", "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&w.to, "to", "", "End date (YYYY-MM-DD, exclusive)")
}

func (w *windowFlags) options() (app.QueryOptions, error) {
	opts := app.QueryOptions{Type: w.granularity}
	if w.from != "" {
		from, err := time.Parse("2006-01-02", w.from)
		if err != nil {
			return opts, fmt.Errorf("invalid --from value: %w", err)
		}
		opts.From = &from
	}
	if w.to != "" {
		to, err := time.Parse("2006-01-02", w.to)
		if err != nil {
			return opts, fmt.Errorf("invalid --to value: %w", err)
		}
		opts.To = &to
	}
	return opts, nil
}
