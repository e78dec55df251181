package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"market-snapshot/internal/app"
	"market-snapshot/internal/config"
	"market-snapshot/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:   "marketsnap",
	Short: "Fetch end-of-day market quotes and keep a normalized snapshot",
	Long: `marketsnap pulls end-of-day quotes for a fixed instrument catalog,
normalizes them into section groups and replaces a JSON snapshot document
atomically, so downstream consumers never observe a partial file.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initApp,
}

// initApp wires config, logging and the shared App handle exactly once,
// before any subcommand runs.
func initApp(*cobra.Command, []string) error {
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

	appHandle = app.NewApp(cfg, logging.NewLogger(cfg.Logging))
	return nil
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

	rootCmd.AddCommand(runCmd, watchCmd, showCmd, exportCmd, versionCmd, simulateCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("getApp called before PersistentPreRunE initialized the application")
	}
	return appHandle
}
