package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voltguard/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "voltguard",
	Short: "Predictive maintenance verdicts for EV charge-point telemetry",
	Long: "Voltguard reconciles raw charger telemetry against a fixed feature\n" +
		"manifest, scores it with a logistic failure model, and escalates\n" +
		"high-risk units with a human-readable root cause.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(flagLogLevel), flagLogFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config (defaults are built in)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "log format: text or json")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(manifestCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
