package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - per-user resource limit monitoring and enforcement",
	Long: `Warden monitors per-user resource usage against configured limit rules
and enforces the configured action when a limit is exceeded.

It provides:
  - Periodic sweeps over all users with enabled limit rules
  - Data, time, connection, speed, and daily/weekly/monthly limits
  - Enforcement actions: notify, disable, throttle, delete
  - Notifications over email, Telegram, and webhooks
  - Limit templates for common plans
  - An admin HTTP API with Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
