package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"halcyon-net/warden/pkg/config"
	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/limits/storage"
	"halcyon-net/warden/pkg/usage"
)

var checkCmd = &cobra.Command{
	Use:   "check <username>",
	Short: "Evaluate one user's limits without enforcing",
	Long: `Evaluate a user's current usage against their limit rules and
print the result. No violations are recorded and no enforcement
actions or notifications are triggered.

Examples:
  warden check alice
  warden check alice --config /etc/warden/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	level := parseLogLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cfg.Logging.Format, level)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store limits.Store
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemoryStore()
	default:
		store, err = storage.NewSQLiteStoreWithConfig(storage.SQLiteStoreConfig{
			DBPath:      cfg.Storage.SQLitePath,
			BusyTimeout: cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
	}
	defer store.Close()

	source, err := usage.NewRedisSource(ctx, cfg.Usage.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting usage source: %w", err)
	}
	defer source.Close()

	snapshot, err := source.Snapshot(ctx, username)
	if err != nil {
		return fmt.Errorf("reading usage for %s: %w", username, err)
	}

	service := limits.NewService(store, limits.ServiceConfig{
		WarningFraction: cfg.Monitor.DefaultWarningFraction,
	}, logger, nil)

	evaluations, err := service.CheckUser(ctx, username, snapshot)
	if err != nil {
		return err
	}
	if len(evaluations) == 0 {
		fmt.Printf("No enabled limit rules for %s\n", username)
		return nil
	}

	fmt.Printf("Limits for %s:\n", username)
	for _, ev := range evaluations {
		fmt.Printf("  %-18s %-9s %d / %d (%.1f%%), action=%s\n",
			ev.Kind, ev.Status, ev.Observed, ev.Threshold, ev.Percentage, ev.Action)
	}
	return nil
}
