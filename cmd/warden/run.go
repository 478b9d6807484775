package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"halcyon-net/warden/pkg/accountcontrol"
	"halcyon-net/warden/pkg/api"
	"halcyon-net/warden/pkg/config"
	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/limits/enforcement"
	"halcyon-net/warden/pkg/limits/monitor"
	"halcyon-net/warden/pkg/limits/notify"
	"halcyon-net/warden/pkg/limits/reset"
	"halcyon-net/warden/pkg/limits/storage"
	"halcyon-net/warden/pkg/usage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the limit monitor and admin API",
	Long: `Start the limit monitor and admin API with the specified configuration.

The monitor sweeps all users with enabled limit rules on a fixed interval,
records violations, enforces actions, and sends notifications. The admin
API exposes rule management, violation history, and Prometheus metrics.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override listen address
  warden run --listen 0.0.0.0:8686

  # Validate config without starting
  warden run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", false, "reload config on file changes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLogLevel(cfg.Logging.Level))
	logger := newLogger(cfg.Logging.Format, levelVar)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var store limits.Store
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemoryStore()
	default:
		store, err = storage.NewSQLiteStoreWithConfig(storage.SQLiteStoreConfig{
			DBPath:             cfg.Storage.SQLitePath,
			CheckpointInterval: cfg.Storage.CheckpointInterval,
			BusyTimeout:        cfg.Storage.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
	}
	defer store.Close()

	// Usage source
	source, err := usage.NewRedisSource(ctx, cfg.Usage.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting usage source: %w", err)
	}
	defer source.Close()

	// Account control
	var control accountcontrol.Controller
	if cfg.Enforcement.AMQPURL != "" {
		gateway, err := accountcontrol.NewAMQPGateway(accountcontrol.AMQPGatewayConfig{
			URL:      cfg.Enforcement.AMQPURL,
			Exchange: cfg.Enforcement.AMQPExchange,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting account control: %w", err)
		}
		defer gateway.Close()
		control = gateway
	} else {
		logger.Warn("No AMQP broker configured, enforcement actions are log-only")
		control = accountcontrol.NewLogGateway(logger)
	}

	metrics := limits.NewMetrics()

	service := limits.NewService(store, limits.ServiceConfig{
		WarningFraction: cfg.Monitor.DefaultWarningFraction,
	}, logger, metrics)
	if err := service.SeedTemplates(ctx); err != nil {
		return fmt.Errorf("seeding templates: %w", err)
	}

	enforcer := enforcement.NewDispatcher(control, enforcement.Config{
		ThrottleBps: cfg.Enforcement.ThrottleBps,
	}, logger, metrics)

	notifier := notify.NewDispatcher(logger, metrics, buildChannels(cfg, logger)...)

	// Reset scheduler
	scheduler := reset.NewScheduler(store, enforcer, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting reset scheduler: %w", err)
	}
	defer scheduler.Stop()

	// Monitor loop
	var mon *monitor.Monitor
	if cfg.MonitorEnabled() {
		mon = monitor.New(store, source, enforcer, notifier, monitor.Config{
			Interval:     cfg.Monitor.Interval,
			ErrorBackoff: cfg.Monitor.ErrorBackoff,
			Workers:      cfg.Monitor.Workers,
		}, logger, metrics)
		go mon.Run(ctx)
	} else {
		logger.Warn("Background monitor disabled by configuration")
	}

	// Config hot reload: the log level, sweep interval, and reset
	// schedules apply live, everything else needs a restart.
	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			return fmt.Errorf("creating config watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func(next *config.Config) {
				levelVar.Set(parseLogLevel(next.Logging.Level))
				if mon != nil {
					mon.SetInterval(next.Monitor.Interval)
				}
				if err := scheduler.Reload(ctx); err != nil {
					logger.Error("Failed to reload reset schedules", "error", err)
				}
			})
			if err != nil {
				logger.Error("Config watcher stopped", "error", err)
			}
		}()
	}

	// Admin API
	server := api.NewServer(api.ServerConfig{
		ListenAddress: cfg.Server.ListenAddress,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
	}, api.NewHandlers(service, source), logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildChannels constructs the notification channels the config enables.
func buildChannels(cfg *config.Config, logger *slog.Logger) []notify.Channel {
	var channels []notify.Channel

	channels = append(channels, notify.NewWebhookChannel(notify.WebhookConfig{
		Timeout: cfg.Notify.Webhook.Timeout,
	}))

	if cfg.Notify.Email.Host != "" {
		email, err := notify.NewEmailChannel(notify.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
			Subject:  cfg.Notify.Email.Subject,
			Timeout:  cfg.Notify.Email.Timeout,
		})
		if err != nil {
			logger.Error("Email channel disabled", "error", err)
		} else {
			channels = append(channels, email)
		}
	}

	if cfg.Notify.Telegram.BotToken != "" {
		telegram, err := notify.NewTelegramChannel(notify.TelegramConfig{
			BotToken: cfg.Notify.Telegram.BotToken,
			Timeout:  cfg.Notify.Telegram.Timeout,
		})
		if err != nil {
			logger.Error("Telegram channel disabled", "error", err)
		} else {
			channels = append(channels, telegram)
		}
	}

	return channels
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
