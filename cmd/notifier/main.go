package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/contentplan-agent/internal/cache"
	"github.com/contentplan-agent/internal/config"
	"github.com/contentplan-agent/internal/models"
	"github.com/contentplan-agent/internal/notifier"
	"github.com/contentplan-agent/internal/repository"
	"github.com/contentplan-agent/internal/scheduler"
	"github.com/contentplan-agent/internal/transport"
	"github.com/contentplan-agent/pkg/logger"
	"github.com/contentplan-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "contentplan-notifier",
		Short: "Background due-soon notifier for the content-plan agent",
		Long: `Runs the periodic "item due soon" scanner and cache maintenance in the
background. This daemon should be run as a service while a session is active.`,
		RunE: runNotifier,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runNotifier(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting content-plan notifier")

	// Device-local cache
	store, err := cache.NewSqlite(cfg.Cache.DSN, cfg.Cache.TTL, log)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer store.Close()

	// Executor and repository
	limiter := ratelimit.NewDefaultLimiter()
	exec := transport.NewExecutor(limiter, ratelimit.LimiterAPI, log,
		transport.WithTimeout(cfg.Executor.Timeout),
		transport.WithBackoff(cfg.Executor.Backoff),
	)
	repo := repository.New(exec, store, cfg.API.BaseURL, log,
		repository.WithRetries(cfg.Executor.Retries),
	)

	scope := models.Scope{UserID: cfg.API.UserID, TeamID: cfg.API.TeamID}
	token := cfg.API.AuthToken

	// Start health check server
	go startHealthServer()

	// Periodic cache sweep keeps the local store from accumulating expired
	// entries between sessions
	c := cron.New(cron.WithLogger(cronLogger{log}))
	_, err = c.AddFunc(cfg.Notifications.SweepCron, func() {
		if err := store.Sweep(); err != nil {
			log.Error().Err(err).Msg("Cache sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}
	c.Start()
	log.Info().Str("cron", cfg.Notifications.SweepCron).Msg("Cache sweep scheduled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The notifier reads the live board. Each tick re-lists through the
	// repository so items created or rescheduled after startup are scanned
	// too; the cache TTL bounds the network traffic this generates. A
	// refresh failure falls back to the last loaded collection.
	board := scheduler.New(repo, scope, log)
	items, err := repo.ListItems(ctx, scope, token)
	if err != nil {
		return fmt.Errorf("failed to load items: %w", err)
	}
	board.Load(items)

	source := func() []models.Item {
		items, err := repo.ListItems(ctx, scope, token)
		if err != nil {
			log.Warn().Err(err).Msg("Item refresh failed, scanning last known collection")
			return board.Items()
		}
		board.Load(items)
		return items
	}

	due := notifier.New(repo, source, cfg.API.UserID, log,
		notifier.WithInterval(cfg.Notifications.Interval),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- due.Run(ctx, token)
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down notifier")
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Notifier stopped")
		}
	}

	cancel()
	c.Stop()

	return nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Content-Plan Notifier"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
