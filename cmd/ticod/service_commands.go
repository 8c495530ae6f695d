package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tico/internal/agents"
	"tico/internal/config"
	"tico/internal/crhoy"
	"tico/internal/downloader"
	"tico/internal/llm"
	"tico/internal/logging"
	"tico/internal/notifier"
	"tico/internal/ratelimit"
	"tico/internal/sched"
	"tico/internal/store"
	"tico/internal/synchronizer"
)

// serviceMain is the body of one service subcommand, invoked with the
// shutdown context and initialized shared dependencies.
type serviceMain func(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error

func newSyncCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run the daily index synchronizer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(*configFlag, "synchronizer", runSynchronizer)
		},
	}
}

func newDownloadCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Run the article downloader and analyzer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(*configFlag, "downloader", runDownloader)
		},
	}
}

func newNotifyCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Run the scheduled channel notifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runService(*configFlag, "notifier", runNotifier)
		},
	}
}

// runService loads configuration, acquires the per-service lock, opens the
// store, and runs the service body under a signal-driven shutdown context.
func runService(configPath, name string, body serviceMain) error {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldService, name))

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath(name))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", name, err)
	}
	if !locked {
		return fmt.Errorf("another %s instance is already running", name)
	}
	defer func() { _ = lock.Unlock() }()

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := body(ctx, cfg, st, logger); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSynchronizer(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	client := crhoy.NewClient(cfg)
	return synchronizer.New(cfg, st, client, logger).Run(ctx)
}

func runDownloader(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	triggers, err := sched.ParseTriggerTimes(cfg.Notifier.TriggerTimes, cfg.Location())
	if err != nil {
		return err
	}

	client := crhoy.NewClient(cfg)
	engine := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	limiters := ratelimit.NewRegistry()
	pipeline := agents.NewPipeline(cfg, engine, limiters, logger)
	analyzer := downloader.NewAnalyzer(cfg, st, pipeline, triggers, logger)

	return downloader.New(cfg, st, client, analyzer, triggers, logger).Run(ctx)
}

func runNotifier(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	triggers, err := sched.ParseTriggerTimes(cfg.Notifier.TriggerTimes, cfg.Location())
	if err != nil {
		return err
	}

	telegram := notifier.NewTelegram(cfg.Notifier.BotToken, cfg.Notifier.ChannelID)

	return notifier.New(cfg, st, telegram, triggers, logger).Run(ctx)
}
