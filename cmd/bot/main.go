package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rg/neetbot/internal/admin"
	"github.com/rg/neetbot/internal/answer"
	"github.com/rg/neetbot/internal/bot"
	"github.com/rg/neetbot/internal/broadcast"
	"github.com/rg/neetbot/internal/config"
	"github.com/rg/neetbot/internal/gate"
	"github.com/rg/neetbot/internal/messaging/telegram"
	"github.com/rg/neetbot/internal/metrics"
	"github.com/rg/neetbot/internal/security"
	"github.com/rg/neetbot/internal/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("neetbot: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		verbosity  int
	)

	rootCmd := &cobra.Command{
		Use:           "neetbot",
		Short:         "Telegram bot answering NEET/JEE questions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, verbosity)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, verbosity)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or "+config.DefaultPath+")")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv also logs Telegram API calls)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath, verbosity)
			if err != nil {
				return err
			}
			store, err := storage.NewStorage(cfg.Storage.DBPath)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer store.Close()
			slog.Info("Database schema is up to date", "path", cfg.Storage.DBPath)
			return nil
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version.",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return rootCmd
}

func loadConfig(path string, verbosity int) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	setLogLevel(cfg.Log.Format, verbosity)
	return cfg, nil
}

func setLogLevel(format string, verbosity int) {
	level := slog.LevelInfo
	if verbosity > 0 {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(parent context.Context, cfg *config.Config, verbosity int) error {
	slog.Info("Starting neetbot", "version", version)
	log.Printf("%s", cfg)

	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Database initialized", "path", cfg.Storage.DBPath)

	sanitizer, err := security.NewSanitizer(cfg.Security.SecretPatterns)
	if err != nil {
		return err
	}

	answers := answer.NewClient(answer.Config{
		URL:        cfg.Answer.APIURL,
		APIKey:     cfg.Answer.APIKey,
		Timeout:    cfg.Answer.Timeout,
		MaxRetries: cfg.Answer.MaxRetries,
	})
	if answers.UsesMock() {
		slog.Warn("No answer API configured, serving canned answers")
	}

	platform, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.Workers)
	if err != nil {
		return fmt.Errorf("failed to create Telegram client: %w", err)
	}
	platform.SetDebug(verbosity > 1)
	botUsername := platform.Self().Username
	slog.Info("Telegram client initialized", "username", botUsername)

	if cfg.Telegram.OwnerID == 0 {
		slog.Warn("owner_id is not set, owner-only commands are disabled")
	}

	evaluator := gate.NewEvaluator(store, platform, gate.NewPromptBuilder(botUsername), cfg.Telegram.OwnerID)
	auth := admin.NewAuthorizer(store, cfg.Telegram.OwnerID)
	dispatcher := broadcast.NewDispatcher(platform, store, broadcast.Options{
		SendDelay:     cfg.Broadcast.SendDelay,
		ProgressEvery: cfg.Broadcast.ProgressEvery,
	})
	sweeper := gate.NewSweeper(store, platform, cfg.Gate.PromptTTL, cfg.Gate.SweepInterval)

	handler := bot.NewHandler(platform, store, evaluator, auth, dispatcher, answers, sanitizer, bot.Options{
		BotUsername:    botUsername,
		OwnerUsername:  cfg.Telegram.OwnerUsername,
		UpdatesChannel: cfg.Telegram.UpdatesChannel,
		MaxQuestionLen: cfg.Bot.MaxQuestionLen,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exempt := func(uid int64) bool {
		ok, err := auth.IsAuthorized(ctx, uid)
		return err == nil && ok
	}
	mw := bot.NewMiddleware(cfg.Bot.RateLimit, cfg.Bot.RateWindow, exempt, handler.NotifyRateLimited)

	onMessage := mw.Logger(mw.RateLimit(handler.HandleMessage))
	onCallback := mw.CallbackLogger(handler.HandleCallback)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		// polling ending on its own stops the workers too
		defer cancel()
		return platform.Start(gctx, onMessage, onCallback)
	})
	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})
	g.Go(func() error {
		mw.StartCleanupWorker(gctx)
		return nil
	})
	if cfg.Metrics.ListenAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.ListenAddr)
		})
	}

	slog.Info("Bot is ready to receive messages",
		"owner_id", cfg.Telegram.OwnerID,
		"workers", cfg.Telegram.Workers,
		"metrics", cfg.Metrics.ListenAddr)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("bot stopped with error: %w", err)
	}
	slog.Info("Shutdown complete")
	return nil
}
