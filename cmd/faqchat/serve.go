package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"

	"github.com/edgard/faqchat/internal/answer"
	"github.com/edgard/faqchat/internal/bot"
	"github.com/edgard/faqchat/internal/bot/handlers"
	"github.com/edgard/faqchat/internal/bot/tasks"
	"github.com/edgard/faqchat/internal/chat"
	"github.com/edgard/faqchat/internal/ingest"
	"github.com/edgard/faqchat/internal/logger"
	"github.com/edgard/faqchat/internal/telegram"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the scheduled tasks",
		Long: `Run the Telegram bot and the scheduled maintenance tasks until
interrupted with SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root.configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, log := a.cfg, a.log
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	ds, err := a.dataset()
	if err != nil {
		return err
	}
	ranker, err := a.ranker(ds, false)
	if err != nil {
		return err
	}

	generator, err := newGenerator(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize %s client: %w", cfg.LLM.Provider, err)
	}

	chatSvc := chat.NewService(a.store, ranker, ds, generator, chat.NewSessionManager(cfg.Chat.HistoryTurns), chat.Config{
		Race: answer.Config{
			DatasetTimeout: cfg.Race.DatasetTimeout,
			MaxResults:     cfg.Race.MaxResults,
			ErrorMessage:   cfg.Messages.GenerationError,
		},
		MaxFileChars:  cfg.Ingest.MaxChars,
		HistoryTokens: cfg.Chat.HistoryTokens,
		FAQLimit:      cfg.FAQ.Limit,
	}, log)

	archiver := a.archiver()

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Chat:   chatSvc,
		Ingest: ingest.NewProcessor(ingest.Config{
			MaxFileSize: cfg.Ingest.MaxFileSizeBytes(),
			Extensions:  cfg.Ingest.Extensions,
		}, log),
		Archiver: archiver,
	}
	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    a.store,
		Archiver: archiver,
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewMessageHandler(hDeps)),
	)
	if err != nil {
		return err
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return fmt.Errorf("failed to register Telegram handlers: %w", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps), gocron.WithLocation(a.loc))
	if err != nil {
		return err
	}

	log.Info("Starting bot...", "provider", cfg.LLM.Provider, "faq_mode", ranker.Mode())
	if err := bot.NewBot(log, tg, sched).Run(ctx); err != nil {
		return fmt.Errorf("bot stopped due to error: %w", err)
	}
	log.Info("Bot stopped gracefully.")
	return nil
}
