package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/faqchat/internal/archive"
	"github.com/edgard/faqchat/internal/config"
	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/dataset"
	"github.com/edgard/faqchat/internal/faq"
	"github.com/edgard/faqchat/internal/gemini"
	"github.com/edgard/faqchat/internal/llm"
	"github.com/edgard/faqchat/internal/logger"
	"github.com/edgard/faqchat/internal/openai"
)

// app holds what every subcommand needs: configuration, logger and store.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	loc   *time.Location
	clock clockwork.Clock
	db    *sqlx.DB
	store database.Store
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Debug("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}

	clock := clockwork.NewRealClock()
	return &app{
		cfg:   cfg,
		log:   log,
		loc:   loc,
		clock: clock,
		db:    db,
		store: database.NewStore(db, clock, loc, log),
	}, nil
}

func (a *app) Close() {
	database.CloseDB(a.db)
}

func (a *app) archiver() *archive.Archiver {
	return archive.New(a.store, archive.Config{
		Dir:             a.cfg.Archive.Dir,
		RetentionMonths: a.cfg.Archive.RetentionMonths,
		Location:        a.loc,
	}, a.clock, a.log)
}

func (a *app) dataset() (*dataset.Dataset, error) {
	ds, err := dataset.Load(a.cfg.Dataset.Path, a.cfg.Dataset.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, nil
}

// ranker builds the FAQ ranker. live overrides the configured mode.
func (a *app) ranker(curated faq.Curated, live bool) (*faq.Ranker, error) {
	mode, err := faq.ParseMode(a.cfg.FAQ.Mode)
	if err != nil {
		return nil, err
	}
	if live {
		mode = faq.ModeLive
	}
	return faq.NewRanker(a.store, curated, mode, a.log), nil
}

// newGenerator builds the configured generative backend.
func newGenerator(ctx context.Context, cfg *config.Config, log *slog.Logger) (llm.Generator, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:            cfg.Gemini.APIKey,
			Model:             cfg.Gemini.Model,
			Temperature:       cfg.Gemini.Temperature,
			MaxRetries:        cfg.Gemini.MaxRetries,
			RetryDelay:        cfg.Gemini.RetryDelay,
			Timeout:           cfg.Gemini.Timeout,
			SystemInstruction: cfg.Gemini.SystemInstruction,
		}, log)
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:            cfg.OpenAI.APIKey,
			BaseURL:           cfg.OpenAI.BaseURL,
			Model:             cfg.OpenAI.Model,
			Temperature:       cfg.OpenAI.Temperature,
			Timeout:           cfg.OpenAI.Timeout,
			SystemInstruction: cfg.OpenAI.SystemInstruction,
		}, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}
