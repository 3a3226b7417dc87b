package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/faqchat/internal/archive"
	"github.com/edgard/faqchat/internal/chat"
	"github.com/edgard/faqchat/internal/config"
	"github.com/edgard/faqchat/internal/ingest"
)

// Archiver runs one archival pass.
type Archiver interface {
	Run(ctx context.Context) archive.Result
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Chat     *chat.Service
	Ingest   *ingest.Processor
	Archiver Archiver
}
