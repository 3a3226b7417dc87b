package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewArchiveHandler returns a handler for /archive. Register it behind AdminOnly.
func NewArchiveHandler(deps HandlerDeps) bot.HandlerFunc {
	return archiveHandler{deps}.Handle
}

type archiveHandler struct {
	deps HandlerDeps
}

func (h archiveHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "archive")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sendText(ctx, b, log, chatID, h.deps.Config.Messages.ArchiveStarted)

	res := h.deps.Archiver.Run(ctx)
	log.InfoContext(ctx, "Archive requested from chat", "chat_id", chatID, "outcome", res.Outcome.String(), "count", res.Count)

	sendText(ctx, b, log, chatID, res.Status())
}
