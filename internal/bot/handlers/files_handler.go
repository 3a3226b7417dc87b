package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewFilesHandler returns a handler for /files.
func NewFilesHandler(deps HandlerDeps) bot.HandlerFunc {
	return filesHandler{deps}.Handle
}

type filesHandler struct {
	deps HandlerDeps
}

func (h filesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "files")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	docs := h.deps.Chat.Session(ctx, chatID).Documents()
	if len(docs) == 0 {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.FilesEmpty)
		return
	}
	sendText(ctx, b, log, chatID, formatFiles(h.deps.Config.Messages.FilesHeader, docs))
}

// NewClearHandler returns a handler for /clear, which starts a new session:
// uploads and conversation history are dropped.
func NewClearHandler(deps HandlerDeps) bot.HandlerFunc {
	return clearHandler{deps}.Handle
}

type clearHandler struct {
	deps HandlerDeps
}

func (h clearHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "clear")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sess := h.deps.Chat.Sessions().Reset(chatID)
	log.InfoContext(ctx, "Cleared session", "chat_id", chatID, "session_id", sess.ID())

	sendText(ctx, b, log, chatID, h.deps.Config.Messages.Cleared)
}
