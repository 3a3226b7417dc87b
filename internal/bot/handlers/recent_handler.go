package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewRecentHandler returns a handler for /recent. It toggles whether the
// latest questions are shown after each answer, and shows them when turned on.
func NewRecentHandler(deps HandlerDeps) bot.HandlerFunc {
	return recentHandler{deps}.Handle
}

type recentHandler struct {
	deps HandlerDeps
}

func (h recentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recent")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	msgs := h.deps.Config.Messages

	sess := h.deps.Chat.Session(ctx, chatID)
	if !sess.ToggleShowRecent() {
		sendText(ctx, b, log, chatID, msgs.RecentHidden)
		return
	}

	recent, err := h.deps.Chat.Recent(ctx, recentLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load recent messages", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(recent) == 0 {
		sendText(ctx, b, log, chatID, msgs.RecentEmpty)
		return
	}
	sess.SetLastRecent(recent)
	sendWithMarkup(ctx, b, log, chatID, formatRecent(msgs.RecentHeader, recent), recentKeyboard(recent))
}

// NewRecentCallbackHandler returns the handler for re-ask buttons under the
// recent list: the logged answer is shown again and logged as a new exchange.
func NewRecentCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return recentCallbackHandler{deps}.Handle
}

type recentCallbackHandler struct {
	deps HandlerDeps
}

func (h recentCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recent_callback")
	cq := update.CallbackQuery
	if cq == nil {
		return
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cq.ID}); err != nil {
		log.WarnContext(ctx, "Failed to answer callback query", "error", err)
	}

	chatID, ok := callbackChatID(cq)
	if !ok {
		log.WarnContext(ctx, "Callback query without chat", "callback_query_id", cq.ID)
		return
	}

	i, ok := parseIndexCallback(recentCallbackPrefix, cq.Data)
	if !ok {
		log.WarnContext(ctx, "Malformed recent callback", "data", cq.Data)
		return
	}
	sess := h.deps.Chat.Session(ctx, chatID)
	msg, ok := sess.LastRecent(i)
	if !ok {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.RecentExpired)
		return
	}

	sendReplay(ctx, b, log, h.deps, chatID, sess, msg.UserText, msg.BotText)
}
