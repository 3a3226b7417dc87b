package handlers

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/faqchat/internal/chat"
)

// NewFAQHandler returns a handler for /faq, which lists the most asked
// questions as buttons.
func NewFAQHandler(deps HandlerDeps) bot.HandlerFunc {
	return faqHandler{deps}.Handle
}

type faqHandler struct {
	deps HandlerDeps
}

func (h faqHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "faq")
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	entries, err := h.deps.Chat.TopFAQs(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load FAQ ranking", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}
	if len(entries) == 0 {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.FAQEmpty)
		return
	}

	sess := h.deps.Chat.Session(ctx, chatID)
	sess.SetLastFAQs(entries)

	log.InfoContext(ctx, "Showing FAQ", "chat_id", chatID, "count", len(entries))
	sendWithMarkup(ctx, b, log, chatID, h.deps.Config.Messages.FAQHeader, faqKeyboard(entries))
}

// NewFAQCallbackHandler returns the handler for FAQ button taps: the stored
// answer is shown again and logged as a new exchange.
func NewFAQCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return faqCallbackHandler{deps}.Handle
}

type faqCallbackHandler struct {
	deps HandlerDeps
}

func (h faqCallbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "faq_callback")
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

	sess := h.deps.Chat.Session(ctx, chatID)
	i, ok := parseIndexCallback(faqCallbackPrefix, cq.Data)
	if !ok {
		log.WarnContext(ctx, "Malformed FAQ callback", "data", cq.Data)
		return
	}
	entry, ok := sess.LastFAQ(i)
	if !ok {
		sendText(ctx, b, log, chatID, h.deps.Config.Messages.FAQExpired)
		return
	}

	sendReplay(ctx, b, log, h.deps, chatID, sess, entry.OriginalQuestion, entry.Answer)
}

// sendReplay re-shows a stored answer and logs it as a new exchange.
func sendReplay(ctx context.Context, b *bot.Bot, log *slog.Logger, deps HandlerDeps, chatID int64, sess *chat.Session, question, answer string) {
	reply := deps.Chat.Replay(ctx, sess, question, answer)
	text := reply.Text
	if reply.SaveErr != nil {
		text += "\n\n" + deps.Config.Messages.SaveFailed
	}
	log.InfoContext(ctx, "Replayed stored answer", "chat_id", chatID, "saved", reply.SaveErr == nil)
	sendText(ctx, b, log, chatID, text)
}

func callbackChatID(cq *models.CallbackQuery) (int64, bool) {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID, true
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID, true
	default:
		return 0, false
	}
}
