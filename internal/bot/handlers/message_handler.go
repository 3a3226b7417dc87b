package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/faqchat/internal/chat"
)

const answerTimeout = 2 * time.Minute

// NewMessageHandler returns the default handler: uploads are ingested and
// any other text is answered.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil {
		log.DebugContext(ctx, "Ignoring update without message", "update_id", update.ID)
		return
	}

	if msg.Document != nil {
		documentHandler(h).Handle(ctx, b, update)
		return
	}

	prompt := msg.Text
	if prompt == "" {
		prompt = msg.Caption
	}
	if strings.HasPrefix(prompt, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", prompt)
		return
	}
	if strings.TrimSpace(prompt) == "" {
		log.DebugContext(ctx, "Ignoring message without text", "chat_id", msg.Chat.ID)
		return
	}

	chatID := msg.Chat.ID
	sess := h.deps.Chat.Session(ctx, chatID)
	log.InfoContext(ctx, "Answering question", "chat_id", chatID, "session_id", sess.ID())

	stopTyping := keepTyping(ctx, b, log, chatID)
	askCtx, cancel := context.WithTimeout(ctx, answerTimeout)
	reply := h.deps.Chat.Ask(askCtx, sess, prompt)
	cancel()
	stopTyping()

	log.InfoContext(ctx, "Answered question", "chat_id", chatID, "source", reply.Source, "saved", reply.SaveErr == nil)
	sendText(ctx, b, log, chatID, h.replyText(reply))

	if sess.ShowRecent() {
		h.sendRecent(ctx, b, sess, chatID)
	}
}

func (h messageHandler) replyText(reply chat.Reply) string {
	out := reply.Text
	if reply.SaveErr != nil {
		out += "\n\n" + h.deps.Config.Messages.SaveFailed
	}
	return out
}

func (h messageHandler) sendRecent(ctx context.Context, b *bot.Bot, sess *chat.Session, chatID int64) {
	log := h.deps.Logger.With("handler", "message")
	msgs, err := h.deps.Chat.Recent(ctx, recentLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load recent messages", "error", err)
		return
	}
	if len(msgs) == 0 {
		return
	}
	sess.SetLastRecent(msgs)
	sendWithMarkup(ctx, b, log, chatID, formatRecent(h.deps.Config.Messages.RecentHeader, msgs), recentKeyboard(msgs))
}
