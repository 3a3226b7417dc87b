package handlers

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	sendMessageTimeout = 10 * time.Second
	// maxMessageRunes is Telegram's message length limit.
	maxMessageRunes = 4096
)

// splitMessage cuts s into chunks of at most limit runes, preferring to cut
// after a newline.
func splitMessage(s string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var chunks []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}

// sendText sends text to chatID, split to fit the message limit. Errors are
// logged.
func sendText(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string) {
	sendWithMarkup(ctx, b, log, chatID, text, nil)
}

// sendWithMarkup is sendText with a reply markup attached to the last chunk.
func sendWithMarkup(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string, markup models.ReplyMarkup) {
	if ctx.Err() != nil {
		log.ErrorContext(ctx, "Context cancelled before sending message", "error", ctx.Err(), "chat_id", chatID)
		return
	}

	chunks := splitMessage(text, maxMessageRunes)
	for i, chunk := range chunks {
		params := &bot.SendMessageParams{ChatID: chatID, Text: chunk}
		if i == len(chunks)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		_, err := b.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID, "chunk", i)
			return
		}
	}
}
