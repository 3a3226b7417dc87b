package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/faqchat/internal/ingest"
)

const fileDownloadTimeout = 30 * time.Second

// documentHandler ingests an uploaded file into the chat's session.
type documentHandler struct {
	deps HandlerDeps
}

func (h documentHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "document")
	msg := update.Message
	doc := msg.Document
	chatID := msg.Chat.ID
	msgs := h.deps.Config.Messages

	log.InfoContext(ctx, "Handling upload", "chat_id", chatID, "file_name", doc.FileName, "file_size", doc.FileSize)

	if err := h.deps.Ingest.Check(doc.FileName, int64(doc.FileSize)); err != nil {
		sendText(ctx, b, log, chatID, err.Error())
		return
	}

	data, err := DownloadFile(ctx, b, h.deps.Config.Telegram.Token, doc.FileID, h.deps.Ingest.MaxFileSize()+1)
	if err != nil {
		log.ErrorContext(ctx, "File download failed", "error", err, "chat_id", chatID, "file_id", doc.FileID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	parsed, err := h.deps.Ingest.Process(doc.FileName, data)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			sendText(ctx, b, log, chatID, verr.Reason)
			return
		}
		log.ErrorContext(ctx, "File processing failed", "error", err, "chat_id", chatID)
		sendText(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	sess := h.deps.Chat.Session(ctx, chatID)
	added, firstName := sess.AddDocument(parsed)
	if !added {
		sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.FileDuplicate, firstName))
		return
	}

	log.InfoContext(ctx, "Attached document", "chat_id", chatID, "session_id", sess.ID(), "file_name", parsed.Name, "encoding", parsed.Encoding)
	sendText(ctx, b, log, chatID, fmt.Sprintf(msgs.FileAdded, parsed.Name))
}

// DownloadFile fetches a Telegram file, reading at most limit bytes.
func DownloadFile(ctx context.Context, b *bot.Bot, token, fileID string, limit int64) (data []byte, err error) {
	if token == "" {
		return nil, fmt.Errorf("empty token provided for file download")
	}
	if fileID == "" {
		return nil, fmt.Errorf("empty fileID provided for file download")
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("context cancelled before file download: %w", ctx.Err())
	}

	downloadCtx, cancel := context.WithTimeout(ctx, fileDownloadTimeout)
	defer cancel()

	fileObj, err := b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file info from Telegram: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, fmt.Errorf("empty file path returned from Telegram for file ID %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	return data, nil
}
