// Package openai implements the llm.Generator for OpenAI-compatible chat
// completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/faqchat/internal/llm"
)

// Config holds the OpenAI client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	Timeout           time.Duration
	SystemInstruction string
}

// Client streams replies from a chat completion model.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	instruction string
	timeout     time.Duration
	log         *slog.Logger
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = llm.DefaultSystemInstruction
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		apiCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger := log.With("component", "openai_client")
	logger.Info("OpenAI client initialized successfully", "model", cfg.Model, "base_url", apiCfg.BaseURL)
	return &Client{
		api:         openai.NewClientWithConfig(apiCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		instruction: cfg.SystemInstruction,
		timeout:     cfg.Timeout,
		log:         logger,
	}, nil
}

func (c *Client) messages(history []llm.Turn, prompt string) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: c.instruction})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if t.Role == llm.RoleModel {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Text})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
}

// StreamReply sends prompt after history and accumulates the streamed deltas.
func (c *Client) StreamReply(ctx context.Context, history []llm.Turn, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", llm.ErrEmptyPrompt
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    c.messages(history, prompt),
		Temperature: c.temperature,
		Stream:      true,
	}

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		c.log.ErrorContext(ctx, "Failed to open completion stream", "error", err)
		return "", fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.log.ErrorContext(ctx, "Completion stream interrupted", "received", b.Len(), "error", err)
			return "", fmt.Errorf("openai stream interrupted: %w", err)
		}
		for _, choice := range resp.Choices {
			b.WriteString(choice.Delta.Content)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", errors.New("openai returned empty text")
	}
	return b.String(), nil
}
