// Package gemini implements the llm.Generator on top of Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/faqchat/internal/llm"
)

// Config holds the Gemini client settings.
type Config struct {
	APIKey            string
	Model             string
	Temperature       float32
	MaxRetries        int
	RetryDelay        time.Duration
	Timeout           time.Duration
	SystemInstruction string
}

type streamFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]

// Client streams replies from a Gemini model.
type Client struct {
	stream        streamFunc
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	model         string
	maxRetries    int
	retryDelay    time.Duration
	timeout       time.Duration
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newClient(gi.Models.GenerateContentStream, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", c.model)
	return c, nil
}

func newClient(stream streamFunc, cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = llm.DefaultSystemInstruction
	}

	temperature := cfg.Temperature
	return &Client{
		stream: stream,
		log:    log.With("component", "gemini_client"),
		contentConfig: &genai.GenerateContentConfig{
			Temperature:       &temperature,
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}},
		},
		model:      cfg.Model,
		maxRetries: max(cfg.MaxRetries, 0),
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
	}
}

func toContents(history []llm.Turn, prompt string) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		var role genai.Role = genai.RoleUser
		if t.Role == llm.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

// StreamReply sends prompt after history and accumulates the streamed text.
// Calls failing with 500 or 503 before any text arrived are retried.
func (c *Client) StreamReply(ctx context.Context, history []llm.Turn, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", llm.ErrEmptyPrompt
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := toContents(history, prompt)
	c.log.DebugContext(ctx, "Streaming reply", "history_turns", len(history))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		text, received, err := c.streamOnce(ctx, contents)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("gemini returned empty text")
			}
			return text, nil
		}
		lastErr = err

		code, retriable := retriableCode(err)
		if !retriable || received {
			c.log.ErrorContext(ctx, "Gemini stream failed", "attempt", attempt+1, "received_text", received, "error", err)
			return "", fmt.Errorf("gemini API call failed: %w", err)
		}
		if attempt == c.maxRetries {
			break
		}

		c.log.InfoContext(ctx, "Retrying Gemini stream due to retriable APIError", "delay", c.retryDelay, "code", code, "attempt", attempt+1)
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.log.ErrorContext(ctx, "Gemini API call failed after max retries", "error", lastErr)
	return "", fmt.Errorf("gemini API call failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) streamOnce(ctx context.Context, contents []*genai.Content) (string, bool, error) {
	var b strings.Builder
	for resp, err := range c.stream(ctx, c.model, contents, c.contentConfig) {
		if err != nil {
			return b.String(), b.Len() > 0, err
		}
		if resp == nil {
			continue
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
			reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
			if resp.PromptFeedback.BlockReasonMessage != "" {
				reason = resp.PromptFeedback.BlockReasonMessage
			}
			return b.String(), b.Len() > 0, fmt.Errorf("blocked by safety filter: %s", reason)
		}
		b.WriteString(resp.Text())
	}
	return b.String(), b.Len() > 0, nil
}

func retriableCode(err error) (int, bool) {
	var code int
	var ptr *genai.APIError
	var val genai.APIError
	switch {
	case errors.As(err, &ptr):
		code = ptr.Code
	case errors.As(err, &val):
		code = val.Code
	default:
		return 0, false
	}
	return code, code == http.StatusInternalServerError || code == http.StatusServiceUnavailable
}
