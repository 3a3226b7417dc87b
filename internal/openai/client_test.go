package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/llm"
	"github.com/edgard/faqchat/internal/openai"
)

type capturedRequest struct {
	Model    string `json:"model"`
	Stream   bool   `json:"stream"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func streamServer(t *testing.T, fragments []string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, captured))

		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range fragments {
			chunk, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-1",
				"object":  "chat.completion.chunk",
				"model":   "test-model",
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": f}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", chunk)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamReply(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := streamServer(t, []string{"Hall ", "A is ", "upstairs."}, &captured)

	c, err := openai.NewClient(openai.Config{APIKey: "test", BaseURL: srv.URL + "/v1", Model: "test-model", SystemInstruction: "be brief"}, nil)
	require.NoError(t, err)

	history := []llm.Turn{{Role: llm.RoleUser, Text: "hi"}, {Role: llm.RoleModel, Text: "hello"}}
	text, err := c.StreamReply(context.Background(), history, "where is hall a?")
	require.NoError(t, err)
	assert.Equal(t, "Hall A is upstairs.", text)

	assert.True(t, captured.Stream)
	assert.Equal(t, "test-model", captured.Model)
	require.Len(t, captured.Messages, 4)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "be brief", captured.Messages[0].Content)
	assert.Equal(t, "assistant", captured.Messages[2].Role)
	assert.Equal(t, "where is hall a?", captured.Messages[3].Content)
}

func TestStreamReply_Errors(t *testing.T) {
	t.Parallel()

	_, err := openai.NewClient(openai.Config{}, nil)
	assert.Error(t, err)

	var captured capturedRequest
	srv := streamServer(t, nil, &captured)
	c, err := openai.NewClient(openai.Config{APIKey: "test", BaseURL: srv.URL + "/v1"}, nil)
	require.NoError(t, err)

	_, err = c.StreamReply(context.Background(), nil, "")
	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)

	_, err = c.StreamReply(context.Background(), nil, "anything")
	assert.Error(t, err, "an empty stream is an error")

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(failing.Close)
	c, err = openai.NewClient(openai.Config{APIKey: "test", BaseURL: failing.URL + "/v1"}, nil)
	require.NoError(t, err)
	_, err = c.StreamReply(context.Background(), nil, "anything")
	assert.Error(t, err)
}
