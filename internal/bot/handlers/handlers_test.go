package handlers

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/faqchat/internal/chat"
	"github.com/edgard/faqchat/internal/config"
	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/ingest"
)

func TestSplitMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		limit int
		want  []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "abcde", 5, []string{"abcde"}},
		{"hard cut", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"prefers newline", "abc\ndefgh", 5, []string{"abc\n", "defgh"}},
		{"runes not bytes", "가나다라", 2, []string{"가나", "다라"}},
		{"no limit", "abc", 0, []string{"abc"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, splitMessage(tc.input, tc.limit))
		})
	}

	long := strings.Repeat("x", maxMessageRunes*2+1)
	chunks := splitMessage(long, maxMessageRunes)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), maxMessageRunes)
	}
	assert.Equal(t, long, strings.Join(chunks, ""))
}

func TestFAQKeyboard(t *testing.T) {
	t.Parallel()

	entries := []*database.FAQEntry{
		{NormalizedQuestion: "where is hall a", OriginalQuestion: "Where is Hall A?", QuestionCount: 3},
		{NormalizedQuestion: "parking", OriginalQuestion: "How much does parking cost at the exhibition center?", QuestionCount: 1},
		{NormalizedQuestion: "curated", OriginalQuestion: "", QuestionCount: 0},
	}

	kb := faqKeyboard(entries)
	require.Len(t, kb.InlineKeyboard, 3)

	assert.Equal(t, "Where is Hall A? (3)", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "faq:0", kb.InlineKeyboard[0][0].CallbackData)

	assert.Equal(t, "How much does parking cos… (1)", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "faq:1", kb.InlineKeyboard[1][0].CallbackData)

	assert.Equal(t, "curated", kb.InlineKeyboard[2][0].Text, "falls back to the normalized question")
}

func TestParseIndexCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix string
		data   string
		want   int
		wantOK bool
	}{
		{faqCallbackPrefix, "faq:0", 0, true},
		{faqCallbackPrefix, "faq:12", 12, true},
		{faqCallbackPrefix, "faq:-1", 0, false},
		{faqCallbackPrefix, "faq:x", 0, false},
		{faqCallbackPrefix, "recent:1", 0, false},
		{faqCallbackPrefix, "", 0, false},
		{recentCallbackPrefix, "recent:19", 19, true},
		{recentCallbackPrefix, "faq:1", 0, false},
	}
	for _, tc := range tests {
		got, ok := parseIndexCallback(tc.prefix, tc.data)
		assert.Equal(t, tc.wantOK, ok, tc.data)
		assert.Equal(t, tc.want, got, tc.data)
	}
}

func TestFormatRecent(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	out := formatRecent("Recent:", []*database.Message{
		{UserText: "Where is Hall A?", CreatedAt: at},
		{UserText: strings.Repeat("q", 70), CreatedAt: at.Add(time.Minute)},
	})

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Recent:", lines[0])
	assert.Equal(t, "• 03-05 14:07  Where is Hall A?", lines[1])
	assert.Equal(t, "• 03-05 14:08  "+strings.Repeat("q", recentPreview)+"…", lines[2])
}

func TestRecentKeyboard(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 5, 14, 7, 0, 0, time.UTC)
	msgs := make([]*database.Message, recentLimit)
	for i := range msgs {
		msgs[i] = &database.Message{UserText: "question " + strconv.Itoa(i), BotText: "answer", CreatedAt: at}
	}
	msgs[1].UserText = "How much does parking cost at the exhibition center?"
	msgs[2].UserText = "  "

	kb := recentKeyboard(msgs)
	require.Len(t, kb.InlineKeyboard, 20, "one re-ask button per listed row")

	assert.Equal(t, "↩ question 0", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "recent:0", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "↩ How much does parking cos…", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "↩ 03-05 14:07", kb.InlineKeyboard[2][0].Text, "blank questions fall back to the time")
	assert.Equal(t, "recent:19", kb.InlineKeyboard[19][0].CallbackData)

	for _, row := range kb.InlineKeyboard {
		i, ok := parseIndexCallback(recentCallbackPrefix, row[0].CallbackData)
		require.True(t, ok)
		assert.Less(t, i, len(msgs))
	}
}

func TestFormatFiles(t *testing.T) {
	t.Parallel()

	out := formatFiles("Files:", []ingest.Document{
		{Name: "a.txt", Kind: "txt", Text: "héllo"},
		{Name: "b.csv", Kind: "csv", Text: "x"},
	})
	assert.Equal(t, "Files:\n1. a.txt (txt, 5 chars)\n2. b.csv (csv, 1 chars)", out)
}

func TestCallbackChatID(t *testing.T) {
	t.Parallel()

	id, ok := callbackChatID(&models.CallbackQuery{Message: models.MaybeInaccessibleMessage{
		Message: &models.Message{Chat: models.Chat{ID: 42}},
	}})
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	id, ok = callbackChatID(&models.CallbackQuery{Message: models.MaybeInaccessibleMessage{
		InaccessibleMessage: &models.InaccessibleMessage{Chat: models.Chat{ID: 7}},
	}})
	assert.True(t, ok)
	assert.EqualValues(t, 7, id)

	_, ok = callbackChatID(&models.CallbackQuery{})
	assert.False(t, ok)
}

func TestReplyText(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{Messages: config.MessagesConfig{SaveFailed: "not saved"}}
	h := messageHandler{deps: HandlerDeps{Config: cfg}}

	assert.Equal(t, "answer", h.replyText(chat.Reply{Text: "answer"}))
	assert.Equal(t, "answer\n\nnot saved", h.replyText(chat.Reply{Text: "answer", SaveErr: errors.New("locked")}))
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()

	handlers := RegisterAllCommands(HandlerDeps{Config: &config.Config{}})

	for _, name := range []string{"/start", "/help", "/faq", "/recent", "/files", "/clear", "/archive"} {
		h, ok := handlers[name]
		require.True(t, ok, name)
		assert.Equal(t, strings.TrimPrefix(name, "/"), h.Pattern)
		assert.Equal(t, tgbot.MatchTypeCommandStartOnly, h.MatchType)
		assert.NotNil(t, h.Handler)
	}
	assert.Len(t, handlers["/archive"].Middleware, 1, "archive is admin only")
	assert.Empty(t, handlers["/faq"].Middleware)

	for _, prefix := range []string{faqCallbackPrefix, recentCallbackPrefix} {
		cb, ok := handlers[prefix]
		require.True(t, ok, prefix)
		assert.Equal(t, prefix, cb.Pattern)
		assert.Equal(t, tgbot.HandlerTypeCallbackQueryData, cb.HandlerType)
		assert.Equal(t, tgbot.MatchTypePrefix, cb.MatchType)
		assert.NotNil(t, cb.Handler)
	}
}
