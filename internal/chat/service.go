package chat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/edgard/faqchat/internal/answer"
	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/llm"
	"github.com/edgard/faqchat/internal/text"
)

// DefaultMaxFileChars caps each attached document in the prompt.
const DefaultMaxFileChars = 2000

// SourceFAQ marks a reply replayed from the FAQ list.
const SourceFAQ answer.Source = "faq"

// Store is the part of database.Store the chat service uses.
type Store interface {
	SaveExchange(ctx context.Context, sessionID, userText, botText string) (*database.Message, error)
	RecentMessages(ctx context.Context, limit int) ([]*database.Message, error)
	RecentMessagesForSession(ctx context.Context, sessionID string, limit int) ([]*database.Message, error)
}

// Ranker returns the FAQ list.
type Ranker interface {
	Top(ctx context.Context, n int) ([]*database.FAQEntry, error)
}

// Reply is the outcome of one exchange.
type Reply struct {
	Text    string
	Source  answer.Source
	Message *database.Message
	// SaveErr is set when the reply could not be persisted. The reply is still valid.
	SaveErr error
}

// Config tunes the chat service.
type Config struct {
	Race          answer.Config
	MaxFileChars  int
	HistoryTokens int
	FAQLimit      int
}

// Service answers questions for sessions and records every exchange.
type Service struct {
	store     Store
	ranker    Ranker
	dataset   answer.DatasetLookup
	generator llm.Generator
	sessions  *SessionManager
	window    *text.Window
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(store Store, ranker Ranker, dataset answer.DatasetLookup, generator llm.Generator, sessions *SessionManager, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.MaxFileChars <= 0 {
		cfg.MaxFileChars = DefaultMaxFileChars
	}
	if cfg.FAQLimit <= 0 {
		cfg.FAQLimit = 5
	}
	return &Service{
		store:     store,
		ranker:    ranker,
		dataset:   dataset,
		generator: generator,
		sessions:  sessions,
		window:    text.NewWindow(cfg.HistoryTokens),
		cfg:       cfg,
		logger:    logger.With("component", "chat_service"),
	}
}

// Sessions returns the session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Session returns the session for key. A new session is seeded with its
// logged exchanges, so conversations survive restarts.
func (s *Service) Session(ctx context.Context, key int64) *Session {
	sess, created := s.sessions.Get(key)
	if !created {
		return sess
	}

	msgs, err := s.store.RecentMessagesForSession(ctx, sess.ID(), max(s.sessions.maxTurns/2, 1))
	if err != nil {
		s.logger.WarnContext(ctx, "Could not seed session history", "session_id", sess.ID(), "error", err)
		return sess
	}
	for _, m := range msgs {
		sess.AppendExchange(m.UserText, m.BotText)
	}
	if len(msgs) > 0 {
		s.logger.DebugContext(ctx, "Seeded session history", "session_id", sess.ID(), "exchanges", len(msgs))
	}
	return sess
}

// BuildPrompt appends each attached document, truncated to maxChars runes, to prompt.
func BuildPrompt(prompt string, sess *Session, maxChars int) string {
	docs := sess.Documents()
	if len(docs) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	for _, d := range docs {
		fmt.Fprintf(&b, "\n\n[File: %s]\n%s", d.Name, text.TruncateWithMarker(d.Text, maxChars))
	}
	return b.String()
}

// Ask answers prompt for sess. The dataset is consulted first and the model
// otherwise; the exchange is always persisted.
func (s *Service) Ask(ctx context.Context, sess *Session, prompt string) Reply {
	fullPrompt := BuildPrompt(prompt, sess, s.cfg.MaxFileChars)
	history := s.historyWindow(sess)

	model := answer.ModelLookupFunc(func(ctx context.Context, _ string) (string, error) {
		return s.generator.StreamReply(ctx, history, fullPrompt)
	})
	res := answer.NewRace(s.dataset, model, s.cfg.Race, s.logger).Resolve(ctx, prompt)

	if res.Err == nil {
		sess.AppendExchange(prompt, res.Text)
	}
	reply := Reply{Text: res.Text, Source: res.Source}
	reply.Message, reply.SaveErr = s.save(ctx, sess, prompt, res.Text)
	return reply
}

// historyWindow returns the newest turns that fit the token budget, starting
// at a user turn as the model APIs require.
func (s *Service) historyWindow(sess *Session) []llm.Turn {
	turns := text.Select(s.window, sess.History(), func(t llm.Turn) int { return text.EstimateTokens(t.Text) })
	for len(turns) > 0 && turns[0].Role != llm.RoleUser {
		turns = turns[1:]
	}
	return turns
}

// Replay re-shows a stored FAQ answer and records it as a new exchange.
func (s *Service) Replay(ctx context.Context, sess *Session, question, answerText string) Reply {
	sess.AppendExchange(question, answerText)
	reply := Reply{Text: answerText, Source: SourceFAQ}
	reply.Message, reply.SaveErr = s.save(ctx, sess, question, answerText)
	return reply
}

func (s *Service) save(ctx context.Context, sess *Session, userText, botText string) (*database.Message, error) {
	msg, err := s.store.SaveExchange(ctx, sess.ID(), userText, botText)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist exchange", "session_id", sess.ID(), "error", err)
		return nil, err
	}
	return msg, nil
}

// TopFAQs returns the configured number of most asked questions.
func (s *Service) TopFAQs(ctx context.Context) ([]*database.FAQEntry, error) {
	return s.ranker.Top(ctx, s.cfg.FAQLimit)
}

// Recent returns the newest logged exchanges across all sessions.
func (s *Service) Recent(ctx context.Context, limit int) ([]*database.Message, error) {
	return s.store.RecentMessages(ctx, limit)
}
