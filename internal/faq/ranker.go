// Package faq ranks frequently asked questions from the message log.
package faq

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/dataset"
	"github.com/edgard/faqchat/internal/text"
)

// Mode selects where the ranking is computed.
type Mode string

const (
	// ModeRollup reads the maintained faq_entries table.
	ModeRollup Mode = "rollup"
	// ModeLive aggregates the messages table on every call.
	ModeLive Mode = "live"
)

// ParseMode validates a configured mode. Empty means rollup.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRollup:
		return ModeRollup, nil
	case ModeLive:
		return ModeLive, nil
	default:
		return "", fmt.Errorf("unknown faq mode %q", s)
	}
}

// Normalize returns the grouping key for a question. It is idempotent.
func Normalize(s string) string {
	return text.NormalizeQuestion(s)
}

// Source is the part of the store the ranker reads.
type Source interface {
	TopFAQs(ctx context.Context, n int) ([]*database.FAQEntry, error)
	TopFAQsLive(ctx context.Context, n int) ([]*database.FAQEntry, error)
}

// Curated supplies fallback questions when nothing has been asked yet.
type Curated interface {
	FAQs(n int) []dataset.FAQ
}

// Ranker returns the most asked questions.
type Ranker struct {
	source  Source
	curated Curated
	mode    Mode
	logger  *slog.Logger
}

// NewRanker creates a Ranker. curated may be nil.
func NewRanker(source Source, curated Curated, mode Mode, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mode == "" {
		mode = ModeRollup
	}
	return &Ranker{
		source:  source,
		curated: curated,
		mode:    mode,
		logger:  logger.With("component", "faq_ranker"),
	}
}

// Mode reports which ranking the Ranker uses.
func (r *Ranker) Mode() Mode {
	return r.mode
}

// Top returns up to n entries. When the log has no questions yet the curated
// list is returned instead, each entry with a zero count.
func (r *Ranker) Top(ctx context.Context, n int) ([]*database.FAQEntry, error) {
	entries, err := r.ranked(ctx, n)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 || r.curated == nil {
		return entries, nil
	}

	r.logger.DebugContext(ctx, "No ranked questions yet, using curated list", "n", n)
	for _, c := range r.curated.FAQs(n) {
		entries = append(entries, &database.FAQEntry{
			NormalizedQuestion: Normalize(c.Question),
			OriginalQuestion:   c.Question,
			Answer:             c.Answer,
		})
	}
	return entries, nil
}

func (r *Ranker) ranked(ctx context.Context, n int) ([]*database.FAQEntry, error) {
	if r.mode == ModeLive {
		return r.source.TopFAQsLive(ctx, n)
	}
	return r.source.TopFAQs(ctx, n)
}
