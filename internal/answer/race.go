// Package answer races the curated dataset against the generative model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Defaults applied by NewRace when the config leaves them unset.
const (
	DefaultDatasetTimeout = 2 * time.Second
	DefaultMaxResults     = 3
	DefaultErrorMessage   = "Sorry, an error occurred while generating the answer: %v"
)

var errDatasetTimeout = errors.New("dataset lookup timed out")

// DatasetLookup finds curated answers for a query.
type DatasetLookup interface {
	Lookup(ctx context.Context, query string) ([]string, error)
}

// ModelLookup generates a free-form answer. Implementations must stop when ctx is cancelled.
type ModelLookup interface {
	Generate(ctx context.Context, query string) (string, error)
}

// DatasetLookupFunc adapts a function to DatasetLookup.
type DatasetLookupFunc func(ctx context.Context, query string) ([]string, error)

// Lookup calls f.
func (f DatasetLookupFunc) Lookup(ctx context.Context, query string) ([]string, error) {
	return f(ctx, query)
}

// ModelLookupFunc adapts a function to ModelLookup.
type ModelLookupFunc func(ctx context.Context, query string) (string, error)

// Generate calls f.
func (f ModelLookupFunc) Generate(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// Source names which branch produced a Result.
type Source string

const (
	SourceDataset Source = "dataset"
	SourceModel   Source = "model"
	SourceError   Source = "error"
)

// Result is the outcome of one race.
type Result struct {
	Text   string
	Source Source
	Err    error
}

// Config tunes the race.
type Config struct {
	DatasetTimeout time.Duration
	MaxResults     int
	// ErrorMessage is shown when no answer could be produced. A %v verb
	// receives the error.
	ErrorMessage string
}

// Race answers queries from the dataset when it can and from the model otherwise.
type Race struct {
	dataset DatasetLookup
	model   ModelLookup
	cfg     Config
	logger  *slog.Logger
}

// NewRace creates a Race.
func NewRace(dataset DatasetLookup, model ModelLookup, cfg Config, logger *slog.Logger) *Race {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DatasetTimeout <= 0 {
		cfg.DatasetTimeout = DefaultDatasetTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.ErrorMessage == "" {
		cfg.ErrorMessage = DefaultErrorMessage
	}
	return &Race{
		dataset: dataset,
		model:   model,
		cfg:     cfg,
		logger:  logger.With("component", "answer_race"),
	}
}

// Answer returns the reply text for query. It never fails; errors become the
// configured apology.
func (r *Race) Answer(ctx context.Context, query string) string {
	return r.Resolve(ctx, query).Text
}

type datasetOutcome struct {
	results []string
	err     error
}

type modelOutcome struct {
	text string
	err  error
}

// Resolve runs both lookups concurrently. The dataset is awaited first and,
// when it has a non-blank hit, the model is cancelled and its output discarded.
func (r *Race) Resolve(ctx context.Context, query string) Result {
	datasetCtx, cancelDataset := context.WithCancel(ctx)
	defer cancelDataset()
	modelCtx, cancelModel := context.WithCancel(ctx)
	defer cancelModel()

	datasetCh := make(chan datasetOutcome, 1)
	modelCh := make(chan modelOutcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				datasetCh <- datasetOutcome{err: fmt.Errorf("dataset lookup panicked: %v", p)}
			}
		}()
		results, err := r.dataset.Lookup(datasetCtx, query)
		datasetCh <- datasetOutcome{results: results, err: err}
	}()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				modelCh <- modelOutcome{err: fmt.Errorf("model lookup panicked: %v", p)}
			}
		}()
		text, err := r.model.Generate(modelCtx, query)
		modelCh <- modelOutcome{text: text, err: err}
	}()

	timer := time.NewTimer(r.cfg.DatasetTimeout)
	defer timer.Stop()

	var ds datasetOutcome
	select {
	case ds = <-datasetCh:
	case <-timer.C:
		cancelDataset()
		ds.err = errDatasetTimeout
	case <-ctx.Done():
		return r.failure(ctx, ctx.Err())
	}

	if ds.err != nil {
		r.logger.WarnContext(ctx, "Dataset lookup failed, waiting for model", "error", ds.err)
	} else if hits := nonBlank(ds.results); len(hits) > 0 {
		cancelModel()
		if len(hits) > r.cfg.MaxResults {
			hits = hits[:r.cfg.MaxResults]
		}
		r.logger.DebugContext(ctx, "Answered from dataset", "hits", len(hits))
		return Result{Text: strings.Join(hits, "\n"), Source: SourceDataset}
	}

	select {
	case m := <-modelCh:
		if m.err != nil {
			return r.failure(ctx, m.err)
		}
		return Result{Text: m.text, Source: SourceModel}
	case <-ctx.Done():
		return r.failure(ctx, ctx.Err())
	}
}

func (r *Race) failure(ctx context.Context, err error) Result {
	r.logger.ErrorContext(ctx, "No answer could be produced", "error", err)
	msg := r.cfg.ErrorMessage
	if strings.Contains(msg, "%v") {
		msg = fmt.Sprintf(msg, err)
	}
	return Result{Text: msg, Source: SourceError, Err: err}
}

func nonBlank(results []string) []string {
	out := make([]string, 0, len(results))
	for _, s := range results {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
