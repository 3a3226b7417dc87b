// Package archive moves aged messages out of the log into CSV files.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/faqchat/internal/database"
	"github.com/edgard/faqchat/internal/timeutil"
)

// DefaultRetentionMonths is how long messages stay in the log.
const DefaultRetentionMonths = 6

// Outcome is the terminal state of one archive run.
type Outcome int

const (
	// OutcomeNothingToArchive means no message was older than the cutoff.
	OutcomeNothingToArchive Outcome = iota
	// OutcomeArchived means rows were exported and deleted.
	OutcomeArchived
	// OutcomeReadFailed means selecting or exporting failed. Nothing was deleted.
	OutcomeReadFailed
	// OutcomeRolledBack means the delete failed and the transaction was reverted.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNothingToArchive:
		return "nothing_to_archive"
	case OutcomeArchived:
		return "archived"
	case OutcomeReadFailed:
		return "read_failed"
	case OutcomeRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result reports one run.
type Result struct {
	Outcome Outcome
	Cutoff  time.Time
	Count   int
	// File is the export path. On OutcomeRolledBack it names the orphan backup.
	File string
	Err  error
}

// Status renders the single status line shown to operators.
func (r Result) Status() string {
	switch r.Outcome {
	case OutcomeNothingToArchive:
		return fmt.Sprintf("Nothing to archive: no messages before %s.", r.Cutoff.Format(time.DateTime))
	case OutcomeArchived:
		return fmt.Sprintf("Archived %d messages to %s.", r.Count, r.File)
	case OutcomeReadFailed:
		return fmt.Sprintf("Archive failed while reading messages, nothing was deleted: %v", r.Err)
	case OutcomeRolledBack:
		if r.File != "" {
			return fmt.Sprintf("Archive failed, all changes were reverted: %v (backup left at %s)", r.Err, r.File)
		}
		return fmt.Sprintf("Archive failed, all changes were reverted: %v", r.Err)
	default:
		return r.Outcome.String()
	}
}

// ExitCode maps the outcome to a process exit status.
func (r Result) ExitCode() int {
	switch r.Outcome {
	case OutcomeReadFailed:
		return 1
	case OutcomeRolledBack:
		return 2
	default:
		return 0
	}
}

// Store is the part of database.Store the archiver needs.
type Store interface {
	ArchiveMessages(ctx context.Context, cutoff time.Time, export database.ExportFunc) (database.ArchiveBatch, error)
}

// Config holds archiver settings.
type Config struct {
	Dir             string
	RetentionMonths int
	Location        *time.Location
}

// Archiver runs Select, Export, Delete and Report to completion.
type Archiver struct {
	store  Store
	cfg    Config
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates an Archiver.
func New(store Store, cfg Config, clock clockwork.Clock, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.RetentionMonths <= 0 {
		cfg.RetentionMonths = DefaultRetentionMonths
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Archiver{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		logger: logger.With("component", "archiver"),
	}
}

// Cutoff returns now minus the retention period, as a naive wall clock.
func (a *Archiver) Cutoff() time.Time {
	return timeutil.SubtractMonths(timeutil.NaiveNow(a.clock, a.cfg.Location), a.cfg.RetentionMonths)
}

// Run archives every message older than the cutoff. It never returns an
// error; failures are reported through the Result.
func (a *Archiver) Run(ctx context.Context) Result {
	now := timeutil.NaiveNow(a.clock, a.cfg.Location)
	res := Result{Cutoff: timeutil.SubtractMonths(now, a.cfg.RetentionMonths)}
	path := filepath.Join(a.cfg.Dir, fmt.Sprintf("archive_%s.csv", timeutil.Stamp(now)))

	a.logger.InfoContext(ctx, "Starting archive run", "cutoff", res.Cutoff, "file", path)

	batch, err := a.store.ArchiveMessages(ctx, res.Cutoff, func(_ context.Context, messages []*database.Message) (string, error) {
		if err := WriteCSV(path, messages); err != nil {
			return "", err
		}
		return path, nil
	})
	res.File = batch.Path
	res.Count = batch.Count

	switch {
	case err == nil && batch.Count == 0:
		res.Outcome = OutcomeNothingToArchive
	case err == nil:
		res.Outcome = OutcomeArchived
	case errors.Is(err, database.ErrArchiveDelete):
		res.Outcome = OutcomeRolledBack
		res.Err = err
	default:
		res.Outcome = OutcomeReadFailed
		res.Err = err
	}

	level := slog.LevelInfo
	if res.Err != nil {
		level = slog.LevelError
	}
	a.logger.Log(ctx, level, "Archive run finished",
		"outcome", res.Outcome.String(), "count", res.Count, "file", res.File, "error", res.Err)
	return res
}
