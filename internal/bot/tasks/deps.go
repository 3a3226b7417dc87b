// Package tasks implements the scheduled maintenance jobs of faqchat.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/faqchat/internal/archive"
)

// Maintainer runs database housekeeping.
type Maintainer interface {
	RunSQLMaintenance(ctx context.Context) error
}

// Archiver moves aged messages to CSV.
type Archiver interface {
	Run(ctx context.Context) archive.Result
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    Maintainer
	Archiver Archiver
}
