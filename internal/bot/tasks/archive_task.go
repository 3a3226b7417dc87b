package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/faqchat/internal/archive"
)

// newArchiveTask creates the scheduled task that archives messages past the
// retention window.
func newArchiveTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "archive")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled archive task...")

		res := deps.Archiver.Run(ctx)
		switch res.Outcome {
		case archive.OutcomeNothingToArchive, archive.OutcomeArchived:
			log.InfoContext(ctx, "Scheduled archive task completed", "status", res.Status(), "count", res.Count)
			return nil
		default:
			log.ErrorContext(ctx, "Scheduled archive task failed", "outcome", res.Outcome.String(), "error", res.Err)
			return fmt.Errorf("archive %s: %w", res.Outcome, res.Err)
		}
	}
}
