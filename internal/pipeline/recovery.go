package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// Recovery counts what RecoverInterrupted did
type Recovery struct {
	Requeued int
	Failed   int
}

// RecoverInterrupted settles jobs a previous process left unfinished.
// Pending jobs never started, so they are handed to enqueue again; jobs
// caught mid-stage are marked failed. It must run before new submissions
// are accepted. pub may be nil.
func RecoverInterrupted(ctx context.Context, store storage.JobStore, pub Publisher, enqueue func(jobID string) error) (Recovery, error) {
	var rec Recovery

	jobs, err := store.List(ctx, 0)
	if err != nil {
		return rec, fmt.Errorf("failed to list jobs for recovery: %w", err)
	}

	for _, job := range jobs {
		if job.Status.IsTerminal() {
			continue
		}

		if job.Status == types.StatusPending && enqueue != nil {
			err := enqueue(job.ID)
			if err == nil {
				rec.Requeued++
				continue
			}
			slog.Warn("could not requeue interrupted job", "job_id", job.ID, "error", err)
		}

		failed, err := store.Update(ctx, job.ID, types.Failed(errs.MsgInterrupted))
		if err != nil {
			return rec, fmt.Errorf("failed to mark job %s interrupted: %w", job.ID, err)
		}
		rec.Failed++
		if pub != nil {
			pub.Publish(events.Event{
				JobID:    failed.ID,
				Status:   failed.Status,
				Progress: failed.Progress,
				Message:  errs.MsgInterrupted,
			})
		}
	}

	if rec.Requeued > 0 || rec.Failed > 0 {
		slog.Info("recovered interrupted jobs", "requeued", rec.Requeued, "failed", rec.Failed)
	}
	return rec, nil
}
