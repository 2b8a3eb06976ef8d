package storage

import (
	"context"
	"errors"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// ErrJobNotFound is wrapped in a not_found error for unknown job ids
var ErrJobNotFound = errors.New("job not found")

// ErrClipNotFound is wrapped in a not_found error for unknown clip ids
var ErrClipNotFound = errors.New("clip not found")

// JobStore owns clip job records. Every method is safe for concurrent use,
// and Update is atomic with respect to Get: readers never observe a
// partially merged record.
type JobStore interface {
	Create(ctx context.Context, job types.NewJob) (types.ClipJob, error)
	Get(ctx context.Context, id string) (types.ClipJob, error)
	Update(ctx context.Context, id string, update types.JobUpdate) (types.ClipJob, error)
	GetClip(ctx context.Context, jobID, clipID string) (types.Clip, error)
	List(ctx context.Context, limit int) ([]types.ClipJob, error)
	Close() error
}

func jobNotFound(id string) error {
	return errs.E(errs.KindNotFound, "job "+id, ErrJobNotFound)
}

func clipNotFound(jobID, clipID string) error {
	return errs.E(errs.KindNotFound, "job "+jobID+" clip "+clipID, ErrClipNotFound)
}

func newRecord(id string, job types.NewJob, now nowFunc) types.ClipJob {
	ts := now()
	return types.ClipJob{
		ID:             id,
		Status:         types.StatusPending,
		Progress:       0,
		SourceType:     job.SourceType,
		SourceURL:      job.SourceURL,
		SourceFilename: job.SourceFilename,
		UploadPath:     job.UploadPath,
		Clips:          []types.Clip{},
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
}
