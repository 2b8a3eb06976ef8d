package pipeline

import (
	"context"

	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/highlights"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

type Downloader interface {
	Download(ctx context.Context, sourceURL, jobID string) (string, error)
}

type Transcoder interface {
	ExtractAudio(ctx context.Context, videoPath, jobID string) (string, error)
	ProbeDuration(ctx context.Context, videoPath string) (float64, error)
	CutClip(ctx context.Context, videoPath string, w highlights.Window, jobID string, seq int) (types.Clip, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]types.TranscriptSegment, error)
}

// UploadImporter moves an uploaded file into the job's video location
type UploadImporter interface {
	ImportUpload(uploadPath, jobID, originalName string) (string, error)
}

// Archiver copies a finished clip somewhere durable and returns its location
type Archiver interface {
	Archive(ctx context.Context, jobID string, clip types.Clip) (string, error)
}

type Publisher interface {
	Publish(event events.Event) events.Event
}
