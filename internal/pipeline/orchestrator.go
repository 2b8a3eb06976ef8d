package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/highlights"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// Progress checkpoints written together with each status transition.
const (
	ProgressDownloading  = 5
	ProgressExtracting   = 25
	ProgressTranscribing = 45
	ProgressDetecting    = 65
	ProgressGenerating   = 80
	ProgressComplete     = 100
)

// Timeouts bound each collaborator call. Zero means no bound.
type Timeouts struct {
	Download   time.Duration
	Extract    time.Duration
	Probe      time.Duration
	Transcribe time.Duration
	Cut        time.Duration // per clip
}

// DefaultTimeouts returns the stock per-stage bounds
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Download:   5 * time.Minute,
		Extract:    3 * time.Minute,
		Probe:      time.Minute,
		Transcribe: 10 * time.Minute,
		Cut:        2 * time.Minute,
	}
}

type Deps struct {
	Store       storage.JobStore
	Downloader  Downloader
	Uploads     UploadImporter
	Transcoder  Transcoder
	Transcriber Transcriber
	Archiver    Archiver  // optional
	Events      Publisher // optional
	Timeouts    Timeouts
}

// Orchestrator drives one job through every stage
type Orchestrator struct {
	d      Deps
	exists func(path string) bool
}

func New(d Deps) *Orchestrator {
	return &Orchestrator{d: d, exists: storage.Exists}
}

// Process runs the job to a terminal state. The caller must not run the
// same job twice concurrently. Any failure is sanitized, written to the
// job, and returned as a *ProcessingError.
func (o *Orchestrator) Process(ctx context.Context, jobID string) (types.ClipJob, error) {
	// the load must outlive a cancelled ctx so the job can still be failed
	job, err := o.d.Store.Get(context.WithoutCancel(ctx), jobID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return types.ClipJob{}, &ProcessingError{
				JobID:   jobID,
				Kind:    errs.KindNotFound,
				Message: errs.Sanitize(err),
				Err:     err,
			}
		}
		return o.fail(ctx, jobID, err)
	}
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, jobID, errs.E(errs.KindInterrupted, "process", err))
	}

	started := time.Now()
	done, err := o.run(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			err = errs.E(errs.KindInterrupted, "process", err)
		}
		return o.fail(ctx, jobID, err)
	}

	slog.Info("job complete", "job_id", jobID, "clips", len(done.Clips), "elapsed", time.Since(started).Round(time.Millisecond))
	return done, nil
}

func (o *Orchestrator) run(ctx context.Context, job types.ClipJob) (types.ClipJob, error) {
	jobID := job.ID

	// 1. acquire
	if _, err := o.advance(ctx, jobID, types.Stage(types.StatusDownloading, ProgressDownloading)); err != nil {
		return types.ClipJob{}, err
	}
	videoPath, err := o.acquire(ctx, job)
	if err != nil {
		return types.ClipJob{}, err
	}
	if !o.exists(videoPath) {
		return types.ClipJob{}, errs.New(errs.KindAcquisition, "video file missing after acquisition")
	}

	// 2. extract audio and probe duration together
	update := types.Stage(types.StatusExtracting, ProgressExtracting).WithVideoPath(videoPath)
	if _, err := o.advance(ctx, jobID, update); err != nil {
		return types.ClipJob{}, err
	}
	audioPath, duration, err := o.extract(ctx, videoPath, jobID)
	if err != nil {
		return types.ClipJob{}, err
	}
	if !o.exists(audioPath) {
		return types.ClipJob{}, errs.New(errs.KindExtraction, "audio file missing after extraction")
	}

	// 3. transcribe
	update = types.Stage(types.StatusTranscribing, ProgressTranscribing).WithAudioPath(audioPath).WithDuration(duration)
	if _, err := o.advance(ctx, jobID, update); err != nil {
		return types.ClipJob{}, err
	}
	tctx, cancel := withTimeout(ctx, o.d.Timeouts.Transcribe)
	segments, err := o.d.Transcriber.Transcribe(tctx, audioPath)
	cancel()
	if err != nil {
		return types.ClipJob{}, classify(errs.KindTranscription, "transcribe", err)
	}
	segments = usableSegments(segments)

	// 4. detect
	update = types.Stage(types.StatusDetecting, ProgressDetecting)
	update.Transcript = segments
	if _, err := o.advance(ctx, jobID, update); err != nil {
		return types.ClipJob{}, err
	}
	windows := highlights.Detect(segments, duration)
	if len(windows) == 0 {
		return types.ClipJob{}, errs.Errorf(errs.KindNoOutput, "no highlight windows for a %.1fs video", duration)
	}
	slog.Info("highlights detected", "job_id", jobID, "windows", len(windows), "segments", len(segments))

	// 5. cut
	if _, err := o.advance(ctx, jobID, types.Stage(types.StatusGenerating, ProgressGenerating)); err != nil {
		return types.ClipJob{}, err
	}
	clips := o.cut(ctx, videoPath, windows, jobID)
	if len(clips) == 0 {
		return types.ClipJob{}, errs.Errorf(errs.KindNoOutput, "all %d clip cuts failed", len(windows))
	}

	// 6. complete
	update = types.Stage(types.StatusComplete, ProgressComplete)
	update.Clips = clips
	return o.advance(ctx, jobID, update)
}

func (o *Orchestrator) acquire(ctx context.Context, job types.ClipJob) (string, error) {
	if job.SourceType == types.SourceFile {
		path, err := o.d.Uploads.ImportUpload(job.UploadPath, job.ID, job.SourceFilename)
		if err != nil {
			return "", classify(errs.KindAcquisition, "import upload", err)
		}
		return path, nil
	}

	dctx, cancel := withTimeout(ctx, o.d.Timeouts.Download)
	defer cancel()
	path, err := o.d.Downloader.Download(dctx, job.SourceURL, job.ID)
	if err != nil {
		return "", classify(errs.KindAcquisition, "download", err)
	}
	return path, nil
}

func (o *Orchestrator) extract(ctx context.Context, videoPath, jobID string) (string, float64, error) {
	var audioPath string
	var duration float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ectx, cancel := withTimeout(gctx, o.d.Timeouts.Extract)
		defer cancel()
		path, err := o.d.Transcoder.ExtractAudio(ectx, videoPath, jobID)
		if err != nil {
			return classify(errs.KindExtraction, "extract audio", err)
		}
		audioPath = path
		return nil
	})
	g.Go(func() error {
		pctx, cancel := withTimeout(gctx, o.d.Timeouts.Probe)
		defer cancel()
		d, err := o.d.Transcoder.ProbeDuration(pctx, videoPath)
		if err != nil {
			return classify(errs.KindExtraction, "probe duration", err)
		}
		if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
			return errs.Errorf(errs.KindExtraction, "invalid video duration %v", d)
		}
		duration = d
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", 0, err
	}
	return audioPath, duration, nil
}

// cut produces one clip per window in order; failed windows are skipped
func (o *Orchestrator) cut(ctx context.Context, videoPath string, windows []highlights.Window, jobID string) []types.Clip {
	clips := make([]types.Clip, 0, len(windows))
	for i, w := range windows {
		cctx, cancel := withTimeout(ctx, o.d.Timeouts.Cut)
		clip, err := o.d.Transcoder.CutClip(cctx, videoPath, w, jobID, i+1)
		cancel()
		if err == nil && !o.exists(clip.Filepath) {
			err = fmt.Errorf("clip %d missing after cut", i+1)
		}
		if err != nil {
			slog.Warn("clip cut failed, skipping", "job_id", jobID, "clip", i+1, "start", w.StartTime, "end", w.EndTime, "error", err)
			continue
		}

		if o.d.Archiver != nil {
			actx, cancel := withTimeout(ctx, o.d.Timeouts.Cut)
			url, err := o.d.Archiver.Archive(actx, jobID, clip)
			cancel()
			if err != nil {
				slog.Warn("clip archive failed", "job_id", jobID, "clip", clip.Filename, "error", err)
			} else {
				clip.ArchiveURL = url
			}
		}
		clips = append(clips, clip)
	}
	return clips
}

// advance persists one transition and publishes it
func (o *Orchestrator) advance(ctx context.Context, jobID string, update types.JobUpdate) (types.ClipJob, error) {
	job, err := o.d.Store.Update(ctx, jobID, update)
	if err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to persist job update: %w", err)
	}

	slog.Info("job stage", "job_id", jobID, "status", job.Status, "progress", job.Progress)
	o.publish(job, "")
	return job, nil
}

func (o *Orchestrator) fail(ctx context.Context, jobID string, cause error) (types.ClipJob, error) {
	msg := errs.Sanitize(cause)
	kind := errs.KindOf(cause)
	slog.Error("job failed", "job_id", jobID, "kind", kind, "error", cause)

	job, err := o.d.Store.Update(context.WithoutCancel(ctx), jobID, types.Failed(msg))
	if err != nil {
		slog.Error("failed to record job failure", "job_id", jobID, "error", err)
	} else {
		o.publish(job, msg)
	}

	return job, &ProcessingError{JobID: jobID, Kind: kind, Message: msg, Err: cause}
}

func (o *Orchestrator) publish(job types.ClipJob, msg string) {
	if o.d.Events == nil {
		return
	}
	o.d.Events.Publish(events.Event{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  msg,
	})
}

// classify tags err with kind unless a collaborator already did
func classify(kind errs.Kind, op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.E(kind, op, err)
}

// usableSegments drops segments the detector can't place in time
func usableSegments(in []types.TranscriptSegment) []types.TranscriptSegment {
	out := make([]types.TranscriptSegment, 0, len(in))
	for _, s := range in {
		if math.IsNaN(s.Start) || math.IsNaN(s.End) || s.End <= s.Start {
			continue
		}
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
