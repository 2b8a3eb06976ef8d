package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/highlights"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// supportedVideoFormats are the upload extensions the pipeline accepts
var supportedVideoFormats = []string{".mp4", ".mov", ".avi", ".mkv", ".webm"}

// Transcoder wraps ffmpeg and ffprobe
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	layout      *storage.Layout
	runner      commandRunner
}

// NewTranscoder creates a transcoder writing into the layout
func NewTranscoder(ffmpegPath, ffprobePath string, layout *storage.Layout) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		layout:      layout,
		runner:      &execRunner{},
	}
}

// ExtractAudio converts the video's audio track to mp3 and returns its path
func (t *Transcoder) ExtractAudio(ctx context.Context, videoPath, jobID string) (string, error) {
	if err := os.MkdirAll(t.layout.AudioDir(), 0755); err != nil {
		return "", errs.E(errs.KindExtraction, "extract audio", err)
	}
	outputPath := t.layout.AudioPath(jobID)

	result, err := t.runner.Run(ctx, t.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-y",
		outputPath,
	)
	if err != nil {
		return "", errs.E(errs.KindExtraction, "extract audio",
			fmt.Errorf("ffmpeg failed: %w: %s", err, lastLines(result.Stderr, 5)))
	}
	if !storage.Exists(outputPath) {
		return "", errs.New(errs.KindExtraction, "audio extraction produced no file")
	}
	return outputPath, nil
}

// ProbeDuration returns the container duration in seconds. NaN, infinite
// and non-positive durations are rejected.
func (t *Transcoder) ProbeDuration(ctx context.Context, videoPath string) (float64, error) {
	result, err := t.runner.Run(ctx, t.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		videoPath,
	)
	if err != nil {
		return 0, errs.E(errs.KindExtraction, "probe duration",
			fmt.Errorf("ffprobe failed: %w: %s", err, lastLines(result.Stderr, 5)))
	}

	raw := gjson.Get(result.Stdout, "format.duration")
	if !raw.Exists() {
		return 0, errs.New(errs.KindExtraction, "ffprobe reported no duration")
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(raw.String()), 64)
	if err != nil {
		return 0, errs.E(errs.KindExtraction, "probe duration", err)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, errs.Errorf(errs.KindExtraction, "invalid video duration %v", duration)
	}
	return duration, nil
}

// CutClip re-encodes one window of the video into the job's clip directory.
// seq is 1-based and decides the clip filename.
func (t *Transcoder) CutClip(ctx context.Context, videoPath string, w highlights.Window, jobID string, seq int) (types.Clip, error) {
	if err := os.MkdirAll(t.layout.JobClipsDir(jobID), 0755); err != nil {
		return types.Clip{}, errs.E(errs.KindCutting, "cut clip", err)
	}

	filename := storage.ClipFilename(seq)
	outputPath := t.layout.ClipPath(jobID, filename)
	duration := w.Duration()

	result, err := t.runner.Run(ctx, t.ffmpegPath,
		"-i", videoPath,
		"-ss", formatSeconds(w.StartTime),
		"-t", formatSeconds(duration),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-y",
		outputPath,
	)
	if err != nil {
		return types.Clip{}, errs.E(errs.KindCutting, filename,
			fmt.Errorf("ffmpeg failed: %w: %s", err, lastLines(result.Stderr, 5)))
	}
	if !storage.Exists(outputPath) {
		return types.Clip{}, errs.Errorf(errs.KindCutting, "%s was not written", filename)
	}

	return types.Clip{
		ID:        uuid.New().String(),
		Filename:  filename,
		StartTime: w.StartTime,
		EndTime:   w.EndTime,
		Duration:  duration,
		Filepath:  outputPath,
	}, nil
}

// ValidateVideoFormat checks if the file extension is a supported video format
func ValidateVideoFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, format := range supportedVideoFormats {
		if ext == format {
			return true
		}
	}
	return false
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
