package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

var whisperModels = []string{"tiny", "base", "small", "medium", "large"}

// WhisperTranscriber runs the local Python Whisper CLI
type WhisperTranscriber struct {
	whisperCmd string
	modelName  string
	language   string
	workDir    string
	mu         sync.Mutex // one local model run at a time

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWhisperTranscriber creates a transcriber for a model name or model file path
// (e.g. "small" or "models/ggml-small.bin"). workDir receives the JSON output.
func NewWhisperTranscriber(whisperCmd, model, language, workDir string) *WhisperTranscriber {
	if whisperCmd == "" {
		whisperCmd = "python"
	}
	return &WhisperTranscriber{
		whisperCmd: whisperCmd,
		modelName:  modelName(model),
		language:   language,
		workDir:    workDir,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func modelName(model string) string {
	for _, name := range whisperModels {
		if strings.Contains(model, name) {
			return name
		}
	}
	return "small"
}

// Transcribe processes an audio file and returns its segments
func (wt *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) ([]types.TranscriptSegment, error) {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	absAudioPath, err := filepath.Abs(audioPath)
	if err != nil {
		return nil, errs.E(errs.KindTranscription, "whisper", err)
	}

	outputDir, err := os.MkdirTemp(wt.workDir, "whisper-*")
	if err != nil {
		return nil, errs.E(errs.KindTranscription, "whisper", err)
	}
	defer os.RemoveAll(outputDir)

	args := []string{"-m", "whisper",
		absAudioPath,
		"--model", wt.modelName,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--fp16", "False",
	}
	if wt.language != "" {
		args = append(args, "--language", wt.language)
	}

	slog.Info("transcribing with local whisper", "model", wt.modelName)
	if output, err := wt.run(ctx, wt.whisperCmd, args...); err != nil {
		return nil, errs.E(errs.KindTranscription, "whisper",
			fmt.Errorf("whisper transcription failed: %w: %s", err, strings.TrimSpace(string(output))))
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return nil, errs.E(errs.KindTranscription, "whisper", fmt.Errorf("failed to read whisper output: %w", err))
	}

	segments := SegmentsFromJSON(string(data))
	slog.Info("transcription completed", "provider", "whisper", "segments", len(segments))
	return segments, nil
}
