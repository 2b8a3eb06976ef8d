package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// OpenAITranscriber sends audio to the OpenAI transcription endpoint and
// asks for segment-level timestamps
type OpenAITranscriber struct {
	client openai.Client
	model  openai.AudioModel
}

// NewOpenAITranscriber creates a transcriber for the given model (whisper-1 by default)
func NewOpenAITranscriber(apiKey, model string, opts ...option.RequestOption) *OpenAITranscriber {
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	clientOpts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAITranscriber{
		client: openai.NewClient(clientOpts...),
		model:  openai.AudioModel(model),
	}
}

// Transcribe returns the ordered segments of the audio file
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audioPath string) ([]types.TranscriptSegment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, errs.E(errs.KindTranscription, "open audio", err)
	}
	defer f.Close()

	resp, err := t.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:                   f,
		Model:                  t.model,
		ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []string{"segment"},
	})
	if err != nil {
		return nil, errs.E(errs.KindTranscription, "openai transcription", fmt.Errorf("failed to transcribe audio: %w", err))
	}

	segments := SegmentsFromJSON(resp.RawJSON())
	slog.Debug("transcription finished", "provider", "openai", "segments", len(segments))
	return segments, nil
}
