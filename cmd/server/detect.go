package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/highlight-clips/internal/highlights"
	"github.com/codebuildervaibhav/highlight-clips/internal/transcription"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

func newDetectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Print the highlight windows of a transcript without cutting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("transcript")
			duration, _ := cmd.Flags().GetFloat64("duration")
			if duration <= 0 {
				return errors.New("--duration must be positive")
			}

			segments, err := readTranscript(path)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(highlights.Detect(segments, duration))
		},
	}
	cmd.Flags().String("transcript", "", "Transcript JSON: a segment array or a verbose Whisper response (empty for none)")
	cmd.Flags().Float64("duration", 0, "Video duration in seconds")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func readTranscript(path string) ([]types.TranscriptSegment, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, "[") {
		var segments []types.TranscriptSegment
		if err := json.Unmarshal([]byte(raw), &segments); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
		return segments, nil
	}
	return transcription.SegmentsFromJSON(raw), nil
}
