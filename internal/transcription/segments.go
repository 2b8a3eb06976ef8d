package transcription

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// fallbackDuration is used when a text-only response carries no duration
const fallbackDuration = 60.0

// SegmentsFromJSON reads a Whisper-style verbose JSON document
// ({"text", "duration", "segments": [{"start","end","text"}]}).
// A response without segments becomes one segment spanning the whole
// audio, or nothing when there is no text either.
func SegmentsFromJSON(raw string) []types.TranscriptSegment {
	var segments []types.TranscriptSegment
	gjson.Get(raw, "segments").ForEach(func(_, seg gjson.Result) bool {
		segments = append(segments, types.TranscriptSegment{
			Start: seg.Get("start").Float(),
			End:   seg.Get("end").Float(),
			Text:  strings.TrimSpace(seg.Get("text").String()),
		})
		return true
	})
	if len(segments) > 0 {
		return segments
	}

	text := strings.TrimSpace(gjson.Get(raw, "text").String())
	if text == "" {
		return nil
	}

	end := gjson.Get(raw, "duration").Float()
	if end <= 0 {
		end = fallbackDuration
	}
	return []types.TranscriptSegment{{Start: 0, End: end, Text: text}}
}
