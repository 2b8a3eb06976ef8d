package highlights

import (
	"fmt"
	"math"
	"sort"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

const (
	// ClipDuration is the target length of every window.
	ClipDuration = 30.0
	// MinClipDuration is the shortest window worth cutting.
	MinClipDuration = 15.0
	// MaxClips caps how many windows one video yields.
	MaxClips = 5

	leadIn = 5.0
)

// Window is a time interval of the source video selected for a clip.
type Window struct {
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Score     int     `json:"score"`
	Reason    string  `json:"reason"`
}

// Duration returns the window length in seconds.
func (w Window) Duration() float64 { return w.EndTime - w.StartTime }

// Overlaps reports whether w and o share more than an endpoint.
func (w Window) Overlaps(o Window) bool {
	return !(w.EndTime <= o.StartTime || w.StartTime >= o.EndTime)
}

type scoredSegment struct {
	segment types.TranscriptSegment
	score   int
}

// Detect picks at most MaxClips non-overlapping windows from a transcript.
// Segments are ranked by Score; each one proposes a 30s window starting
// 5s before it, clamped to the video. The result is chronological.
// When nothing qualifies, evenly spaced DefaultWindows are returned.
func Detect(segments []types.TranscriptSegment, videoDuration float64) []Window {
	if len(segments) == 0 || !validDuration(videoDuration) {
		return DefaultWindows(videoDuration)
	}

	scored := make([]scoredSegment, len(segments))
	for i, seg := range segments {
		scored[i] = scoredSegment{segment: seg, score: Score(seg.Text)}
	}
	// ties keep transcript order
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	var accepted []Window
	for _, s := range scored {
		if len(accepted) >= MaxClips {
			break
		}

		candidate := Window{
			StartTime: math.Max(0, s.segment.Start-leadIn),
			EndTime:   math.Min(videoDuration, s.segment.Start+ClipDuration-leadIn),
			Score:     s.score,
			Reason:    "Contains engaging content",
		}
		// also rejects NaN timestamps
		if !(candidate.Duration() >= MinClipDuration) {
			continue
		}
		if overlapsAny(candidate, accepted) {
			continue
		}
		accepted = append(accepted, candidate)
	}

	if len(accepted) == 0 {
		return DefaultWindows(videoDuration)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].StartTime < accepted[j].StartTime
	})
	return accepted
}

// DefaultWindows spreads up to MaxClips 30s windows evenly over the video,
// scored n..1 in chronological order. Videos shorter than one full window
// but at least MinClipDuration long get a single window from the start.
func DefaultWindows(videoDuration float64) []Window {
	if !validDuration(videoDuration) {
		return []Window{}
	}

	n := int(math.Min(MaxClips, math.Floor(videoDuration/ClipDuration)))
	if n == 0 {
		if videoDuration < MinClipDuration {
			return []Window{}
		}
		return []Window{{
			StartTime: 0,
			EndTime:   math.Min(videoDuration, ClipDuration),
			Score:     1,
			Reason:    "Video segment",
		}}
	}

	interval := videoDuration / float64(n+1)
	windows := make([]Window, 0, n)
	for i := 1; i <= n; i++ {
		center := interval * float64(i)
		start := math.Max(0, center-ClipDuration/2)
		windows = append(windows, Window{
			StartTime: start,
			EndTime:   math.Min(videoDuration, start+ClipDuration),
			Score:     n - i + 1,
			Reason:    fmt.Sprintf("Segment %d of %d", i, n),
		})
	}
	return windows
}

func validDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}

func overlapsAny(w Window, others []Window) bool {
	for _, o := range others {
		if w.Overlaps(o) {
			return true
		}
	}
	return false
}
