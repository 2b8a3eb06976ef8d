package highlights

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

func TestDefaultWindows(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     []Window
	}{
		{"tooShort", 10, []Window{}},
		{"zero", 0, []Window{}},
		{"negative", -5, []Window{}},
		{"nan", math.NaN(), []Window{}},
		{"singleShort", 20, []Window{{StartTime: 0, EndTime: 20, Score: 1, Reason: "Video segment"}}},
		{"minimum", 15, []Window{{StartTime: 0, EndTime: 15, Score: 1, Reason: "Video segment"}}},
		{"one", 45, []Window{{StartTime: 7.5, EndTime: 37.5, Score: 1, Reason: "Segment 1 of 1"}}},
		{"three", 100, []Window{
			{StartTime: 10, EndTime: 40, Score: 3, Reason: "Segment 1 of 3"},
			{StartTime: 35, EndTime: 65, Score: 2, Reason: "Segment 2 of 3"},
			{StartTime: 60, EndTime: 90, Score: 1, Reason: "Segment 3 of 3"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultWindows(tt.duration)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DefaultWindows(%v) = %+v, want %+v", tt.duration, got, tt.want)
			}
		})
	}
}

func TestDefaultWindowsCapsAtMax(t *testing.T) {
	got := DefaultWindows(600)
	if len(got) != MaxClips {
		t.Fatalf("len = %d, want %d", len(got), MaxClips)
	}
	for i, w := range got {
		if w.Score != MaxClips-i {
			t.Fatalf("window %d score = %d, want %d", i, w.Score, MaxClips-i)
		}
		if w.Duration() != ClipDuration {
			t.Fatalf("window %d duration = %v", i, w.Duration())
		}
	}
}

func TestDetectEmptySegmentsFallsBack(t *testing.T) {
	got := Detect(nil, 100)
	if !reflect.DeepEqual(got, DefaultWindows(100)) {
		t.Fatalf("Detect(nil) = %+v, want default windows", got)
	}
}

func TestDetectRanksAndRejectsOverlap(t *testing.T) {
	segments := []types.TranscriptSegment{
		{Start: 10, End: 14, Text: "This is amazing!"},
		{Start: 20, End: 25, Text: "nothing here"},
		{Start: 100, End: 105, Text: "Incredible! Unbelievable!"},
	}
	got := Detect(segments, 200)
	want := []Window{
		{StartTime: 5, EndTime: 35, Score: 15, Reason: "Contains engaging content"},
		{StartTime: 95, EndTime: 125, Score: 30, Reason: "Contains engaging content"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect = %+v, want %+v", got, want)
	}
}

func TestDetectTouchingWindowsDoNotOverlap(t *testing.T) {
	segments := []types.TranscriptSegment{
		{Start: 5, End: 8, Text: "wow"},
		{Start: 35, End: 40, Text: "wow"},
	}
	got := Detect(segments, 100)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].EndTime != 30 || got[1].StartTime != 30 {
		t.Fatalf("unexpected windows: %+v", got)
	}
}

func TestDetectClampsToVideoEnd(t *testing.T) {
	got := Detect([]types.TranscriptSegment{{Start: 10, End: 12, Text: "wow"}}, 20)
	want := []Window{{StartTime: 5, EndTime: 20, Score: 10, Reason: "Contains engaging content"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect = %+v, want %+v", got, want)
	}
}

func TestDetectTooShortCandidatesFallBack(t *testing.T) {
	got := Detect([]types.TranscriptSegment{{Start: 12, End: 14, Text: "wow"}}, 20)
	want := []Window{{StartTime: 0, EndTime: 20, Score: 1, Reason: "Video segment"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect = %+v, want %+v", got, want)
	}
}

func TestDetectCapsAtMaxClips(t *testing.T) {
	var segments []types.TranscriptSegment
	for i := 0; i < 10; i++ {
		start := float64(i * 40)
		segments = append(segments, types.TranscriptSegment{Start: start, End: start + 5, Text: "the best moment"})
	}
	got := Detect(segments, 1000)
	if len(got) != MaxClips {
		t.Fatalf("len = %d, want %d", len(got), MaxClips)
	}
	// equal scores keep transcript order, so the first five segments win
	for i, w := range got {
		want := math.Max(0, float64(i*40)-5)
		if w.StartTime != want {
			t.Fatalf("window %d start = %v, want %v", i, w.StartTime, want)
		}
	}
}

func TestDetectInvalidDuration(t *testing.T) {
	segments := []types.TranscriptSegment{{Start: 10, End: 12, Text: "wow"}}
	for _, d := range []float64{math.NaN(), math.Inf(1), 0, -1} {
		t.Run(fmt.Sprint(d), func(t *testing.T) {
			if got := Detect(segments, d); len(got) != 0 {
				t.Fatalf("Detect(%v) = %+v, want empty", d, got)
			}
		})
	}
}

func TestDetectProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"amazing", "boring", "wow", "hello", "secret", "plain", "text", "win!", "why?", "ok"}

	for run := 0; run < 300; run++ {
		duration := rng.Float64() * 900
		n := rng.Intn(40)
		segments := make([]types.TranscriptSegment, n)
		for i := range segments {
			start := rng.Float64() * (duration + 20)
			text := ""
			for k := rng.Intn(30); k >= 0; k-- {
				text += words[rng.Intn(len(words))] + " "
			}
			segments[i] = types.TranscriptSegment{Start: start, End: start + 1 + rng.Float64()*10, Text: text}
		}

		got := Detect(segments, duration)
		again := Detect(segments, duration)
		if !reflect.DeepEqual(got, again) {
			t.Fatalf("run %d: Detect is not deterministic", run)
		}
		if len(got) > MaxClips {
			t.Fatalf("run %d: %d windows", run, len(got))
		}
		for i, w := range got {
			if w.Duration() < MinClipDuration {
				t.Fatalf("run %d: window %+v shorter than minimum", run, w)
			}
			if w.StartTime < 0 || w.StartTime >= w.EndTime || w.EndTime > duration {
				t.Fatalf("run %d: window %+v outside [0, %v]", run, w, duration)
			}
			if i > 0 && got[i-1].StartTime > w.StartTime {
				t.Fatalf("run %d: windows not chronological: %+v", run, got)
			}
			if w.Reason != "Contains engaging content" {
				continue
			}
			for j := i + 1; j < len(got); j++ {
				if w.Overlaps(got[j]) {
					t.Fatalf("run %d: windows overlap: %+v and %+v", run, w, got[j])
				}
			}
		}
	}
}
