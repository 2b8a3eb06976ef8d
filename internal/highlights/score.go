package highlights

import "strings"

// Keywords is the fixed vocabulary that marks a segment as clip-worthy.
var Keywords = []string{
	"amazing", "incredible", "unbelievable", "wow", "awesome",
	"best", "worst", "important", "key", "critical",
	"breaking", "news", "announcement", "reveal", "surprise",
	"first", "last", "finally", "never", "always",
	"love", "hate", "excited", "shocking", "crazy",
	"win", "won", "winner", "champion", "victory",
	"fail", "failed", "mistake", "error", "wrong",
	"success", "successful", "achieved", "accomplished",
	"secret", "hidden", "exclusive", "special",
	"remember", "forget", "learn", "understand",
	"question", "answer", "solution", "problem",
}

const (
	keywordPoints     = 10
	exclamationPoints = 5
	questionPoints    = 3
	longSegmentBonus  = 5
	longSegmentWords  = 20
)

// Score rates one transcript segment's text.
// Each vocabulary keyword contained in the text (case-insensitive substring)
// adds 10, every '!' adds 5, every '?' adds 3, and more than 20 words adds 5.
func Score(text string) int {
	lower := strings.ToLower(text)

	score := 0
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			score += keywordPoints
		}
	}
	score += strings.Count(text, "!") * exclamationPoints
	score += strings.Count(text, "?") * questionPoints
	if len(strings.Fields(text)) > longSegmentWords {
		score += longSegmentBonus
	}
	return score
}
