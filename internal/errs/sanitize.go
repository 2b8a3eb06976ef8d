package errs

import (
	"regexp"
	"strings"
)

const maxMessageLength = 200

// Fixed user-facing sentences per failure kind.
const (
	MsgAcquisition   = "Failed to download the video. Please check the URL and try again."
	MsgExtraction    = "Failed to process the video file. The format may be unsupported or the file may be corrupted."
	MsgTranscription = "Failed to transcribe the audio. Please try again later."
	MsgCutting       = "Failed to generate clips from the video."
	MsgNoOutput      = "No highlight clips could be generated from this video."
	MsgNotFound      = "The requested video or job could not be found."
	MsgInterrupted   = "Processing was interrupted by a server restart. Please submit the video again."
	MsgUnknown       = "An unexpected error occurred while processing the video."
)

var kindMessages = map[Kind]string{
	KindAcquisition:   MsgAcquisition,
	KindExtraction:    MsgExtraction,
	KindTranscription: MsgTranscription,
	KindCutting:       MsgCutting,
	KindNoOutput:      MsgNoOutput,
	KindNotFound:      MsgNotFound,
	KindInterrupted:   MsgInterrupted,
}

var (
	reStackFrame = regexp.MustCompile(`(?m)(\s+at\s+[^\n]*\([^)\n]*\))|(goroutine \d+ \[[^\]]*\]:)|(\S+\.go:\d+(\s+\+0x[0-9a-f]+)?)`)
	reWinPath    = regexp.MustCompile(`[A-Za-z]:\\[^\s"']*`)

	// two or more separators, or one separator before a file name with an
	// extension; inner directories may hold up to two spaces ("My Videos")
	reUnixPath = regexp.MustCompile(`(?:~|\.{1,2}|[\w.-]+)?(?:/[^\s/"':]+(?: [^\s/"':]+){0,2})+/[^\s/"':]+/?` +
		`|(?:~|[\w.-]+)?/[^\s/"':]*\.[A-Za-z0-9]{1,5}\b`)

	reSpaces = regexp.MustCompile(`\s+`)

	signatures = []struct {
		re  *regexp.Regexp
		msg string
	}{
		{regexp.MustCompile(`(?i)yt-dlp|youtube-dl|failed to download|unable to download|video unavailable`), MsgAcquisition},
		{regexp.MustCompile(`(?i)ffmpeg|ffprobe|invalid data found|moov atom`), MsgExtraction},
		{regexp.MustCompile(`(?i)whisper|openai|transcri|api key|rate limit`), MsgTranscription},
	}
)

// Sanitize maps any failure to a message that is safe to show to users.
// Classified errors map to a fixed sentence per kind; anything else is
// matched against known tool signatures and otherwise stripped of paths
// and stack frames and truncated.
func Sanitize(err error) string {
	if err == nil {
		return ""
	}
	if msg, ok := kindMessages[KindOf(err)]; ok {
		return msg
	}
	return SanitizeMessage(err.Error())
}

// SanitizeMessage applies the text rules of Sanitize to a raw message.
func SanitizeMessage(raw string) string {
	for _, sig := range signatures {
		if sig.re.MatchString(raw) {
			return sig.msg
		}
	}

	msg := StripInternals(raw)
	if msg == "" {
		return MsgUnknown
	}
	if r := []rune(msg); len(r) > maxMessageLength {
		msg = string(r[:maxMessageLength])
	}
	return msg
}

// StripInternals removes stack frames and filesystem paths from s.
func StripInternals(s string) string {
	s = reStackFrame.ReplaceAllString(s, "")
	s = reWinPath.ReplaceAllString(s, "[path]")
	s = reUnixPath.ReplaceAllString(s, "[path]")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
