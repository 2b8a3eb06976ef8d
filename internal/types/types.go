package types

import "time"

// Status is the lifecycle state of a clip job
type Status string

// Job status constants, in happy-path order
const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusDetecting    Status = "detecting"
	StatusGenerating   Status = "generating"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// SourceType tells where the source video comes from
type SourceType string

// Source type constants
const (
	SourceURL  SourceType = "url"
	SourceFile SourceType = "file"
)

// TranscriptSegment is a timestamped span of recognized speech
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Clip is one cut highlight file
type Clip struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Duration   float64 `json:"duration"`
	Filepath   string  `json:"filepath"`
	ArchiveURL string  `json:"archiveUrl,omitempty"`
}

// ClipJob is the full state of one submission
type ClipJob struct {
	ID             string              `json:"id"`
	Status         Status              `json:"status"`
	Progress       int                 `json:"progress"`
	SourceType     SourceType          `json:"sourceType"`
	SourceURL      string              `json:"sourceUrl,omitempty"`
	SourceFilename string              `json:"sourceFilename,omitempty"`
	UploadPath     string              `json:"uploadPath,omitempty"`
	VideoPath      string              `json:"videoPath,omitempty"`
	AudioPath      string              `json:"audioPath,omitempty"`
	Duration       float64             `json:"duration,omitempty"`
	Transcript     []TranscriptSegment `json:"transcript,omitempty"`
	Clips          []Clip              `json:"clips"`
	Error          string              `json:"error,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// NewJob carries the caller-supplied fields of a fresh submission
type NewJob struct {
	SourceType     SourceType
	SourceURL      string
	SourceFilename string
	UploadPath     string
}

// JobUpdate is a partial update: nil fields are left untouched
type JobUpdate struct {
	Status     *Status
	Progress   *int
	VideoPath  *string
	AudioPath  *string
	Duration   *float64
	Transcript []TranscriptSegment
	Clips      []Clip
	Error      *string
}

// Stage builds an update that moves a job to status at the given progress
func Stage(status Status, progress int) JobUpdate {
	return JobUpdate{Status: &status, Progress: &progress}
}

// Failed builds an update that marks a job as errored with msg
func Failed(msg string) JobUpdate {
	status := StatusError
	return JobUpdate{Status: &status, Error: &msg}
}

// WithVideoPath sets the video path on the update
func (u JobUpdate) WithVideoPath(path string) JobUpdate {
	u.VideoPath = &path
	return u
}

// WithAudioPath sets the audio path on the update
func (u JobUpdate) WithAudioPath(path string) JobUpdate {
	u.AudioPath = &path
	return u
}

// WithDuration sets the probed duration on the update
func (u JobUpdate) WithDuration(seconds float64) JobUpdate {
	u.Duration = &seconds
	return u
}

// Apply returns a copy of j with every present field of u merged in.
// The returned job shares no slices with j or u.
func (j ClipJob) Apply(u JobUpdate, now time.Time) ClipJob {
	out := j.Clone()
	if u.Status != nil {
		out.Status = *u.Status
	}
	if u.Progress != nil {
		out.Progress = *u.Progress
	}
	if u.VideoPath != nil {
		out.VideoPath = *u.VideoPath
	}
	if u.AudioPath != nil {
		out.AudioPath = *u.AudioPath
	}
	if u.Duration != nil {
		out.Duration = *u.Duration
	}
	if u.Transcript != nil {
		out.Transcript = append([]TranscriptSegment(nil), u.Transcript...)
	}
	if u.Clips != nil {
		out.Clips = append([]Clip{}, u.Clips...)
	}
	if u.Error != nil {
		out.Error = *u.Error
	}
	out.UpdatedAt = now
	return out
}

// Clone deep-copies the job so callers can't mutate stored state
func (j ClipJob) Clone() ClipJob {
	out := j
	if j.Transcript != nil {
		out.Transcript = append([]TranscriptSegment(nil), j.Transcript...)
	}
	out.Clips = append([]Clip{}, j.Clips...)
	return out
}

// FindClip looks up a clip by id
func (j ClipJob) FindClip(clipID string) (Clip, bool) {
	for _, c := range j.Clips {
		if c.ID == clipID {
			return c, true
		}
	}
	return Clip{}, false
}
