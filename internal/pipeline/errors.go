package pipeline

import (
	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
)

// ProcessingError is the single failure Process reports for a job.
// Message is already sanitized and is what the job record carries.
type ProcessingError struct {
	JobID   string
	Kind    errs.Kind
	Message string
	Err     error
}

func (e *ProcessingError) Error() string {
	if e == nil {
		return ""
	}
	return "job " + e.JobID + ": " + e.Message
}

// Unwrap exposes the raw cause for logging and errors.Is.
func (e *ProcessingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
