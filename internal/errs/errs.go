package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by where it happened, not by its text
type Kind string

const (
	KindInternal      Kind = "internal"
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindAcquisition   Kind = "acquisition"
	KindExtraction    Kind = "extraction"
	KindTranscription Kind = "transcription"
	KindCutting       Kind = "cutting"
	KindNoOutput      Kind = "no_output"
	KindInterrupted   Kind = "interrupted" // shutdown or restart cut the job short
)

// Error is a classified failure produced at a collaborator boundary.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error formats the failure for logs. It may contain raw detail and must
// never be shown to users; use Sanitize for that.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// E wraps err with a kind and the operation that failed.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// New creates a classified error from a message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// Errorf creates a classified error from a format string.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the outermost kind in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
