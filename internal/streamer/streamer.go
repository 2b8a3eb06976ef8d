package streamer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// ErrRangeNotSatisfiable means the requested range lies outside the file
var ErrRangeNotSatisfiable = errors.New("range not satisfiable")

// ErrFileMissing means the clip record exists but its file does not
var ErrFileMissing = errors.New("clip file missing")

const contentType = "video/mp4"

// ClipLookup resolves a clip record
type ClipLookup interface {
	GetClip(ctx context.Context, jobID, clipID string) (types.Clip, error)
}

// Response is a ready-to-send clip body. The caller must close Body.
type Response struct {
	Status  int
	Headers map[string]string
	Body    io.ReadCloser
	Length  int64
	Size    int64
	Clip    types.Clip
}

// Streamer serves clip bytes, whole or by a single byte range
type Streamer struct {
	clips ClipLookup
}

func New(clips ClipLookup) *Streamer {
	return &Streamer{clips: clips}
}

// Open resolves the clip and prepares its body. rangeHeader may be empty.
// Missing job, clip or file yields a not_found error; a range outside the
// file yields ErrRangeNotSatisfiable, with Size still reported.
func (s *Streamer) Open(ctx context.Context, jobID, clipID, rangeHeader string) (*Response, error) {
	clip, err := s.clips.GetClip(ctx, jobID, clipID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(clip.Filepath)
	if err != nil {
		return nil, errs.E(errs.KindNotFound, "clip "+clipID, ErrFileMissing)
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		f.Close()
		return nil, errs.E(errs.KindNotFound, "clip "+clipID, ErrFileMissing)
	}
	size := info.Size()

	resp := &Response{
		Status: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":  contentType,
			"Accept-Ranges": "bytes",
		},
		Size: size,
		Clip: clip,
	}

	if rangeHeader == "" {
		resp.Body = f
		resp.Length = size
		resp.Headers["Content-Length"] = strconv.FormatInt(size, 10)
		return resp, nil
	}

	start, end, err := ParseRange(rangeHeader, size)
	if err != nil {
		f.Close()
		return resp, err
	}

	resp.Status = http.StatusPartialContent
	resp.Length = end - start + 1
	resp.Body = &sectionReadCloser{SectionReader: io.NewSectionReader(f, start, resp.Length), f: f}
	resp.Headers["Content-Length"] = strconv.FormatInt(resp.Length, 10)
	resp.Headers["Content-Range"] = fmt.Sprintf("bytes %d-%d/%d", start, end, size)
	return resp, nil
}

// ParseRange parses a "bytes=" header against a file of size bytes and
// returns the inclusive [start, end] of the first range. Supports
// "s-e", open-ended "s-" and suffix "-n" forms.
func ParseRange(header string, size int64) (int64, int64, error) {
	rng, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !ok || size <= 0 {
		return 0, 0, ErrRangeNotSatisfiable
	}
	if i := strings.IndexByte(rng, ','); i >= 0 {
		rng = rng[:i]
	}
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(rng), "-")
	if !ok {
		return 0, 0, ErrRangeNotSatisfiable
	}
	startStr, endStr = strings.TrimSpace(startStr), strings.TrimSpace(endStr)

	if startStr == "" {
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, ErrRangeNotSatisfiable
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= size {
		return 0, 0, ErrRangeNotSatisfiable
	}
	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return 0, 0, ErrRangeNotSatisfiable
		}
		if end >= size {
			end = size - 1
		}
	}
	return start, end, nil
}

type sectionReadCloser struct {
	*io.SectionReader
	f *os.File
}

func (s *sectionReadCloser) Close() error {
	return s.f.Close()
}
