package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/streamer"
)

// ClipHandler serves clip bytes for download and inline playback
type ClipHandler struct {
	streamer *streamer.Streamer
}

// NewClipHandler creates a new clip handler
func NewClipHandler(s *streamer.Streamer) *ClipHandler {
	return &ClipHandler{streamer: s}
}

// Result sends the whole clip as an attachment
func (h *ClipHandler) Result(c *fiber.Ctx) error {
	return h.serve(c, "", true)
}

// Stream sends the clip inline, honouring a Range header
func (h *ClipHandler) Stream(c *fiber.Ctx) error {
	return h.serve(c, c.Get(fiber.HeaderRange), false)
}

func (h *ClipHandler) serve(c *fiber.Ctx, rangeHeader string, attachment bool) error {
	jobID, clipID := c.Params("jobId"), c.Params("clipId")

	resp, err := h.streamer.Open(c.UserContext(), jobID, clipID, rangeHeader)
	if err != nil {
		switch {
		case errors.Is(err, streamer.ErrRangeNotSatisfiable):
			c.Set(fiber.HeaderContentRange, "bytes */"+strconv.FormatInt(resp.Size, 10))
			return errorJSON(c, fiber.StatusRequestedRangeNotSatisfiable, "Requested range not satisfiable", "ERR_INVALID_RANGE")
		case errs.Is(err, errs.KindNotFound):
			return errorJSON(c, fiber.StatusNotFound, "Clip not found", "ERR_CLIP_NOT_FOUND")
		default:
			slog.Error("failed to open clip", "job_id", jobID, "clip_id", clipID, "error", err)
			return errorJSON(c, fiber.StatusInternalServerError, "Failed to read clip", "ERR_INTERNAL")
		}
	}

	for k, v := range resp.Headers {
		if k == fiber.HeaderContentLength {
			continue
		}
		c.Set(k, v)
	}
	if attachment {
		c.Attachment(resp.Clip.Filename)
	} else {
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, resp.Clip.Filename))
	}

	// the body stream is closed once fully written
	return c.Status(resp.Status).SendStream(resp.Body, int(resp.Length))
}
