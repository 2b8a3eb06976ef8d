package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/highlight-clips/internal/media"
	"github.com/codebuildervaibhav/highlight-clips/internal/queue"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

const msgQueueFull = "The server is busy processing other videos. Please try again in a few minutes."

// Enqueuer schedules a created job for background processing
type Enqueuer interface {
	Enqueue(jobID string) error
}

// SubmitHandler accepts a video URL or an uploaded file and starts a job
type SubmitHandler struct {
	store     storage.JobStore
	queue     Enqueuer
	layout    *storage.Layout
	maxSizeMB int
}

// NewSubmitHandler creates a new submit handler
func NewSubmitHandler(store storage.JobStore, queue Enqueuer, layout *storage.Layout, maxSizeMB int) *SubmitHandler {
	return &SubmitHandler{
		store:     store,
		queue:     queue,
		layout:    layout,
		maxSizeMB: maxSizeMB,
	}
}

// SubmitRequest is the non-file form of a submission
type SubmitRequest struct {
	URL string `json:"url" form:"url"`
}

// Handle creates a job and returns its id immediately
func (h *SubmitHandler) Handle(c *fiber.Ctx) error {
	if file, err := c.FormFile("video"); err == nil && file != nil {
		return h.handleUpload(c)
	}

	sourceURL := strings.TrimSpace(c.FormValue("url"))
	if sourceURL == "" {
		var req SubmitRequest
		if err := c.BodyParser(&req); err == nil {
			sourceURL = strings.TrimSpace(req.URL)
		}
	}
	if sourceURL == "" {
		return errorJSON(c, fiber.StatusBadRequest, "Please provide a video URL or upload a video file", "ERR_NO_SOURCE")
	}
	if !validURL(sourceURL) {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid video URL", "ERR_INVALID_URL")
	}

	job, err := h.store.Create(c.UserContext(), types.NewJob{
		SourceType: types.SourceURL,
		SourceURL:  sourceURL,
	})
	if err != nil {
		slog.Error("failed to create job", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create job", "ERR_INTERNAL")
	}

	return h.start(c, job, "")
}

func (h *SubmitHandler) handleUpload(c *fiber.Ctx) error {
	file, _ := c.FormFile("video")

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if h.maxSizeMB > 0 && file.Size > maxSize {
		return errorJSON(c, fiber.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}
	if !media.ValidateVideoFormat(file.Filename) {
		return errorJSON(c, fiber.StatusBadRequest, "Unsupported video format. Use MP4, MOV, AVI, MKV or WebM.", "ERR_INVALID_FORMAT")
	}

	tempPath := h.layout.TempUploadPath(file.Filename)
	if err := c.SaveFile(file, tempPath); err != nil {
		slog.Error("failed to save uploaded file", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to save file", "ERR_SAVE_FAILED")
	}

	job, err := h.store.Create(c.UserContext(), types.NewJob{
		SourceType:     types.SourceFile,
		SourceFilename: file.Filename,
		UploadPath:     tempPath,
	})
	if err != nil {
		os.Remove(tempPath)
		slog.Error("failed to create job", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to create job", "ERR_INTERNAL")
	}

	return h.start(c, job, tempPath)
}

// start enqueues the job; a rejected job is marked failed so pollers see why
func (h *SubmitHandler) start(c *fiber.Ctx, job types.ClipJob, tempPath string) error {
	if err := h.queue.Enqueue(job.ID); err != nil {
		slog.Warn("job rejected by queue", "job_id", job.ID, "error", err)
		if _, uerr := h.store.Update(context.WithoutCancel(c.UserContext()), job.ID, types.Failed(msgQueueFull)); uerr != nil {
			slog.Error("failed to mark rejected job", "job_id", job.ID, "error", uerr)
		}
		if tempPath != "" {
			os.Remove(tempPath)
		}
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrStopped) {
			return errorJSON(c, fiber.StatusServiceUnavailable, msgQueueFull, "ERR_QUEUE_FULL")
		}
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to start processing", "ERR_INTERNAL")
	}

	slog.Info("job submitted", "job_id", job.ID, "source_type", job.SourceType)
	return c.JSON(fiber.Map{
		"jobId": job.ID,
	})
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func errorJSON(c *fiber.Ctx, status int, msg, code string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
