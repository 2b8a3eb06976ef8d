package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

const defaultListLimit = 50

// ClipView is a clip as the API exposes it
type ClipView struct {
	ID         string  `json:"id"`
	Filename   string  `json:"filename"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Duration   float64 `json:"duration"`
	URL        string  `json:"url"`
	ArchiveURL string  `json:"archiveUrl,omitempty"`
}

// StatusView is the status document of one job
type StatusView struct {
	ID       string       `json:"id"`
	Status   types.Status `json:"status"`
	Progress int          `json:"progress"`
	Clips    []ClipView   `json:"clips"`
	Error    string       `json:"error,omitempty"`
}

// JobSummary is one row of the job listing
type JobSummary struct {
	StatusView
	SourceType types.SourceType `json:"sourceType"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// NewStatusView builds the public view of a job; file paths never leave here
func NewStatusView(job types.ClipJob) StatusView {
	clips := make([]ClipView, 0, len(job.Clips))
	for _, c := range job.Clips {
		clips = append(clips, ClipView{
			ID:         c.ID,
			Filename:   c.Filename,
			StartTime:  c.StartTime,
			EndTime:    c.EndTime,
			Duration:   c.Duration,
			URL:        fmt.Sprintf("/api/result/%s/%s", job.ID, c.ID),
			ArchiveURL: c.ArchiveURL,
		})
	}
	return StatusView{
		ID:       job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Clips:    clips,
		Error:    job.Error,
	}
}

// JobHandler serves job status and listings
type JobHandler struct {
	store storage.JobStore
}

// NewJobHandler creates a new job handler
func NewJobHandler(store storage.JobStore) *JobHandler {
	return &JobHandler{store: store}
}

// Status returns the status document of one job
func (h *JobHandler) Status(c *fiber.Ctx) error {
	job, err := h.store.Get(c.UserContext(), c.Params("jobId"))
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "Job not found", "ERR_JOB_NOT_FOUND")
		}
		slog.Error("failed to load job", "job_id", c.Params("jobId"), "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to load job", "ERR_INTERNAL")
	}
	return c.JSON(NewStatusView(job))
}

// List returns recent jobs, newest first
func (h *JobHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	jobs, err := h.store.List(c.UserContext(), limit)
	if err != nil {
		slog.Error("failed to list jobs", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to list jobs", "ERR_INTERNAL")
	}

	out := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, JobSummary{
			StatusView: NewStatusView(job),
			SourceType: job.SourceType,
			CreatedAt:  job.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"jobs": out})
}
