package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
)

const pingInterval = 30 * time.Second

// StatusSocket pushes job status over a WebSocket: a snapshot first,
// then every transition until the job is terminal
type StatusSocket struct {
	store storage.JobStore
	bus   *events.Bus
}

// NewStatusSocket creates a new status socket handler
func NewStatusSocket(store storage.JobStore, bus *events.Bus) *StatusSocket {
	return &StatusSocket{store: store, bus: bus}
}

// Upgrade rejects plain HTTP requests on WebSocket routes
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handle streams status messages for the :id job
func (s *StatusSocket) Handle(c *websocket.Conn) {
	defer c.Close()
	jobID := c.Params("id")

	// take the cursor before the snapshot so no transition is missed
	seq := s.bus.Seq()
	job, err := s.store.Get(context.Background(), jobID)
	if err != nil {
		c.WriteJSON(fiber.Map{"error": "Job not found", "code": "ERR_JOB_NOT_FOUND"})
		return
	}
	if err := c.WriteJSON(NewStatusView(job)); err != nil || job.Status.IsTerminal() {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		changed := s.bus.Changed()
		for _, ev := range s.bus.SinceJob(jobID, seq) {
			seq = ev.Seq
			if !ev.Status.IsTerminal() {
				if err := c.WriteJSON(ev); err != nil {
					return
				}
				continue
			}
			// the terminal message carries the final document with clips
			final, err := s.store.Get(context.Background(), jobID)
			if err == nil {
				c.WriteJSON(NewStatusView(final))
			}
			return
		}

		select {
		case <-changed:
		case <-ping.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			slog.Debug("status socket closed by client", "job_id", jobID)
			return
		}
	}
}
