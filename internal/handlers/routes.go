package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Set bundles every API handler
type Set struct {
	Submit *SubmitHandler
	Jobs   *JobHandler
	Clips  *ClipHandler
	Status *StatusSocket
}

// Register mounts the API routes on app
func Register(app *fiber.App, h Set) {
	api := app.Group("/api")
	api.Post("/clip", h.Submit.Handle)
	api.Get("/clip/:jobId", h.Jobs.Status)
	api.Get("/clips", h.Jobs.List)
	api.Get("/result/:jobId/:clipId", h.Clips.Result)
	api.Get("/stream/:jobId/:clipId", h.Clips.Stream)

	if h.Status != nil {
		app.Use("/ws", Upgrade)
		app.Get("/ws/jobs/:id", websocket.New(h.Status.Handle))
	}
}
