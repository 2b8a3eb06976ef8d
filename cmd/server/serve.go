package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/highlight-clips/internal/cleanup"
	"github.com/codebuildervaibhav/highlight-clips/internal/config"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/handlers"
	"github.com/codebuildervaibhav/highlight-clips/internal/logging"
	"github.com/codebuildervaibhav/highlight-clips/internal/media"
	"github.com/codebuildervaibhav/highlight-clips/internal/pipeline"
	"github.com/codebuildervaibhav/highlight-clips/internal/queue"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/streamer"
	"github.com/codebuildervaibhav/highlight-clips/internal/transcription"
)

const (
	eventHistory    = 1000
	shutdownTimeout = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logBuffer := logging.NewBuffer()
	out := io.MultiWriter(os.Stdout, logBuffer)
	slog.SetDefault(logging.New(out, cfg.Log.Level, cfg.Log.Format))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout := storage.NewLayout(cfg.Storage.Root)
	if err := layout.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create storage directories: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	transcriber := newTranscriber(cfg, layout)
	archiver, closeArchiver := newArchiver(ctx, cfg)
	defer closeArchiver()

	bus := events.NewBus(eventHistory)
	orchestrator := pipeline.New(pipeline.Deps{
		Store:       store,
		Downloader:  media.NewDownloader(cfg.Tools.YtDlp, layout),
		Uploads:     layout,
		Transcoder:  media.NewTranscoder(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, layout),
		Transcriber: transcriber,
		Archiver:    archiver,
		Events:      bus,
		Timeouts: pipeline.Timeouts{
			Download:   config.Seconds(cfg.Timeouts.DownloadSeconds),
			Extract:    config.Seconds(cfg.Timeouts.ExtractSeconds),
			Probe:      config.Seconds(cfg.Timeouts.ProbeSeconds),
			Transcribe: config.Seconds(cfg.Timeouts.TranscribeSeconds),
			Cut:        config.Seconds(cfg.Timeouts.CutSeconds),
		},
	})

	workerPool := queue.NewWorkerPool(cfg.Workers.Count, cfg.Workers.QueueSize, orchestrator, store).WithEvents(bus)
	workerPool.Start()

	if _, err := pipeline.RecoverInterrupted(ctx, store, bus, workerPool.Enqueue); err != nil {
		slog.Error("job recovery failed", "error", err)
	}

	cleanupScheduler := cleanup.NewScheduler(layout,
		time.Duration(cfg.Cleanup.IntervalMinutes)*time.Minute,
		time.Duration(cfg.Cleanup.MaxAgeHours)*time.Hour,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "highlight-clips",
		BodyLimit:             cfg.Limits.MaxFileSizeMB * 1024 * 1024,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: out}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Range",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": version,
		})
	})
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": logBuffer.Lines()})
	})

	handlers.Register(app, handlers.Set{
		Submit: handlers.NewSubmitHandler(store, workerPool, layout, cfg.Limits.MaxFileSizeMB),
		Jobs:   handlers.NewJobHandler(store),
		Clips:  handlers.NewClipHandler(streamer.New(store)),
		Status: handlers.NewStatusSocket(store, bus),
	})

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "workers", cfg.Workers.Count,
			"store", cfg.Storage.Backend, "transcription", cfg.Transcription.Provider, "archive", cfg.Archive.Provider)
		serverErr <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down gracefully")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := workerPool.Stop(stopCtx); err != nil {
		slog.Warn("workers did not drain before timeout", "error", err)
	}
	return nil
}

func openStore(cfg *config.Config) (storage.JobStore, error) {
	if cfg.Storage.Backend == "memory" {
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open job database: %w", err)
	}
	return store, nil
}

func newTranscriber(cfg *config.Config, layout *storage.Layout) pipeline.Transcriber {
	if cfg.Transcription.Provider == "whisper" {
		return transcription.NewWhisperTranscriber(cfg.Tools.Whisper, cfg.Transcription.Model, cfg.Transcription.Language, layout.TempDir())
	}

	if cfg.Transcription.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, transcription requests will fail")
	}
	var opts []option.RequestOption
	if cfg.Transcription.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Transcription.BaseURL))
	}
	return transcription.NewOpenAITranscriber(cfg.Transcription.APIKey, cfg.Transcription.Model, opts...)
}

// newArchiver returns nil when archiving is off or unavailable; clips are
// then kept locally only
func newArchiver(ctx context.Context, cfg *config.Config) (pipeline.Archiver, func()) {
	noop := func() {}

	switch cfg.Archive.Provider {
	case "gdrive":
		d := cfg.Archive.GoogleDrive
		if !storage.Exists(d.CredentialsFile) {
			slog.Warn("google drive credentials not found, clips are kept locally only", "path", d.CredentialsFile)
			return nil, noop
		}
		archiver, err := storage.NewDriveArchiver(ctx, d.CredentialsFile, d.TokenFile, d.FolderName)
		if err != nil {
			slog.Warn("google drive not available, clips are kept locally only", "error", err)
			return nil, noop
		}
		slog.Info("google drive archiving enabled", "folder", d.FolderName)
		return archiver, noop

	case "gcs":
		g := cfg.Archive.GCS
		archiver, err := storage.NewGCSArchiver(ctx, g.Bucket, g.Prefix)
		if err != nil {
			slog.Warn("gcs not available, clips are kept locally only", "error", err)
			return nil, noop
		}
		slog.Info("gcs archiving enabled", "bucket", g.Bucket, "prefix", g.Prefix)
		return archiver, func() { archiver.Close() }
	}
	return nil, noop
}
