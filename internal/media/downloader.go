package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
)

const ytdlpFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

var (
	driveFilePattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveIDPattern   = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
)

// Downloader resolves a remote video URL into a local mp4 file. Google Drive
// share links are fetched directly; everything else goes through yt-dlp.
type Downloader struct {
	ytdlpPath    string
	layout       *storage.Layout
	runner       commandRunner
	httpClient   *http.Client
	driveBaseURL string
}

// NewDownloader creates a downloader writing into the layout's videos dir
func NewDownloader(ytdlpPath string, layout *storage.Layout) *Downloader {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	return &Downloader{
		ytdlpPath:    ytdlpPath,
		layout:       layout,
		runner:       &execRunner{},
		httpClient:   http.DefaultClient,
		driveBaseURL: "https://drive.google.com",
	}
}

// Download fetches sourceURL and returns the local video path
func (d *Downloader) Download(ctx context.Context, sourceURL, jobID string) (string, error) {
	if err := os.MkdirAll(d.layout.VideosDir(), 0755); err != nil {
		return "", errs.E(errs.KindAcquisition, "download", fmt.Errorf("failed to create videos directory: %w", err))
	}

	if fileID := DriveFileID(sourceURL); fileID != "" {
		slog.Info("downloading from Google Drive", "job_id", jobID, "file_id", fileID)
		return d.downloadDrive(ctx, fileID, jobID)
	}

	slog.Info("downloading with yt-dlp", "job_id", jobID)
	return d.downloadYtDlp(ctx, sourceURL, jobID)
}

func (d *Downloader) downloadYtDlp(ctx context.Context, sourceURL, jobID string) (string, error) {
	outputPath := d.layout.VideoPath(jobID, ".mp4")

	result, err := d.runner.Run(ctx, d.ytdlpPath,
		"-f", ytdlpFormat,
		"--merge-output-format", "mp4",
		"--no-playlist",
		"--no-mtime",
		"-o", outputPath,
		sourceURL,
	)
	if err != nil {
		return "", errs.E(errs.KindAcquisition, "download",
			fmt.Errorf("yt-dlp failed: %w: %s", err, lastLines(result.Stderr, 5)))
	}

	// yt-dlp may keep the container it fetched when merging is skipped
	if !storage.Exists(outputPath) {
		if actual := findDownloaded(d.layout.VideosDir(), jobID); actual != "" {
			if err := os.Rename(actual, outputPath); err != nil {
				return "", errs.E(errs.KindAcquisition, "download", fmt.Errorf("failed to rename download: %w", err))
			}
		}
	}

	if !storage.Exists(outputPath) {
		return "", errs.New(errs.KindAcquisition, "video download failed: output file not found")
	}
	return outputPath, nil
}

func (d *Downloader) downloadDrive(ctx context.Context, fileID, jobID string) (string, error) {
	downloadURL := fmt.Sprintf("%s/uc?export=download&id=%s", strings.TrimRight(d.driveBaseURL, "/"), url.QueryEscape(fileID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", errs.E(errs.KindAcquisition, "drive download", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", errs.E(errs.KindAcquisition, "drive download", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.Errorf(errs.KindAcquisition, "drive file not accessible: status %d", resp.StatusCode)
	}

	outputPath := d.layout.VideoPath(jobID, ".mp4")
	out, err := os.Create(outputPath)
	if err != nil {
		return "", errs.E(errs.KindAcquisition, "drive download", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(outputPath)
		return "", errs.E(errs.KindAcquisition, "drive download", err)
	}
	if err := out.Close(); err != nil {
		return "", errs.E(errs.KindAcquisition, "drive download", err)
	}
	return outputPath, nil
}

// DriveFileID extracts the file id of a Google Drive share link, or ""
func DriveFileID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !strings.HasSuffix(u.Hostname(), "drive.google.com") {
		return ""
	}
	if m := driveFilePattern.FindStringSubmatch(u.Path); len(m) > 1 {
		return m[1]
	}
	if m := driveIDPattern.FindStringSubmatch(rawURL); len(m) > 1 {
		return m[1]
	}
	return ""
}

func findDownloaded(dir, jobID string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, jobID) {
			continue
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".mp4", ".webm", ".mkv":
			return filepath.Join(dir, name)
		}
	}
	return ""
}
