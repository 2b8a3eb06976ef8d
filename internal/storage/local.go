package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Layout decides where per-job media files live under one root directory:
//
//	<root>/videos/<jobID>.<ext>
//	<root>/audio/<jobID>.mp3
//	<root>/clips/<jobID>/clip_001.mp4
//	<root>/tmp/<upload>
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at root
func NewLayout(root string) *Layout {
	return &Layout{root: root}
}

// Root returns the layout root
func (l *Layout) Root() string { return l.root }

// VideosDir holds acquired source videos
func (l *Layout) VideosDir() string { return filepath.Join(l.root, "videos") }

// AudioDir holds extracted audio tracks
func (l *Layout) AudioDir() string { return filepath.Join(l.root, "audio") }

// ClipsDir holds one sub-directory of clips per job
func (l *Layout) ClipsDir() string { return filepath.Join(l.root, "clips") }

// TempDir holds raw uploads until a job imports them
func (l *Layout) TempDir() string { return filepath.Join(l.root, "tmp") }

// VideoPath is the canonical source video location of a job
func (l *Layout) VideoPath(jobID, ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(l.VideosDir(), jobID+ext)
}

// AudioPath is the extracted audio location of a job
func (l *Layout) AudioPath(jobID string) string {
	return filepath.Join(l.AudioDir(), jobID+".mp3")
}

// JobClipsDir is the clip directory of a job
func (l *Layout) JobClipsDir(jobID string) string {
	return filepath.Join(l.ClipsDir(), sanitizeFilename(jobID))
}

// ClipFilename is the deterministic name of the seq-th clip (1-based)
func ClipFilename(seq int) string {
	return fmt.Sprintf("clip_%03d.mp4", seq)
}

// ClipPath is where the named clip of a job is written
func (l *Layout) ClipPath(jobID, filename string) string {
	return filepath.Join(l.JobClipsDir(jobID), sanitizeFilename(filename))
}

// TempUploadPath returns a fresh temp location for an upload, keeping its extension
func (l *Layout) TempUploadPath(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return filepath.Join(l.TempDir(), uuid.New().String()+ext)
}

// EnsureDirectories creates every directory of the layout
func (l *Layout) EnsureDirectories() error {
	for _, dir := range []string{l.VideosDir(), l.AudioDir(), l.ClipsDir(), l.TempDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ImportUpload copies an uploaded file into the job's canonical video location,
// preserving its extension, and removes the temp upload once the copy succeeds.
func (l *Layout) ImportUpload(uploadPath, jobID, originalName string) (string, error) {
	if err := os.MkdirAll(l.VideosDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create videos directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(uploadPath))
	}
	dest := l.VideoPath(jobID, ext)

	if err := copyFile(uploadPath, dest); err != nil {
		return "", err
	}

	// the copy is already in place; a stale temp file is swept by cleanup
	if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove imported upload", "path", uploadPath, "job_id", jobID, "error", err)
	}
	return dest, nil
}

// Exists reports whether path is an existing regular file
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("uploaded file not found: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create video file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy upload: %w", err)
	}
	return out.Close()
}

// sanitizeFilename keeps only the final path element so ids and names
// coming from requests can't escape the layout
func sanitizeFilename(name string) string {
	result := filepath.Base(filepath.Clean("/" + name))
	if result == "/" || result == "." {
		return "_"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}
