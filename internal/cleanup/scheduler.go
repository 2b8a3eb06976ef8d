package cleanup

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
)

// Result summarises one cleanup pass
type Result struct {
	Files int
	Bytes int64
}

// Scheduler periodically deletes stale uploads and job artifacts
type Scheduler struct {
	roots    []string
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler creates a scheduler over the temp, video, audio and clip
// directories of layout
func NewScheduler(layout *storage.Layout, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		roots:    []string{layout.TempDir(), layout.VideosDir(), layout.AudioDir(), layout.ClipsDir()},
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately, then one every interval
func (s *Scheduler) Start() {
	s.RunOnce()

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				return
			}
		}
	}()

	slog.Info("cleanup scheduler started", "interval", s.interval, "max_age", s.maxAge)
}

// Stop ends the periodic loop and waits for a running pass
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		slog.Info("cleanup scheduler stopped")
	})
}

// RunOnce removes every file older than the max age, then prunes the
// per-job directories left empty
func (s *Scheduler) RunOnce() Result {
	var res Result
	cutoff := s.now().Add(-s.maxAge)

	for _, root := range s.roots {
		var dirs []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip entries we can't access
			}
			if d.IsDir() {
				if path != root {
					dirs = append(dirs, path)
				}
				return nil
			}

			info, err := d.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				return nil
			}
			if err := os.Remove(path); err != nil {
				slog.Warn("failed to delete old file", "path", path, "error", err)
				return nil
			}
			res.Files++
			res.Bytes += info.Size()
			slog.Debug("deleted old file", "file", filepath.Base(path), "age", s.now().Sub(info.ModTime()).Round(time.Minute))
			return nil
		})
		if err != nil {
			slog.Error("cleanup walk failed", "root", root, "error", err)
		}

		// deepest first; Remove fails harmlessly on non-empty dirs
		for i := len(dirs) - 1; i >= 0; i-- {
			os.Remove(dirs[i])
		}
	}

	if res.Files > 0 {
		slog.Info("cleanup complete", "files", res.Files, "freed_mb", float64(res.Bytes)/(1024*1024))
	}
	return res
}
