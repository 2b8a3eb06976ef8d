package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

func eachStore(t *testing.T, fn func(t *testing.T, store JobStore)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		fn(t, store)
	})
}

func TestStoreLifecycle(t *testing.T) {
	eachStore(t, func(t *testing.T, store JobStore) {
		ctx := context.Background()

		job, err := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: "https://youtu.be/abc"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if job.ID == "" || job.Status != types.StatusPending || job.Progress != 0 {
			t.Fatalf("unexpected new job: %+v", job)
		}
		if job.Clips == nil || len(job.Clips) != 0 {
			t.Fatalf("new job clips = %#v, want empty", job.Clips)
		}

		updated, err := store.Update(ctx, job.ID, types.Stage(types.StatusExtracting, 25).WithVideoPath("/data/videos/x.mp4"))
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Status != types.StatusExtracting || updated.VideoPath != "/data/videos/x.mp4" {
			t.Fatalf("unexpected update result: %+v", updated)
		}

		got, err := store.Get(ctx, job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Progress != 25 || got.SourceURL != "https://youtu.be/abc" {
			t.Fatalf("partial update lost fields: %+v", got)
		}
		if got.UpdatedAt.Before(got.CreatedAt) {
			t.Fatalf("updatedAt %v before createdAt %v", got.UpdatedAt, got.CreatedAt)
		}
	})
}

func TestStoreNotFound(t *testing.T) {
	eachStore(t, func(t *testing.T, store JobStore) {
		ctx := context.Background()

		_, err := store.Get(ctx, "missing")
		if !errs.Is(err, errs.KindNotFound) || !errors.Is(err, ErrJobNotFound) {
			t.Fatalf("Get(missing) err = %v", err)
		}
		_, err = store.Update(ctx, "missing", types.Stage(types.StatusComplete, 100))
		if !errors.Is(err, ErrJobNotFound) {
			t.Fatalf("Update(missing) err = %v", err)
		}

		job, _ := store.Create(ctx, types.NewJob{SourceType: types.SourceFile, SourceFilename: "a.mp4"})
		_, err = store.GetClip(ctx, job.ID, "nope")
		if !errs.Is(err, errs.KindNotFound) || !errors.Is(err, ErrClipNotFound) {
			t.Fatalf("GetClip(nope) err = %v", err)
		}
	})
}

func TestStoreGetClip(t *testing.T) {
	eachStore(t, func(t *testing.T, store JobStore) {
		ctx := context.Background()
		job, _ := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: "https://x.test/v"})

		clips := []types.Clip{
			{ID: "c1", Filename: "clip_001.mp4", StartTime: 5, EndTime: 35, Duration: 30},
			{ID: "c2", Filename: "clip_002.mp4", StartTime: 60, EndTime: 90, Duration: 30},
		}
		update := types.Stage(types.StatusComplete, 100)
		update.Clips = clips
		if _, err := store.Update(ctx, job.ID, update); err != nil {
			t.Fatalf("Update: %v", err)
		}

		clip, err := store.GetClip(ctx, job.ID, "c2")
		if err != nil {
			t.Fatalf("GetClip: %v", err)
		}
		if clip.Filename != "clip_002.mp4" || clip.StartTime != 60 {
			t.Fatalf("GetClip = %+v", clip)
		}
	})
}

func TestStoreList(t *testing.T) {
	eachStore(t, func(t *testing.T, store JobStore) {
		ctx := context.Background()

		var ids []string
		for i := 0; i < 3; i++ {
			job, err := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: fmt.Sprintf("https://x.test/%d", i)})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			ids = append(ids, job.ID)
			time.Sleep(2 * time.Millisecond)
		}

		all, err := store.List(ctx, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("len = %d, want 3", len(all))
		}
		if all[0].ID != ids[2] || all[2].ID != ids[0] {
			t.Fatalf("List not newest first: %v", []string{all[0].ID, all[1].ID, all[2].ID})
		}

		limited, _ := store.List(ctx, 2)
		if len(limited) != 2 {
			t.Fatalf("limited len = %d, want 2", len(limited))
		}
	})
}

func TestStoreConcurrentUpdates(t *testing.T) {
	eachStore(t, func(t *testing.T, store JobStore) {
		ctx := context.Background()
		job, _ := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: "https://x.test/v"})

		var wg sync.WaitGroup
		for i := 1; i <= 20; i++ {
			wg.Add(2)
			go func(p int) {
				defer wg.Done()
				if _, err := store.Update(ctx, job.ID, types.Stage(types.StatusTranscribing, p)); err != nil {
					t.Errorf("Update: %v", err)
				}
			}(i)
			go func() {
				defer wg.Done()
				got, err := store.Get(ctx, job.ID)
				if err != nil {
					t.Errorf("Get: %v", err)
					return
				}
				// a reader sees either the initial or a fully merged record
				if got.Progress > 0 && got.Status != types.StatusTranscribing {
					t.Errorf("torn read: %+v", got)
				}
			}()
		}
		wg.Wait()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	job, _ := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: "https://x.test/v"})

	update := types.JobUpdate{Clips: []types.Clip{{ID: "c1"}}}
	if _, err := store.Update(ctx, job.ID, update); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	got.Clips[0].ID = "mutated"

	again, _ := store.Get(ctx, job.ID)
	if again.Clips[0].ID != "c1" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	job, _ := store.Create(ctx, types.NewJob{SourceType: types.SourceFile, SourceFilename: "talk.mov"})
	store.Update(ctx, job.ID, types.Failed("Failed to download the video."))
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != types.StatusError || got.SourceFilename != "talk.mov" {
		t.Fatalf("reopened job = %+v", got)
	}
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/data")

	if got := l.VideoPath("j1", ""); got != filepath.Join("/data", "videos", "j1.mp4") {
		t.Fatalf("VideoPath = %s", got)
	}
	if got := l.AudioPath("j1"); got != filepath.Join("/data", "audio", "j1.mp3") {
		t.Fatalf("AudioPath = %s", got)
	}
	if got := ClipFilename(3); got != "clip_003.mp4" {
		t.Fatalf("ClipFilename = %s", got)
	}
	if got := l.ClipPath("j1", "../../etc/passwd"); got != filepath.Join("/data", "clips", "j1", "passwd") {
		t.Fatalf("ClipPath escaped the layout: %s", got)
	}
	if got := l.JobClipsDir(".."); got != filepath.Join("/data", "clips", "_") {
		t.Fatalf("JobClipsDir(..) = %s", got)
	}
}

func TestImportUpload(t *testing.T) {
	l := NewLayout(t.TempDir())
	if err := l.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	upload := l.TempUploadPath("Talk.MOV")
	if filepath.Ext(upload) != ".mov" {
		t.Fatalf("temp upload ext = %s", filepath.Ext(upload))
	}
	if err := os.WriteFile(upload, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, err := l.ImportUpload(upload, "job-9", "Talk.MOV")
	if err != nil {
		t.Fatalf("ImportUpload: %v", err)
	}
	if dest != l.VideoPath("job-9", ".mov") {
		t.Fatalf("dest = %s", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("imported content = %q, %v", data, err)
	}
	if Exists(upload) {
		t.Fatal("temp upload should be removed after import")
	}

	if _, err := l.ImportUpload(filepath.Join(l.TempDir(), "gone.mp4"), "job-10", "gone.mp4"); err == nil {
		t.Fatal("expected error for missing upload")
	}
}

func TestImportUploadKeepsCopyWhenTempRemovalFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	l := NewLayout(t.TempDir())
	if err := l.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	lockedDir := filepath.Join(t.TempDir(), "locked")
	if err := os.Mkdir(lockedDir, 0755); err != nil {
		t.Fatal(err)
	}
	upload := filepath.Join(lockedDir, "talk.mp4")
	if err := os.WriteFile(upload, []byte("video-bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(lockedDir, 0555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(lockedDir, 0755)

	dest, err := l.ImportUpload(upload, "job-11", "talk.mp4")
	if err != nil {
		t.Fatalf("ImportUpload: %v", err)
	}
	if !Exists(dest) || !Exists(upload) {
		t.Fatalf("dest exists = %v, upload exists = %v", Exists(dest), Exists(upload))
	}
}
