package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/storage"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

func TestProcessCancelledBeforeLoadFailsJob(t *testing.T) {
	h := newHarness(t)
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()
	h.deps.Store = store

	job, err := store.Create(context.Background(), types.NewJob{SourceType: types.SourceURL, SourceURL: "https://youtu.be/x"})
	if err != nil {
		t.Fatal(err)
	}

	// a pool draining on shutdown hands out an already cancelled ctx
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(h.deps).Process(ctx, job.ID)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Kind != errs.KindInterrupted || perr.Message != errs.MsgInterrupted {
		t.Fatalf("err = %v, want interrupted failure", err)
	}

	stored, err := store.Get(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != types.StatusError || stored.Error != errs.MsgInterrupted {
		t.Fatalf("stored job = %+v, want error status", stored)
	}

	got := h.bus.SinceJob(job.ID, 0)
	if len(got) != 1 || !got[0].Status.IsTerminal() || got[0].Message != errs.MsgInterrupted {
		t.Fatalf("events = %+v, want one terminal event", got)
	}
}

func TestProcessCancelledMidRunIsInterrupted(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.deps.Transcriber = blockingTranscriber{}
	h.transcoder.probeFn = func(context.Context) error {
		cancel()
		return nil
	}
	job := h.submitURL(t)

	_, err := New(h.deps).Process(ctx, job.ID)
	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Kind != errs.KindInterrupted {
		t.Fatalf("err = %v, want interrupted failure", err)
	}
	stored, _ := h.store.Get(context.Background(), job.ID)
	if stored.Status != types.StatusError || stored.Error != errs.MsgInterrupted {
		t.Fatalf("stored job = %+v", stored)
	}
}

type recoveryJobs struct {
	pending, downloading, complete, failed types.ClipJob
}

func seedRecoveryJobs(t *testing.T, store storage.JobStore) recoveryJobs {
	t.Helper()
	ctx := context.Background()
	create := func(update *types.JobUpdate) types.ClipJob {
		job, err := store.Create(ctx, types.NewJob{SourceType: types.SourceURL, SourceURL: "https://youtu.be/x"})
		if err != nil {
			t.Fatal(err)
		}
		if update != nil {
			if job, err = store.Update(ctx, job.ID, *update); err != nil {
				t.Fatal(err)
			}
		}
		return job
	}
	downloading := types.Stage(types.StatusDownloading, ProgressDownloading)
	complete := types.Stage(types.StatusComplete, 100)
	failed := types.Failed(errs.MsgAcquisition)
	return recoveryJobs{
		pending:     create(nil),
		downloading: create(&downloading),
		complete:    create(&complete),
		failed:      create(&failed),
	}
}

func TestRecoverInterrupted(t *testing.T) {
	store := storage.NewMemoryStore()
	bus := events.NewBus(10)
	jobs := seedRecoveryJobs(t, store)

	var requeued []string
	rec, err := RecoverInterrupted(context.Background(), store, bus, func(jobID string) error {
		requeued = append(requeued, jobID)
		return nil
	})
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if rec.Requeued != 1 || rec.Failed != 1 {
		t.Fatalf("recovery = %+v", rec)
	}
	if len(requeued) != 1 || requeued[0] != jobs.pending.ID {
		t.Fatalf("requeued = %v, want the pending job", requeued)
	}

	ctx := context.Background()
	got, _ := store.Get(ctx, jobs.pending.ID)
	if got.Status != types.StatusPending {
		t.Fatalf("pending job = %+v", got)
	}
	got, _ = store.Get(ctx, jobs.downloading.ID)
	if got.Status != types.StatusError || got.Error != errs.MsgInterrupted {
		t.Fatalf("interrupted job = %+v", got)
	}
	if e := bus.SinceJob(jobs.downloading.ID, 0); len(e) != 1 || e[0].Status != types.StatusError {
		t.Fatalf("events = %+v, want one terminal event", e)
	}

	got, _ = store.Get(ctx, jobs.complete.ID)
	if got.Status != types.StatusComplete {
		t.Fatalf("complete job touched: %+v", got)
	}
	got, _ = store.Get(ctx, jobs.failed.ID)
	if got.Error != errs.MsgAcquisition {
		t.Fatalf("failed job touched: %+v", got)
	}
	if n := len(bus.Since(0)); n != 1 {
		t.Fatalf("published %d events, want 1", n)
	}
}

func TestRecoverInterruptedFailsUnqueueablePending(t *testing.T) {
	store := storage.NewMemoryStore()
	jobs := seedRecoveryJobs(t, store)

	rec, err := RecoverInterrupted(context.Background(), store, nil, func(string) error {
		return errors.New("job queue is full")
	})
	if err != nil {
		t.Fatalf("RecoverInterrupted: %v", err)
	}
	if rec.Requeued != 0 || rec.Failed != 2 {
		t.Fatalf("recovery = %+v", rec)
	}
	got, _ := store.Get(context.Background(), jobs.pending.ID)
	if got.Status != types.StatusError || got.Error != errs.MsgInterrupted {
		t.Fatalf("pending job = %+v", got)
	}
}
