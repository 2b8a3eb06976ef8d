package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

type fakeProcessor struct {
	mu    sync.Mutex
	seen  []string
	block chan struct{}
	fn    func(jobID string)
}

func (f *fakeProcessor) Process(ctx context.Context, jobID string) (types.ClipJob, error) {
	if f.block != nil {
		<-f.block
	}
	if f.fn != nil {
		f.fn(jobID)
	}
	f.mu.Lock()
	f.seen = append(f.seen, jobID)
	f.mu.Unlock()
	return types.ClipJob{ID: jobID, Status: types.StatusComplete}, nil
}

func (f *fakeProcessor) processed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.seen...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	updates map[string]types.JobUpdate
}

func (f *fakeRecorder) Update(ctx context.Context, id string, update types.JobUpdate) (types.ClipJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updates == nil {
		f.updates = map[string]types.JobUpdate{}
	}
	f.updates[id] = update
	return types.ClipJob{ID: id, Status: types.StatusExtracting, Progress: 25}.Apply(update, time.Now()), nil
}

func TestWorkerPoolProcessesJobs(t *testing.T) {
	proc := &fakeProcessor{}
	wp := NewWorkerPool(2, 10, proc, nil)
	wp.Start()

	for _, id := range []string{"a", "b", "c"} {
		if err := wp.Enqueue(id); err != nil {
			t.Fatalf("Enqueue(%s): %v", id, err)
		}
	}

	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := proc.processed(); len(got) != 3 {
		t.Fatalf("processed = %v, want 3 jobs", got)
	}
	if err := wp.Enqueue("d"); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue after stop err = %v", err)
	}
}

func TestWorkerPoolQueueFull(t *testing.T) {
	proc := &fakeProcessor{block: make(chan struct{})}
	wp := NewWorkerPool(1, 1, proc, nil)
	wp.Start()

	if err := wp.Enqueue("running"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// wait until the worker has taken the first job off the queue
	deadline := time.Now().Add(2 * time.Second)
	for len(wp.jobQueue) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := wp.Enqueue("queued"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := wp.Enqueue("rejected"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err = %v, want ErrQueueFull", err)
	}

	close(proc.block)
	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := proc.processed(); len(got) != 2 {
		t.Fatalf("processed = %v", got)
	}
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	proc := &fakeProcessor{fn: func(jobID string) {
		if jobID == "bad" {
			panic("boom")
		}
	}}
	rec := &fakeRecorder{}
	wp := NewWorkerPool(1, 4, proc, rec)
	wp.Start()

	wp.Enqueue("bad")
	wp.Enqueue("good")
	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := proc.processed(); len(got) != 1 || got[0] != "good" {
		t.Fatalf("processed = %v, worker should survive the panic", got)
	}
	u, ok := rec.updates["bad"]
	if !ok || u.Status == nil || *u.Status != types.StatusError || *u.Error != errs.MsgUnknown {
		t.Fatalf("panic not recorded: %+v", u)
	}
}

func TestWorkerPoolPanicPublishesTerminalEvent(t *testing.T) {
	proc := &fakeProcessor{fn: func(jobID string) { panic("boom") }}
	bus := events.NewBus(10)
	wp := NewWorkerPool(1, 1, proc, &fakeRecorder{}).WithEvents(bus)
	wp.Start()

	wp.Enqueue("bad")
	if err := wp.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := bus.SinceJob("bad", 0)
	if len(got) != 1 {
		t.Fatalf("events = %+v, want one terminal event", got)
	}
	if e := got[0]; e.Status != types.StatusError || !e.Status.IsTerminal() || e.Message != errs.MsgUnknown || e.Progress != 25 {
		t.Fatalf("event = %+v", e)
	}
}

func TestWorkerPoolStopTimeoutCancelsJobs(t *testing.T) {
	started := make(chan struct{})
	wp := NewWorkerPool(1, 1, processorFunc(func(ctx context.Context, jobID string) (types.ClipJob, error) {
		close(started)
		<-ctx.Done()
		return types.ClipJob{}, ctx.Err()
	}), nil)
	wp.Start()
	wp.Enqueue("slow")
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := wp.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop err = %v", err)
	}
}

type processorFunc func(ctx context.Context, jobID string) (types.ClipJob, error)

func (f processorFunc) Process(ctx context.Context, jobID string) (types.ClipJob, error) {
	return f(ctx, jobID)
}
