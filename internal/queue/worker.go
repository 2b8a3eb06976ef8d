package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/codebuildervaibhav/highlight-clips/internal/errs"
	"github.com/codebuildervaibhav/highlight-clips/internal/events"
	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// ErrQueueFull is returned by Enqueue when every slot is taken
var ErrQueueFull = errors.New("job queue is full")

// ErrStopped is returned by Enqueue after Stop
var ErrStopped = errors.New("worker pool stopped")

// Processor runs one job to a terminal state
type Processor interface {
	Process(ctx context.Context, jobID string) (types.ClipJob, error)
}

// FailureRecorder marks a job as failed when processing panics
type FailureRecorder interface {
	Update(ctx context.Context, id string, update types.JobUpdate) (types.ClipJob, error)
}

// Publisher announces the failure recorded for a panicked job
type Publisher interface {
	Publish(event events.Event) events.Event
}

// WorkerPool runs submitted jobs on a fixed number of workers behind a
// bounded queue
type WorkerPool struct {
	jobQueue    chan string
	workerCount int
	processor   Processor
	failures    FailureRecorder
	events      Publisher

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a pool; nothing runs until Start
func NewWorkerPool(workerCount, queueSize int, processor Processor, failures FailureRecorder) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue:    make(chan string, queueSize),
		workerCount: workerCount,
		processor:   processor,
		failures:    failures,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// WithEvents makes panic recovery publish the terminal failure, so status
// subscribers see the job end
func (wp *WorkerPool) WithEvents(pub Publisher) *WorkerPool {
	wp.events = pub
	return wp
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	slog.Info("starting worker pool", "workers", wp.workerCount, "queue_size", cap(wp.jobQueue))
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Enqueue hands a job to the pool without blocking
func (wp *WorkerPool) Enqueue(jobID string) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return ErrStopped
	}

	select {
	case wp.jobQueue <- jobID:
		slog.Info("job enqueued", "job_id", jobID, "queued", len(wp.jobQueue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop stops accepting jobs, lets workers drain the queue, and waits for
// them. If ctx expires first, in-flight jobs are cancelled.
func (wp *WorkerPool) Stop(ctx context.Context) error {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobQueue)
	}
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	slog.Debug("worker started", "worker", id)

	for jobID := range wp.jobQueue {
		wp.run(id, jobID)
	}
}

func (wp *WorkerPool) run(workerID int, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic processing job", "worker", workerID, "job_id", jobID,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			wp.recordPanic(jobID)
		}
	}()

	slog.Info("processing job", "worker", workerID, "job_id", jobID)
	if _, err := wp.processor.Process(wp.ctx, jobID); err != nil {
		// already sanitized and stored on the job
		slog.Warn("job finished with error", "worker", workerID, "job_id", jobID, "error", err)
	}
}

func (wp *WorkerPool) recordPanic(jobID string) {
	if wp.failures == nil {
		return
	}
	job, err := wp.failures.Update(context.Background(), jobID, types.Failed(errs.MsgUnknown))
	if err != nil {
		slog.Error("failed to record panic", "job_id", jobID, "error", err)
		return
	}
	if wp.events != nil {
		wp.events.Publish(events.Event{
			JobID:    jobID,
			Status:   job.Status,
			Progress: job.Progress,
			Message:  errs.MsgUnknown,
		})
	}
}
