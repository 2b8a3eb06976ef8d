package events

import (
	"sync"
	"time"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// Event is one persisted job transition, sequenced across all jobs.
type Event struct {
	Seq       int64        `json:"seq"`
	Timestamp time.Time    `json:"timestamp"`
	JobID     string       `json:"jobId"`
	Status    types.Status `json:"status"`
	Progress  int          `json:"progress"`
	Message   string       `json:"message,omitempty"`
}

// Bus stores recent events and provides incremental reads.
type Bus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
	changed   chan struct{}
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
		changed:   make(chan struct{}),
	}
}

// Publish appends one event, assigns sequence and timestamp, and wakes waiters.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	close(b.changed)
	b.changed = make(chan struct{})
	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	return b.SinceJob("", seq)
}

// SinceJob returns one job's events with sequence greater than seq.
// An empty jobID matches every job.
func (b *Bus) SinceJob(jobID string, seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq && (jobID == "" || event.JobID == jobID) {
			out = append(out, event)
		}
	}
	return out
}

// Seq returns the sequence of the latest published event.
func (b *Bus) Seq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

// Changed returns a channel closed on the next Publish.
func (b *Bus) Changed() <-chan struct{} {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changed
}
