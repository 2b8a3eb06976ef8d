package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

type nowFunc func() time.Time

// record guards one job so updates to different jobs never contend
type record struct {
	mu  sync.RWMutex
	job types.ClipJob
}

// MemoryStore keeps jobs in process memory
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*record
	now  nowFunc
}

// NewMemoryStore creates an empty in-memory job store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a fresh pending job under a new id
func (s *MemoryStore) Create(_ context.Context, job types.NewJob) (types.ClipJob, error) {
	rec := &record{job: newRecord(uuid.New().String(), job, s.now)}

	s.mu.Lock()
	s.jobs[rec.job.ID] = rec
	s.mu.Unlock()

	return rec.job.Clone(), nil
}

// Get returns a snapshot of the job
func (s *MemoryStore) Get(_ context.Context, id string) (types.ClipJob, error) {
	rec, ok := s.lookup(id)
	if !ok {
		return types.ClipJob{}, jobNotFound(id)
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()
	return rec.job.Clone(), nil
}

// Update merges the present fields of update into the job and returns the result
func (s *MemoryStore) Update(_ context.Context, id string, update types.JobUpdate) (types.ClipJob, error) {
	rec, ok := s.lookup(id)
	if !ok {
		return types.ClipJob{}, jobNotFound(id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.job = rec.job.Apply(update, s.now())
	return rec.job.Clone(), nil
}

// GetClip finds one clip of a job
func (s *MemoryStore) GetClip(ctx context.Context, jobID, clipID string) (types.Clip, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return types.Clip{}, err
	}
	clip, ok := job.FindClip(clipID)
	if !ok {
		return types.Clip{}, clipNotFound(jobID, clipID)
	}
	return clip, nil
}

// List returns up to limit jobs, newest first
func (s *MemoryStore) List(_ context.Context, limit int) ([]types.ClipJob, error) {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.jobs))
	for _, rec := range s.jobs {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	jobs := make([]types.ClipJob, 0, len(recs))
	for _, rec := range recs {
		rec.mu.RLock()
		jobs = append(jobs, rec.job.Clone())
		rec.mu.RUnlock()
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) lookup(id string) (*record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	return rec, ok
}
