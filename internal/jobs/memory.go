package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue is a mutex-guarded in-process queue with the same lifecycle
// semantics as PGQueue. Used in tests and single-process setups.
type MemoryQueue struct {
	mu   sync.Mutex
	jobs map[string]*Job
	// order holds job IDs in enqueue order; claims scan it front to back.
	order []string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{jobs: make(map[string]*Job)}
}

func (q *MemoryQueue) now() time.Time {
	if q.Now != nil {
		return q.Now()
	}
	return time.Now().UTC()
}

func (q *MemoryQueue) Enqueue(_ context.Context, target string, params map[string]any) (*Job, error) {
	if params == nil {
		params = map[string]any{}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	j := &Job{
		ID:        uuid.NewString(),
		Target:    target,
		Params:    params,
		Status:    StatusPending,
		CreatedAt: q.now(),
	}
	q.jobs[j.ID] = j
	q.order = append(q.order, j.ID)
	copied := *j
	return &copied, nil
}

func (q *MemoryQueue) ClaimNext(_ context.Context, workerID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range q.order {
		j := q.jobs[id]
		if j.Status != StatusPending {
			continue
		}
		now := q.now()
		j.Status = StatusInProgress
		j.ClaimedBy = workerID
		j.StartedAt = &now
		copied := *j
		return &copied, nil
	}
	return nil, ErrNoJob
}

func (q *MemoryQueue) Complete(_ context.Context, jobID string, success bool, details string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.Status != StatusInProgress {
		return ErrNotClaimable
	}
	now := q.now()
	j.FinishedAt = &now
	if success {
		j.Status = StatusDone
		j.Details = details
	} else {
		j.Status = StatusFailed
		j.Error = details
	}
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, jobID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	copied := *j
	return &copied, nil
}

func (q *MemoryQueue) PendingCount(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, j := range q.jobs {
		if j.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

func (q *MemoryQueue) FailStale(_ context.Context, lease time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-lease)
	n := 0
	for _, j := range q.jobs {
		if j.Status == StatusInProgress && j.StartedAt != nil && j.StartedAt.Before(cutoff) {
			now := q.now()
			j.Status = StatusFailed
			j.Error = "lease expired"
			j.FinishedAt = &now
			n++
		}
	}
	return n, nil
}
