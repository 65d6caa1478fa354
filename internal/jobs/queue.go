// Package jobs decouples "a scrape should happen" from "a scrape is
// executing": a scheduler enqueues jobs, workers claim and complete them.
package jobs

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
)

// Job is one unit of scheduled ingestion work. Status transitions are
// monotonic: a claimed job never returns to PENDING.
type Job struct {
	ID         string         `json:"id"`
	Target     string         `json:"target"`
	Params     map[string]any `json:"params,omitempty"`
	Status     Status         `json:"status"`
	ClaimedBy  string         `json:"claimed_by,omitempty"`
	Details    string         `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

var (
	// ErrNoJob means the pending set is empty; not a failure.
	ErrNoJob = errors.New("no job available")
	// ErrNotClaimable is returned by Complete when the job is not
	// IN_PROGRESS (already finished, or never claimed).
	ErrNotClaimable = errors.New("job is not in progress")
	ErrJobNotFound  = errors.New("job not found")
)

// Queue tracks the job lifecycle. ClaimNext must be atomic: at most one
// worker holds a claim on a given job.
type Queue interface {
	Enqueue(ctx context.Context, target string, params map[string]any) (*Job, error)
	ClaimNext(ctx context.Context, workerID string) (*Job, error)
	Complete(ctx context.Context, jobID string, success bool, details string) error
	Get(ctx context.Context, jobID string) (*Job, error)
	PendingCount(ctx context.Context) (int, error)

	// FailStale sweeps jobs left IN_PROGRESS beyond the lease to FAILED.
	// Failing rather than re-pending keeps the status machine monotonic;
	// re-enqueueing is the scheduler's decision.
	FailStale(ctx context.Context, lease time.Duration) (int, error)
}
