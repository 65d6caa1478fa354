package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sneakwatch/go-release-pipeline/internal/adapters"
	"github.com/sneakwatch/go-release-pipeline/internal/ingest"
	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/obs"
)

// Worker claims jobs, invokes the source adapter, feeds the results through
// the ingest pipeline, and reports completion. The queue only tracks
// lifecycle; all execution happens here.
type Worker struct {
	ID     string
	Queue  Queue
	Source adapters.Source
	Ingest *ingest.Service
	Poll   time.Duration
}

// Run claims and executes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	poll := w.Poll
	if poll <= 0 {
		poll = 5 * time.Second
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		job, err := w.Queue.ClaimNext(ctx, w.ID)
		switch {
		case err == nil:
			w.execute(ctx, job)
			continue // drain the pending set before sleeping
		case err == ErrNoJob:
		default:
			obs.Logger.Error("claim failed", "worker", w.ID, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(poll):
		}
	}
}

// execute runs one claimed job. Every failure path reports through
// Complete(success=false) so the job cannot strand in IN_PROGRESS; the
// lease reaper catches a worker that dies mid-job anyway.
func (w *Worker) execute(ctx context.Context, job *Job) {
	defer func() {
		if r := recover(); r != nil {
			_ = w.Queue.Complete(ctx, job.ID, false, fmt.Sprintf("panic: %v", r))
		}
	}()

	records, err := w.Source.Fetch(ctx, job.Target, job.Params)
	if err != nil {
		if cerr := w.Queue.Complete(ctx, job.ID, false, err.Error()); cerr != nil {
			obs.Logger.Error("complete failed", "job", job.ID, "err", cerr)
		}
		return
	}

	sum := w.Ingest.Run(ctx, job.Target, records, job.ID)
	if err := w.Queue.Complete(ctx, job.ID, true, string(kafkax.MustMarshal(sum))); err != nil {
		obs.Logger.Error("complete failed", "job", job.ID, "err", err)
	}
	obs.Logger.Info("job done", "job", job.ID, "worker", w.ID, "target", job.Target,
		"found", sum.Found, "new", sum.New, "updated", sum.Updated, "errors", sum.Errors)
}

// RunReaper periodically sweeps orphaned IN_PROGRESS jobs to FAILED once
// their lease has expired.
func RunReaper(ctx context.Context, q Queue, lease time.Duration) {
	interval := lease / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := q.FailStale(ctx, lease)
			if err != nil {
				obs.Logger.Error("reaper sweep failed", "err", err)
				continue
			}
			if n > 0 {
				obs.Logger.Warn("reaped stale jobs", "count", n, "lease", lease.String())
			}
		}
	}
}
