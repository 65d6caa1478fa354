package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sneakwatch/go-release-pipeline/internal/ingest"
	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

type fakeSource struct {
	records []normalize.RawRecord
	err     error
}

func (f fakeSource) Fetch(_ context.Context, _ string, _ map[string]any) ([]normalize.RawRecord, error) {
	return f.records, f.err
}

func TestWorkerExecutesJob(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	st := releases.NewMemoryStore()

	w := &Worker{
		ID:    "w1",
		Queue: q,
		Source: fakeSource{records: []normalize.RawRecord{
			{"sku": "ABC123", "name": "Dunk Low", "status": "live", "price": 120.0},
			{"sku": "DEF456", "name": "Air Max", "status": "upcoming"},
		}},
		Ingest: &ingest.Service{Store: st, ServiceName: "test-worker"},
	}

	job, err := q.Enqueue(ctx, "nike", nil)
	require.NoError(t, err)
	claimed, err := q.ClaimNext(ctx, w.ID)
	require.NoError(t, err)
	w.execute(ctx, claimed)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDone, got.Status)

	var sum ingest.Summary
	require.NoError(t, json.Unmarshal([]byte(got.Details), &sum))
	require.Equal(t, 2, sum.New)

	_, err = st.GetByKey(ctx, "nike", "ABC123")
	require.NoError(t, err)
}

func TestWorkerReportsFetchFailure(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()

	w := &Worker{
		ID:     "w1",
		Queue:  q,
		Source: fakeSource{err: errors.New("fetch nike: status 503")},
		Ingest: &ingest.Service{Store: releases.NewMemoryStore()},
	}

	job, err := q.Enqueue(ctx, "nike", nil)
	require.NoError(t, err)
	claimed, err := q.ClaimNext(ctx, w.ID)
	require.NoError(t, err)
	w.execute(ctx, claimed)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "fetch nike: status 503", got.Error)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewMemoryQueue()
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(ctx, "nike", nil)
		require.NoError(t, err)
	}

	w := &Worker{ID: "w1", Queue: q, Source: fakeSource{},
		Ingest: &ingest.Service{Store: releases.NewMemoryStore()}}

	// a cancelled context stops the loop instead of draining the backlog
	cancel()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		w.Run(ctx)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}

	n, err := q.PendingCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

type panickySource struct{}

func (panickySource) Fetch(context.Context, string, map[string]any) ([]normalize.RawRecord, error) {
	panic("adapter blew up")
}

func TestWorkerRecoversPanic(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQueue()
	w := &Worker{ID: "w1", Queue: q, Source: panickySource{},
		Ingest: &ingest.Service{Store: releases.NewMemoryStore()}}

	job, err := q.Enqueue(ctx, "nike", nil)
	require.NoError(t, err)
	claimed, err := q.ClaimNext(ctx, w.ID)
	require.NoError(t, err)
	w.execute(ctx, claimed)

	got, err := q.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Contains(t, got.Error, "panic")
}
