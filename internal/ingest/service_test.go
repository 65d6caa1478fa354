package ingest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []releases.Envelope
}

func (p *capturingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	var env releases.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.events = append(p.events, env)
	p.mu.Unlock()
}

func (p *capturingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType)
	}
	return out
}

func newService() (*Service, *releases.MemoryStore, *capturingPublisher) {
	st := releases.NewMemoryStore()
	pub := &capturingPublisher{}
	return &Service{Store: st, Producer: pub, ServiceName: "test-api"}, st, pub
}

func TestRunStatusChangeScenario(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newService()

	raw := normalize.RawRecord{
		"sku": "ABC123", "name": "Dunk Low", "brand": "nike",
		"status": "upcoming", "price": 120.0,
	}

	sum := svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "t1")
	require.Equal(t, Summary{Found: 1, New: 1}, sum)
	require.Equal(t, []string{releases.EventNewRelease}, pub.types())

	stored, err := st.GetByKey(ctx, "nike", "ABC123")
	require.NoError(t, err)
	require.Equal(t, releases.StatusUpcoming, stored.Status)

	// re-ingest with status LIVE: UPDATED plus a STATUS_CHANGE event
	raw["status"] = "live"
	sum = svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "t2")
	require.Equal(t, Summary{Found: 1, Updated: 1}, sum)
	require.Equal(t, []string{releases.EventNewRelease, releases.EventStatusChange}, pub.types())

	last := pub.events[len(pub.events)-1]
	payload, err := unwrap(last)
	require.NoError(t, err)
	require.Equal(t, releases.StatusLive, payload.Status)
	require.Equal(t, releases.StatusUpcoming, payload.OldStatus)
}

func unwrap(env releases.Envelope) (releases.MutationPayload, error) {
	var p releases.MutationPayload
	err := json.Unmarshal(env.Payload, &p)
	return p, err
}

func TestRunIdempotentReingest(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService()

	raw := normalize.RawRecord{"sku": "ABC123", "name": "Dunk Low", "status": "upcoming"}
	sum := svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "")
	require.Equal(t, 1, sum.New)

	sum = svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "")
	require.Equal(t, Summary{Found: 1, Duplicates: 1}, sum)
	// no event for a duplicate
	require.Len(t, pub.types(), 1)
}

func TestRunEmitsPerChangedField(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService()

	sum := svc.Run(ctx, "nike", []normalize.RawRecord{{
		"sku": "ABC123", "name": "Dunk Low", "status": "upcoming", "price": 120.0,
	}}, "")
	require.Equal(t, 1, sum.New)

	// status and price both change in a single update: two events
	sum = svc.Run(ctx, "nike", []normalize.RawRecord{{
		"sku": "ABC123", "name": "Dunk Low", "status": "live", "price": 130.0,
	}}, "")
	require.Equal(t, 1, sum.Updated)
	require.Equal(t, []string{
		releases.EventNewRelease,
		releases.EventStatusChange,
		releases.EventPriceChange,
	}, pub.types())
}

func TestRunStockChange(t *testing.T) {
	ctx := context.Background()
	svc, st, pub := newService()

	raw := normalize.RawRecord{
		"sku": "ABC123", "name": "Dunk Low", "status": "live",
		"stock": map[string]any{"US 9": map[string]any{"total": 10.0, "available": 4.0}},
	}
	sum := svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "")
	require.Equal(t, 1, sum.New)
	require.Equal(t, []string{releases.EventNewRelease, releases.EventStockChange}, pub.types())

	// identical reading on the next poll: DUPLICATE upsert, snapshot suppressed
	sum = svc.Run(ctx, "nike", []normalize.RawRecord{raw}, "")
	require.Equal(t, 1, sum.Duplicates)
	require.Len(t, pub.types(), 2)

	id := releases.DeriveID("nike", "ABC123")
	require.Len(t, st.Snapshots(id), 1)
}

func TestRunSKULessRecordsStayDistinct(t *testing.T) {
	ctx := context.Background()
	svc, st, _ := newService()

	sum := svc.Run(ctx, "kith", []normalize.RawRecord{
		{"name": "Air Max 95 OG", "status": "upcoming"},
		{"name": "Clyde All-Pro", "status": "upcoming"},
	}, "")
	require.Equal(t, Summary{Found: 2, New: 2}, sum)
	require.Equal(t, 2, st.Len())

	// re-ingesting one of them targets its own row, not its neighbour's
	sum = svc.Run(ctx, "kith", []normalize.RawRecord{
		{"name": "Air Max 95 OG", "status": "live"},
	}, "")
	require.Equal(t, Summary{Found: 1, Updated: 1}, sum)
	require.Equal(t, 2, st.Len())
}

func TestRunBadRecordDoesNotAbortBatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService()

	sum := svc.Run(ctx, "nike", []normalize.RawRecord{
		{"price": 120.0}, // no identity: rejected
		{"sku": "GOOD1", "name": "Air Max 95", "status": "upcoming"},
		{"sku": "GOOD2", "name": "Air Max 97", "status": "upcoming"},
	}, "")
	require.Equal(t, 3, sum.Found)
	require.Equal(t, 2, sum.New)
	require.Equal(t, 1, sum.Errors)
	require.Len(t, sum.ErrorList, 1)
}

type failingStore struct{ *releases.MemoryStore }

func (f failingStore) Upsert(ctx context.Context, d *releases.Release) (releases.UpsertOutcome, error) {
	if d.SKU == "BOOM" {
		return releases.UpsertOutcome{}, context.DeadlineExceeded
	}
	return f.MemoryStore.Upsert(ctx, d)
}

func TestRunStoreErrorCountedPerRecord(t *testing.T) {
	ctx := context.Background()
	st := releases.NewMemoryStore()
	svc := &Service{Store: failingStore{st}, ServiceName: "test-api"}

	sum := svc.Run(ctx, "nike", []normalize.RawRecord{
		{"sku": "BOOM", "name": "Broken"},
		{"sku": "OK1", "name": "Fine", "status": "live"},
	}, "")
	require.Equal(t, 1, sum.Errors)
	require.Equal(t, 1, sum.New)
}
