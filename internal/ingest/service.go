// Package ingest runs the normalization, deduplication, and snapshot-diff
// pipeline over batches of raw adapter records.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/sneakwatch/go-release-pipeline/internal/kafka"
	"github.com/sneakwatch/go-release-pipeline/internal/normalize"
	"github.com/sneakwatch/go-release-pipeline/internal/obs"
	"github.com/sneakwatch/go-release-pipeline/internal/redisx"
	"github.com/sneakwatch/go-release-pipeline/internal/releases"
)

// ReleaseStore is the slice of the canonical store the pipeline writes to.
type ReleaseStore interface {
	Upsert(ctx context.Context, d *releases.Release) (releases.UpsertOutcome, error)
	RecordStock(ctx context.Context, releaseID string, stock releases.StockMap) (bool, error)
}

// Publisher emits mutation events; satisfied by kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Summary is the batch-level accounting returned to the caller. A single
// bad record degrades completeness, not availability.
type Summary struct {
	Found      int      `json:"found"`
	New        int      `json:"new"`
	Updated    int      `json:"updated"`
	Duplicates int      `json:"duplicates"`
	Errors     int      `json:"errors"`
	ErrorList  []string `json:"error_list,omitempty"`
}

type Service struct {
	Store       ReleaseStore
	Producer    Publisher
	Redis       *redis.Client // optional read-cache refresh
	ServiceName string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Run processes one source-adapter batch. Records are handled in order;
// each failure is counted and the rest of the batch continues.
func (s *Service) Run(ctx context.Context, retailerID string, records []normalize.RawRecord, traceID string) Summary {
	sum := Summary{Found: len(records)}
	for _, raw := range records {
		draft, err := normalize.Record(retailerID, raw)
		if err != nil {
			sum.Errors++
			sum.ErrorList = append(sum.ErrorList, err.Error())
			continue
		}
		if err := s.ingestOne(ctx, draft, traceID, &sum); err != nil {
			sum.Errors++
			sum.ErrorList = append(sum.ErrorList, fmt.Sprintf("%s/%s: %v", retailerID, draft.SKU, err))
		}
	}
	obs.Logger.Info("batch ingested",
		"retailer", retailerID, "found", sum.Found, "new", sum.New,
		"updated", sum.Updated, "duplicates", sum.Duplicates, "errors", sum.Errors)
	return sum
}

func (s *Service) ingestOne(ctx context.Context, draft *releases.Release, traceID string, sum *Summary) error {
	out, err := s.Store.Upsert(ctx, draft)
	if err != nil {
		return err
	}

	switch out.Result {
	case releases.ResultNew:
		sum.New++
		s.publish(releases.EventNewRelease, draft, out, traceID)
	case releases.ResultUpdated:
		sum.Updated++
		if out.OldStatus != draft.Status {
			s.publish(releases.EventStatusChange, draft, out, traceID)
		}
		if !floatEq(out.OldPrice, draft.Price) {
			s.publish(releases.EventPriceChange, draft, out, traceID)
		}
		if !timeEq(out.OldReleaseDate, draft.ReleaseDate) {
			s.publish(releases.EventReleaseDateChange, draft, out, traceID)
		}
	case releases.ResultDuplicate:
		sum.Duplicates++
	}
	if s.Redis != nil && out.Result != releases.ResultDuplicate {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyRelease, out.ReleaseID)).Err()
	}

	if draft.LiveStock != nil {
		changed, err := s.Store.RecordStock(ctx, out.ReleaseID, draft.LiveStock)
		if err != nil {
			return err
		}
		if changed {
			s.publish(releases.EventStockChange, draft, out, traceID)
			if s.Redis != nil {
				key := fmt.Sprintf(redisx.KeyLiveStock, out.ReleaseID)
				_ = s.Redis.Set(ctx, key, kafkax.MustMarshal(draft.LiveStock), redisx.TTLLiveStock).Err()
			}
		}
	}
	return nil
}

func (s *Service) publish(eventType string, draft *releases.Release, out releases.UpsertOutcome, traceID string) {
	if s.Producer == nil {
		return
	}
	payload := releases.MutationPayload{
		ReleaseID:   out.ReleaseID,
		SKU:         draft.SKU,
		RetailerID:  draft.RetailerID,
		Name:        draft.Name,
		Brand:       draft.Brand,
		Status:      draft.Status,
		Price:       draft.Price,
		ReleaseDate: draft.ReleaseDate,
	}
	switch eventType {
	case releases.EventStatusChange:
		payload.OldStatus = out.OldStatus
	case releases.EventPriceChange:
		payload.OldPrice = out.OldPrice
	case releases.EventReleaseDateChange:
		payload.OldReleaseDate = out.OldReleaseDate
	case releases.EventStockChange:
		payload.Stock = draft.LiveStock
	}

	ev := releases.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		TraceID:       traceID,
		CorrelationID: out.ReleaseID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.Producer.Publish(releases.PartitionKey(out.ReleaseID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timeEq(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
