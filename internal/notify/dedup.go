package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/sneakwatch/go-release-pipeline/internal/redisx"
)

// Deduper remembers which event IDs were fully processed, so a broker
// redelivery of the same event is not dispatched twice. Mark is called only
// after evaluation succeeds; an event that failed mid-way stays unmarked and
// the redelivery gets another attempt.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisDeduper shares processed-event state across notifier instances.
type RedisDeduper struct {
	Client  *redis.Client
	Service string
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	return redisx.Exists(ctx, d.Client, fmt.Sprintf(redisx.KeyDedup, d.Service, eventID))
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	key := fmt.Sprintf(redisx.KeyDedup, d.Service, eventID)
	return d.Client.Set(ctx, key, "1", redisx.TTLDedup).Err()
}

// MemoryDeduper is the in-process equivalent for tests and single-node
// setups.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]struct{})}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *MemoryDeduper) Mark(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[eventID] = struct{}{}
	return nil
}
