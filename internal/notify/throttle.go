package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sneakwatch/go-release-pipeline/internal/redisx"
)

// Throttle gates successive notifications of the same (user, rule type).
// Allow reserves the window as a side effect when it returns true.
type Throttle interface {
	Allow(ctx context.Context, userID, ruleType string, window time.Duration) (bool, error)
}

// RedisThrottle reserves windows with SET NX PX, so the check and the
// reservation are one atomic operation across notifier instances.
type RedisThrottle struct{ Client *redis.Client }

func (t *RedisThrottle) Allow(ctx context.Context, userID, ruleType string, window time.Duration) (bool, error) {
	key := fmt.Sprintf(redisx.KeyThrottle, userID, ruleType)
	return t.Client.SetNX(ctx, key, "1", window).Result()
}

// MemoryThrottle is the in-process equivalent for tests and single-node
// setups.
type MemoryThrottle struct {
	mu   sync.Mutex
	last map[string]time.Time

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryThrottle() *MemoryThrottle {
	return &MemoryThrottle{last: make(map[string]time.Time)}
}

func (t *MemoryThrottle) Allow(_ context.Context, userID, ruleType string, window time.Duration) (bool, error) {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	key := userID + ":" + ruleType
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.last[key]; ok && now.Sub(prev) < window {
		return false, nil
	}
	t.last[key] = now
	return true, nil
}
