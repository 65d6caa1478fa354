package notify

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sneakwatch/go-release-pipeline/internal/obs"
)

// PrefsSource loads every user's preferences from persistent storage.
type PrefsSource interface {
	LoadAll(ctx context.Context) ([]Preferences, error)
}

// PGPrefsStore reads notification_prefs rows maintained by the external
// preferences API.
type PGPrefsStore struct{ DB *pgxpool.Pool }

func (s *PGPrefsStore) LoadAll(ctx context.Context) ([]Preferences, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT user_id, rules, channels, quiet_hours FROM notification_prefs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Preferences
	for rows.Next() {
		var p Preferences
		if err := rows.Scan(&p.UserID, &p.Rules, &p.Channels, &p.QuietHours); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PrefsCache is an explicitly-scoped read-through cache of all user
// preferences, refreshed on a fixed cadence. Staleness is bounded by the
// refresh interval.
type PrefsCache struct {
	src      PrefsSource
	interval time.Duration

	mu    sync.RWMutex
	prefs []Preferences
}

func NewPrefsCache(src PrefsSource, interval time.Duration) *PrefsCache {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PrefsCache{src: src, interval: interval}
}

// Refresh replaces the cached snapshot from the source.
func (c *PrefsCache) Refresh(ctx context.Context) error {
	if c.src == nil {
		return nil
	}
	prefs, err := c.src.LoadAll(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()
	return nil
}

// Run refreshes on the configured cadence until ctx is done. A failed
// refresh keeps serving the previous snapshot.
func (c *PrefsCache) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.Refresh(ctx); err != nil {
				obs.Logger.Error("prefs refresh failed", "err", err)
			}
		}
	}
}

// Snapshot returns the current cached preferences.
func (c *PrefsCache) Snapshot() []Preferences {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prefs
}

// Set overrides the snapshot directly; used by tests and by setups without
// a preferences database.
func (c *PrefsCache) Set(prefs []Preferences) {
	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()
}
