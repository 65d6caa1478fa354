package releases

import (
	"context"
	"sync"
	"time"
)

// MemoryStore mirrors the Repo semantics in process memory: same three-way
// upsert classification, same identity keying, same snapshot suppression.
// Used in tests and storeless dev setups.
type MemoryStore struct {
	mu        sync.Mutex
	byID      map[string]*Release
	snapshots map[string][]StockSnapshot

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*Release),
		snapshots: make(map[string][]StockSnapshot),
	}
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *MemoryStore) Upsert(_ context.Context, d *Release) (UpsertOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	existing, ok := s.byID[d.ID]
	if !ok {
		stored := *d
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.byID[d.ID] = &stored
		return UpsertOutcome{Result: ResultNew, ReleaseID: stored.ID}, nil
	}

	same := existing.Status == d.Status &&
		floatPtrEq(existing.Price, d.Price) &&
		timePtrEq(existing.ReleaseDate, d.ReleaseDate)
	if same {
		return UpsertOutcome{Result: ResultDuplicate, ReleaseID: existing.ID}, nil
	}

	out := UpsertOutcome{
		Result:         ResultUpdated,
		ReleaseID:      existing.ID,
		OldStatus:      existing.Status,
		OldPrice:       existing.Price,
		OldReleaseDate: existing.ReleaseDate,
	}
	existing.Name = d.Name
	existing.Brand = d.Brand
	existing.Colorway = d.Colorway
	existing.ImageURL = d.ImageURL
	existing.URL = d.URL
	existing.Price = d.Price
	existing.Status = d.Status
	existing.ReleaseDate = d.ReleaseDate
	existing.UpdatedAt = now
	return out, nil
}

func (s *MemoryStore) RecordStock(_ context.Context, releaseID string, stock StockMap) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := s.snapshots[releaseID]
	if len(snaps) > 0 && StocksEqual(snaps[len(snaps)-1].Stock, stock) {
		return false, nil
	}
	now := s.now()
	s.snapshots[releaseID] = append(snaps, StockSnapshot{
		ID:        int64(len(snaps) + 1),
		ReleaseID: releaseID,
		Stock:     stock,
		TakenAt:   now,
	})
	if rel, ok := s.byID[releaseID]; ok {
		rel.LiveStock = stock
		rel.StockUpdatedAt = &now
	}
	return true, nil
}

func (s *MemoryStore) GetByKey(_ context.Context, retailerID, sku string) (*Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rel := range s.byID {
		if rel.RetailerID == retailerID && rel.SKU == sku {
			copied := *rel
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rel
	return &copied, nil
}

// Snapshots returns the stored captures for a release, oldest first.
func (s *MemoryStore) Snapshots(releaseID string) []StockSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StockSnapshot, len(s.snapshots[releaseID]))
	copy(out, s.snapshots[releaseID])
	return out
}

// Len reports the number of stored releases.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEq(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
