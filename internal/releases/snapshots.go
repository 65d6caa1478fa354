package releases

import (
	"context"
	"errors"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
)

// StocksEqual reports structural equality of two inventory maps, key by key
// and value by value.
func StocksEqual(a, b StockMap) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return cmp.Equal(a, b)
}

// LatestSnapshot returns the most recent inventory capture for a release,
// or ErrNotFound if none exists yet.
func (r *Repo) LatestSnapshot(ctx context.Context, releaseID string) (*StockSnapshot, error) {
	var s StockSnapshot
	err := r.DB.QueryRow(ctx, `
		SELECT id, release_id, stock, taken_at
		FROM stock_snapshots
		WHERE release_id = $1
		ORDER BY taken_at DESC
		LIMIT 1`, releaseID).Scan(&s.ID, &s.ReleaseID, &s.Stock, &s.TakenAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// RecordStock is the snapshot differ: it compares the current reading
// against the latest stored snapshot and, only when they differ, appends a
// snapshot and refreshes the parent release's live summary in one
// transaction. Identical readings are suppressed to bound storage growth
// under frequent polling. The insert itself re-checks the latest snapshot,
// so two overlapping polls of one release cannot append identical
// consecutive snapshots.
func (r *Repo) RecordStock(ctx context.Context, releaseID string, stock StockMap) (bool, error) {
	prev, err := r.LatestSnapshot(ctx, releaseID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if prev != nil && StocksEqual(prev.Stock, stock) {
		return false, nil
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// serialize appends per release; the re-check below then sees any
	// snapshot a concurrent poll just committed
	if _, err := tx.Exec(ctx,
		`SELECT 1 FROM releases WHERE id = $1 FOR UPDATE`, releaseID); err != nil {
		return false, err
	}

	ct, err := tx.Exec(ctx, `
		INSERT INTO stock_snapshots (release_id, stock, taken_at)
		SELECT $1, $2::jsonb, now()
		WHERE $2::jsonb IS DISTINCT FROM (
			SELECT stock FROM stock_snapshots
			WHERE release_id = $1
			ORDER BY taken_at DESC
			LIMIT 1
		)`, releaseID, stock)
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// lost the race to a concurrent identical append
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE releases SET live_stock = $2, stock_updated_at = now()
		WHERE id = $1`, releaseID, stock); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
