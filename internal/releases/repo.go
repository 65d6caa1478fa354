package releases

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UpsertResult classifies what an upsert did. Three-way rather than boolean
// because batch counters and the notification engine must distinguish
// "nothing happened" from "a write occurred".
type UpsertResult string

const (
	ResultNew       UpsertResult = "NEW"
	ResultUpdated   UpsertResult = "UPDATED"
	ResultDuplicate UpsertResult = "DUPLICATE"
)

// UpsertOutcome reports the classification plus the prior values of the
// comparison fields so callers can name what changed.
type UpsertOutcome struct {
	Result         UpsertResult
	ReleaseID      string
	OldStatus      Status
	OldPrice       *float64
	OldReleaseDate *time.Time
}

var ErrNotFound = errors.New("release not found")

type Repo struct{ DB *pgxpool.Pool }

// upsertSQL is a single conditional statement: the DO UPDATE fires only when
// one of status/price/release_date actually differs, so a cosmetic-only
// change produces zero rows and classifies as DUPLICATE without a write.
// The conflict target is the id, which is derived from the identity key
// (SKU, or normalized name when the SKU is absent), so SKU-less products
// from one retailer stay distinct. (xmax = 0) distinguishes a fresh insert
// from an update.
const upsertSQL = `
WITH prev AS (
    SELECT status, price, release_date
    FROM releases WHERE id = $3
), up AS (
    INSERT INTO releases
        (id, sku, retailer_id, name, brand, colorway, image_url, url,
         price, status, release_date, created_at, updated_at)
    VALUES ($3, $2, $1, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
    ON CONFLICT (id) DO UPDATE SET
        name = EXCLUDED.name,
        brand = EXCLUDED.brand,
        colorway = EXCLUDED.colorway,
        image_url = EXCLUDED.image_url,
        url = EXCLUDED.url,
        price = EXCLUDED.price,
        status = EXCLUDED.status,
        release_date = EXCLUDED.release_date,
        updated_at = now()
    WHERE releases.status IS DISTINCT FROM EXCLUDED.status
       OR releases.price IS DISTINCT FROM EXCLUDED.price
       OR releases.release_date IS DISTINCT FROM EXCLUDED.release_date
    RETURNING id, (xmax = 0) AS inserted
)
SELECT up.id, up.inserted, prev.status, prev.price, prev.release_date
FROM up LEFT JOIN prev ON true`

// Upsert applies a normalized draft against the canonical store and
// classifies the write as NEW, UPDATED, or DUPLICATE.
func (r *Repo) Upsert(ctx context.Context, d *Release) (UpsertOutcome, error) {
	var (
		id       string
		inserted bool
		oldSt    *string
		oldPrice *float64
		oldDate  *time.Time
	)
	err := r.DB.QueryRow(ctx, upsertSQL,
		d.RetailerID, d.SKU, d.ID, d.Name, d.Brand,
		nilIfEmpty(d.Colorway), nilIfEmpty(d.ImageURL), nilIfEmpty(d.URL),
		d.Price, string(d.Status), d.ReleaseDate,
	).Scan(&id, &inserted, &oldSt, &oldPrice, &oldDate)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict hit but nothing in the comparison set differed.
		return UpsertOutcome{Result: ResultDuplicate, ReleaseID: d.ID}, nil
	}
	if err != nil {
		return UpsertOutcome{}, err
	}

	out := UpsertOutcome{ReleaseID: id, OldPrice: oldPrice, OldReleaseDate: oldDate}
	if oldSt != nil {
		out.OldStatus = Status(*oldSt)
	}
	if inserted {
		out.Result = ResultNew
	} else {
		out.Result = ResultUpdated
	}
	return out, nil
}

const selectCols = `id, sku, retailer_id, name, brand,
	COALESCE(colorway, ''), COALESCE(image_url, ''), COALESCE(url, ''),
	price, status, release_date, live_stock, stock_updated_at,
	created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, id string) (*Release, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+selectCols+` FROM releases WHERE id = $1`, id)
	return scanRelease(row)
}

func (r *Repo) GetByKey(ctx context.Context, retailerID, sku string) (*Release, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT `+selectCols+` FROM releases WHERE retailer_id = $1 AND sku = $2`,
		retailerID, sku)
	return scanRelease(row)
}

func (r *Repo) List(ctx context.Context, limit int) ([]Release, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+selectCols+` FROM releases ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rel)
	}
	return out, rows.Err()
}

func scanRelease(row pgx.Row) (*Release, error) {
	var rel Release
	var status string
	err := row.Scan(&rel.ID, &rel.SKU, &rel.RetailerID, &rel.Name, &rel.Brand,
		&rel.Colorway, &rel.ImageURL, &rel.URL,
		&rel.Price, &status, &rel.ReleaseDate, &rel.LiveStock, &rel.StockUpdatedAt,
		&rel.CreatedAt, &rel.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rel.Status = Status(status)
	return &rel, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
