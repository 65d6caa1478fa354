package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGQueue is the production queue backed by Postgres.
type PGQueue struct{ DB *pgxpool.Pool }

const jobCols = `id, target, params, status, COALESCE(claimed_by, ''),
	COALESCE(details, ''), COALESCE(error, ''), created_at, started_at, finished_at`

func (q *PGQueue) Enqueue(ctx context.Context, target string, params map[string]any) (*Job, error) {
	if params == nil {
		params = map[string]any{}
	}
	j := &Job{ID: uuid.NewString(), Target: target, Params: params, Status: StatusPending}
	err := q.DB.QueryRow(ctx, `
		INSERT INTO scraper_jobs (id, target, params, status, created_at)
		VALUES ($1, $2, $3, 'PENDING', now())
		RETURNING created_at`, j.ID, target, params).Scan(&j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ClaimNext takes the oldest PENDING job in one atomic statement. SKIP
// LOCKED makes concurrent workers pick disjoint rows instead of blocking or
// double-claiming.
func (q *PGQueue) ClaimNext(ctx context.Context, workerID string) (*Job, error) {
	row := q.DB.QueryRow(ctx, `
		UPDATE scraper_jobs
		SET status = 'IN_PROGRESS', claimed_by = $1, started_at = now()
		WHERE id = (
			SELECT id FROM scraper_jobs
			WHERE status = 'PENDING'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobCols, workerID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoJob
	}
	return j, err
}

func (q *PGQueue) Complete(ctx context.Context, jobID string, success bool, details string) error {
	status := StatusDone
	detailsCol, errCol := details, ""
	if !success {
		status = StatusFailed
		detailsCol, errCol = "", details
	}
	ct, err := q.DB.Exec(ctx, `
		UPDATE scraper_jobs
		SET status = $2, details = NULLIF($3, ''), error = NULLIF($4, ''), finished_at = now()
		WHERE id = $1 AND status = 'IN_PROGRESS'`,
		jobID, string(status), detailsCol, errCol)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotClaimable
	}
	return nil
}

func (q *PGQueue) Get(ctx context.Context, jobID string) (*Job, error) {
	row := q.DB.QueryRow(ctx, `SELECT `+jobCols+` FROM scraper_jobs WHERE id = $1`, jobID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	return j, err
}

func (q *PGQueue) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := q.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM scraper_jobs WHERE status = 'PENDING'`).Scan(&n)
	return n, err
}

func (q *PGQueue) FailStale(ctx context.Context, lease time.Duration) (int, error) {
	ct, err := q.DB.Exec(ctx, `
		UPDATE scraper_jobs
		SET status = 'FAILED', error = 'lease expired', finished_at = now()
		WHERE status = 'IN_PROGRESS'
		  AND started_at < now() - make_interval(secs => $1)`, lease.Seconds())
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var status string
	err := row.Scan(&j.ID, &j.Target, &j.Params, &status, &j.ClaimedBy,
		&j.Details, &j.Error, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	return &j, nil
}
