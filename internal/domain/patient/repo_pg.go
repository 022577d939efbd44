package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint errors.
const uniqueViolation = "23505"

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const recordCols = `id, name, age, is_emergency, is_served, queue_number, queue_date, registered_at, served_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.Name, &r.Age, &r.IsEmergency, &r.IsServed,
		&r.QueueNumber, &r.QueueDate, &r.RegisteredAt, &r.ServedAt)
	return &r, err
}

// Create inserts the record with the next free queue number for its day. The
// MAX(queue_number)+1 subselect and the insert run as one statement; the
// unique index on (queue_date, queue_number) turns a lost race into a
// uniqueViolation, surfaced as ErrQueueNumberConflict for the caller to retry.
func (p *repoPG) Create(ctx context.Context, r *Record) error {
	r.ID = uuid.New()
	err := p.pool.QueryRow(ctx, `
		INSERT INTO patient (id, name, age, is_emergency, is_served, queue_number, queue_date, registered_at, served_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(queue_number), 0) + 1 FROM patient WHERE queue_date = $6),
			$6, $7, $8)
		RETURNING queue_number`,
		r.ID, r.Name, r.Age, r.IsEmergency, r.IsServed, r.QueueDate, r.RegisteredAt, r.ServedAt,
	).Scan(&r.QueueNumber)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrQueueNumberConflict
		}
		return err
	}
	return nil
}

func (p *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	r, err := scanRecord(p.pool.QueryRow(ctx,
		`SELECT `+recordCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (p *repoPG) ListUnserved(ctx context.Context, day time.Time) ([]*Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordCols+` FROM patient
		WHERE queue_date = $1 AND is_served = FALSE
		ORDER BY queue_number`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MarkServed is a single atomic update keyed by id. COALESCE keeps the first
// served_at when the record is served again.
func (p *repoPG) MarkServed(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE patient SET is_served = TRUE, served_at = COALESCE(served_at, $2)
		WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *repoPG) List(ctx context.Context, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := p.pool.Query(ctx, `
		SELECT `+recordCols+` FROM patient
		ORDER BY registered_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, r)
	}
	return records, total, rows.Err()
}

func (p *repoPG) DayStats(ctx context.Context, day time.Time) (*Stats, error) {
	var s Stats
	err := p.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE is_served = FALSE),
			COUNT(*) FILTER (WHERE is_served = FALSE AND is_emergency),
			COUNT(*) FILTER (WHERE is_served = TRUE)
		FROM patient WHERE queue_date = $1`, day).
		Scan(&s.Waiting, &s.EmergencyWaiting, &s.ServedToday)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
