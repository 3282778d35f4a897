package meetings

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"meeting-platform/pkg/utils"
)

// PostgresRepo persists meetings in the meetings table:
//
//	CREATE TABLE meetings (
//	  id          TEXT PRIMARY KEY,
//	  owner_id    TEXT NOT NULL,
//	  description TEXT NOT NULL DEFAULT '',
//	  starts_at   TIMESTAMPTZ NOT NULL,
//	  ended_at    TIMESTAMPTZ,
//	  created_at  TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX meetings_owner_starts_idx ON meetings (owner_id, starts_at);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Insert(ctx context.Context, m Meeting) error {
	const q = `
INSERT INTO meetings (id, owner_id, description, starts_at, ended_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.OwnerID, m.Description, m.StartsAt, m.EndedAt, m.CreatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Meeting, error) {
	const q = `
SELECT id, owner_id, description, starts_at, ended_at, created_at
FROM meetings
WHERE id = $1
`
	var m Meeting
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID,
		&m.OwnerID,
		&m.Description,
		&m.StartsAt,
		&m.EndedAt,
		&m.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meeting{}, ErrNotFound
		}
		return Meeting{}, err
	}
	return m, nil
}

// MarkEnded sets ended_at once. A second mark for the same meeting keeps the
// original timestamp.
func (r *PostgresRepo) MarkEnded(ctx context.Context, id string, endedAt time.Time) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var current sql.NullTime
		err := tx.QueryRowContext(ctx,
			`SELECT ended_at FROM meetings WHERE id = $1 FOR UPDATE`, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current.Valid {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE meetings SET ended_at = $2 WHERE id = $1`, id, endedAt)
		return err
	})
}

func (r *PostgresRepo) ListUpcoming(ctx context.Context, ownerID string, after time.Time) ([]Meeting, error) {
	const q = `
SELECT id, owner_id, description, starts_at, ended_at, created_at
FROM meetings
WHERE owner_id = $1 AND starts_at >= $2
ORDER BY starts_at ASC
`
	return r.query(ctx, q, ownerID, after)
}

func (r *PostgresRepo) ListPrevious(ctx context.Context, ownerID string, before time.Time) ([]Meeting, error) {
	const q = `
SELECT id, owner_id, description, starts_at, ended_at, created_at
FROM meetings
WHERE owner_id = $1 AND starts_at < $2
ORDER BY starts_at DESC
`
	return r.query(ctx, q, ownerID, before)
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Meeting, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Description, &m.StartsAt, &m.EndedAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
