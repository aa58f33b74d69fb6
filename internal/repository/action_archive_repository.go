package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/majstudio/community-bot/internal/domain"
)

// ArchivedEntry is an action log entry as stored in Postgres.
type ArchivedEntry struct {
	ID    string
	Entry domain.LogEntry
}

// ActionArchiveRepository keeps an unbounded copy of the action log in Postgres.
type ActionArchiveRepository interface {
	Insert(ctx context.Context, id string, entry domain.LogEntry) error
	Recent(ctx context.Context, action string, limit int) ([]ArchivedEntry, error)
	Count(ctx context.Context) (int64, error)
}

type actionArchiveRepository struct {
	pool *pgxpool.Pool
}

// NewActionArchiveRepository builds repository.
func NewActionArchiveRepository(pool *pgxpool.Pool) ActionArchiveRepository {
	return &actionArchiveRepository{pool: pool}
}

// Insert stores entry once; replays of the same id are ignored.
func (r *actionArchiveRepository) Insert(ctx context.Context, id string, entry domain.LogEntry) error {
	const query = `
        INSERT INTO action_log (id, recorded_at, action, details)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO NOTHING`
	details := entry.Details
	if details == nil {
		details = domain.Details{}
	}
	_, err := r.pool.Exec(ctx, query, id, entry.Timestamp, entry.Action, map[string]any(details))
	return err
}

// Recent lists the newest entries, optionally filtered by action.
func (r *actionArchiveRepository) Recent(ctx context.Context, action string, limit int) ([]ArchivedEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var (
		rows pgx.Rows
		err  error
	)
	if action == "" {
		const query = `
        SELECT id, recorded_at, action, details
        FROM action_log ORDER BY recorded_at DESC LIMIT $1`
		rows, err = r.pool.Query(ctx, query, limit)
	} else {
		const query = `
        SELECT id, recorded_at, action, details
        FROM action_log WHERE action=$1 ORDER BY recorded_at DESC LIMIT $2`
		rows, err = r.pool.Query(ctx, query, action, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ArchivedEntry
	for rows.Next() {
		var (
			item    ArchivedEntry
			details map[string]any
		)
		if err := rows.Scan(&item.ID, &item.Entry.Timestamp, &item.Entry.Action, &details); err != nil {
			return nil, err
		}
		item.Entry.Details = details
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *actionArchiveRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM action_log`).Scan(&n)
	return n, err
}
