// Package tasks provides the PostgreSQL outbox that backs the work queue.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pending task. ID and NextAttemptAt are filled in when
// empty; the task is due immediately.
func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Params == nil {
		t.Params = map[string]string{}
	}
	params, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}

	query := `
		INSERT INTO tasks (id, queue, url, params)
		VALUES ($1, $2, $3, $4)
		RETURNING next_attempt_at, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, t.ID, t.Queue, t.URL, string(params)).
		Scan(&t.NextAttemptAt, &t.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ClaimDue leases up to limit due tasks of queue: their attempt counter is
// bumped and they are hidden for lease. A worker that dies mid-delivery
// therefore only delays the task; it is redelivered once the lease runs out.
func (r *PostgresRepository) ClaimDue(ctx context.Context, queue string, limit int, lease time.Duration) ([]*models.Task, error) {
	query := `
		UPDATE tasks
		SET attempts = attempts + 1,
		    next_attempt_at = now() + make_interval(secs => $3)
		WHERE id IN (
			SELECT id FROM tasks
			WHERE queue = $1
			  AND completed_at IS NULL
			  AND failed_at IS NULL
			  AND next_attempt_at <= now()
			ORDER BY next_attempt_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, url, params, attempts, next_attempt_at, last_error, created_at
	`
	rows, err := r.db.QueryContext(ctx, query, queue, limit, lease.Seconds())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		t := &models.Task{}
		var params []byte
		if err := rows.Scan(&t.ID, &t.Queue, &t.URL, &params, &t.Attempts,
			&t.NextAttemptAt, &t.LastError, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(params, &t.Params); err != nil {
			return nil, fmt.Errorf("decode params of task %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string) error {
	query := `UPDATE tasks SET completed_at = now(), last_error = '' WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Reschedule(ctx context.Context, id string, at time.Time, lastErr string) error {
	query := `UPDATE tasks SET next_attempt_at = $2, last_error = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at, lastErr); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, lastErr string) error {
	query := `UPDATE tasks SET failed_at = now(), last_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, lastErr); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// CountPending returns the number of tasks of queue that are neither
// completed nor failed.
func (r *PostgresRepository) CountPending(ctx context.Context, queue string) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE queue = $1 AND completed_at IS NULL AND failed_at IS NULL`

	var n int
	if err := r.db.QueryRowContext(ctx, query, queue).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
