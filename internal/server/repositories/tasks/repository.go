package tasks

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// Repository persists outbox tasks.
type Repository interface {
	Create(ctx context.Context, task *models.Task) error
	ClaimDue(ctx context.Context, queue string, limit int, lease time.Duration) ([]*models.Task, error)
	MarkCompleted(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, at time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error
	CountPending(ctx context.Context, queue string) (int, error)
}
