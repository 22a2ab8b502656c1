package taskqueue

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/netx"
	"github.com/dmitrijs2005/gophaccount/internal/server/auth"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
)

// Headers set on every delivery in addition to the bearer token.
const (
	HeaderQueueName = "X-Task-Queue"
	HeaderTaskID    = "X-Task-ID"
	HeaderAttempt   = "X-Task-Attempt"
)

const releaseTimeout = 5 * time.Second

// Dispatcher polls one queue and delivers its due tasks as form POSTs.
type Dispatcher struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	client      *http.Client
	logger      logging.Logger
	now         func() time.Time

	queue         string
	targetBaseURL string
	secret        []byte
	tokenValidity time.Duration
	interval      time.Duration
	batchSize     int
	lease         time.Duration
	maxAttempts   int
	retryBase     time.Duration
	retryMax      time.Duration
}

func NewDispatcher(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, l logging.Logger) *Dispatcher {
	return &Dispatcher{
		db:            db,
		repomanager:   m,
		client:        &http.Client{Timeout: cfg.TaskLeaseDuration / 2},
		logger:        l.With("module", "dispatcher", "queue", cfg.MailTaskQueue),
		now:           time.Now,
		queue:         cfg.MailTaskQueue,
		targetBaseURL: strings.TrimRight(cfg.TaskTargetBaseURL, "/"),
		secret:        []byte(cfg.TaskSecret),
		tokenValidity: cfg.TaskTokenValidity,
		interval:      cfg.DispatchInterval,
		batchSize:     cfg.DispatchBatchSize,
		lease:         cfg.TaskLeaseDuration,
		maxAttempts:   cfg.TaskMaxAttempts,
		retryBase:     cfg.RetryBaseDelay,
		retryMax:      cfg.RetryMaxDelay,
	}
}

// Run polls until ctx is cancelled. Poll errors are logged and retried on
// the next tick.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info(ctx, "Starting dispatcher", "interval", d.interval.String())

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.logger.Error(ctx, "dispatch failed", "error", err)
		}

		select {
		case <-ctx.Done():
			d.logger.Info(ctx, "Stopping dispatcher...")
			return nil
		case <-ticker.C:
		}
	}
}

// DispatchOnce claims one batch of due tasks and delivers them. It returns
// the number of tasks delivered successfully.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	repo := d.repomanager.Tasks(d.db)

	batch, err := repo.ClaimDue(ctx, d.queue, d.batchSize, d.lease)
	if err != nil {
		return 0, fmt.Errorf("error claiming tasks: %w", err)
	}

	delivered := 0
	for i, task := range batch {
		if ctx.Err() != nil {
			d.release(batch[i:])
			return delivered, ctx.Err()
		}

		derr := d.deliver(ctx, task)
		if derr == nil {
			delivered++
			if err := repo.MarkCompleted(ctx, task.ID); err != nil {
				d.logger.Error(ctx, "cannot mark task completed", "task_id", task.ID, "error", err)
			}
			d.logger.Debug(ctx, "task delivered", "task_id", task.ID, "attempt", task.Attempts)
			continue
		}

		if task.Attempts >= d.maxAttempts {
			d.logger.Error(ctx, "task failed permanently", "task_id", task.ID, "attempts", task.Attempts, "error", derr)
			if err := repo.MarkFailed(ctx, task.ID, derr.Error()); err != nil {
				d.logger.Error(ctx, "cannot mark task failed", "task_id", task.ID, "error", err)
			}
			continue
		}

		next := d.now().Add(Backoff(task.Attempts, d.retryBase, d.retryMax))
		d.logger.Warn(ctx, "task delivery failed", "task_id", task.ID, "attempt", task.Attempts, "retry_at", next, "error", derr)
		if err := repo.Reschedule(ctx, task.ID, next, derr.Error()); err != nil {
			d.logger.Error(ctx, "cannot reschedule task", "task_id", task.ID, "error", err)
		}
	}
	return delivered, nil
}

// release makes claimed but undelivered tasks due again right away instead
// of after their lease. It runs during shutdown, so it uses its own context.
func (d *Dispatcher) release(tasks []*models.Task) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	repo := d.repomanager.Tasks(d.db)
	now := d.now()
	for _, task := range tasks {
		if err := repo.Reschedule(ctx, task.ID, now, task.LastError); err != nil {
			d.logger.Error(ctx, "cannot release task", "task_id", task.ID, "error", err)
		}
	}
	d.logger.Info(ctx, "released unfinished tasks", "count", len(tasks))
}

func (d *Dispatcher) deliver(ctx context.Context, task *models.Task) error {
	token, err := auth.GenerateTaskToken(task.Queue, task.ID, d.secret, d.tokenValidity)
	if err != nil {
		return fmt.Errorf("sign task token: %w", err)
	}

	form := url.Values{}
	for k, v := range task.Params {
		form.Set(k, v)
	}

	return netx.PostForm(ctx, d.client, d.targetBaseURL+task.URL, form, map[string]string{
		common.TaskTokenHeaderName: "Bearer " + token,
		HeaderQueueName:            task.Queue,
		HeaderTaskID:               task.ID,
		HeaderAttempt:              strconv.Itoa(task.Attempts),
	})
}

// Backoff returns the delay before retry number attempts (1-based):
// base doubled per previous attempt, capped at maxDelay.
func Backoff(attempts int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxDelay || d <= 0 {
			return maxDelay
		}
	}
	return min(d, maxDelay)
}
