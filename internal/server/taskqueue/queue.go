// Package taskqueue is the work queue: tasks are written to an outbox table
// through the caller's transaction and later delivered over HTTP by the
// Dispatcher, at least once.
package taskqueue

import (
	"context"
	"fmt"
	"maps"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
)

// TaskOptions describes a task to enqueue: the handler path it is delivered
// to and its form parameters.
type TaskOptions struct {
	URL    string
	Params map[string]string
}

// Queue enqueues tasks under a fixed queue name.
type Queue struct {
	name        string
	repomanager repomanager.RepositoryManager
}

func NewQueue(name string, m repomanager.RepositoryManager) *Queue {
	return &Queue{name: name, repomanager: m}
}

func (q *Queue) Name() string { return q.name }

// Add enqueues a task through tx. The task is visible to the dispatcher only
// after tx commits and disappears with it on rollback, so tx must be an open
// transaction; any other handle is rejected with common.ErrorConstraint.
func (q *Queue) Add(ctx context.Context, tx dbx.DBTX, opts TaskOptions) (*models.Task, error) {
	if !dbx.InTx(tx) {
		return nil, fmt.Errorf("%w: tasks must be enqueued inside a transaction", common.ErrorConstraint)
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("%w: task url is required", common.ErrorValidation)
	}

	task := &models.Task{
		Queue:  q.name,
		URL:    opts.URL,
		Params: maps.Clone(opts.Params),
	}
	if err := q.repomanager.Tasks(tx).Create(ctx, task); err != nil {
		return nil, fmt.Errorf("error enqueuing task: %w", err)
	}
	return task, nil
}

// Pending reports how many tasks of this queue still await delivery.
func (q *Queue) Pending(ctx context.Context, db dbx.DBTX) (int, error) {
	return q.repomanager.Tasks(db).CountPending(ctx, q.name)
}
