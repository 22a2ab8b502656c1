package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tasks"
)

type rescheduled struct {
	at      time.Time
	lastErr string
}

type fakeTasks struct {
	mu sync.Mutex

	created   []*models.Task
	createErr error

	due      []*models.Task
	claimErr error

	completed   []string
	failed      map[string]string
	rescheduled map[string]rescheduled
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{failed: map[string]string{}, rescheduled: map[string]rescheduled{}}
}

func (f *fakeTasks) Create(_ context.Context, t *models.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	t.ID = "t-created"
	f.created = append(f.created, t)
	return nil
}

func (f *fakeTasks) ClaimDue(_ context.Context, queue string, limit int, _ time.Duration) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	var out []*models.Task
	for _, t := range f.due {
		if t.Queue == queue && len(out) < limit {
			t.Attempts++
			out = append(out, t)
		}
	}
	f.due = nil
	return out, nil
}

func (f *fakeTasks) MarkCompleted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeTasks) Reschedule(_ context.Context, id string, at time.Time, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescheduled[id] = rescheduled{at: at, lastErr: lastErr}
	return nil
}

func (f *fakeTasks) MarkFailed(_ context.Context, id string, lastErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = lastErr
	return nil
}

func (f *fakeTasks) CountPending(_ context.Context, queue string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created), nil
}

type fakeRepoManager struct {
	tasks *fakeTasks
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return nil }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository              { return m.tasks }

var errBoom = errors.New("boom")
