package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/gophaccount/internal/server/taskqueue"
)

var errBoom = errors.New("boom")

// memStore is an in-memory account and task store with transactions.
// Inserts reserve the username until commit or rollback, the way a unique
// index holds a pending row.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	tasks    []*models.Task
	reserved map[string]*memTx
	nextID   int

	saves int

	insertErr     error
	createTaskErr error
	findErr       error
	// existsBarrier, when set, holds every ExistsByUsername call until all
	// expected callers have arrived.
	existsBarrier *sync.WaitGroup
}

func newMemStore() *memStore {
	return &memStore{accounts: map[string]*models.Account{}, reserved: map[string]*memTx{}}
}

type memTx struct {
	store    *memStore
	inserted map[string]*models.Account
	saved    []*models.Account
	tasks    []*models.Task
}

func (t *memTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errors.New("memTx runs no SQL")
}
func (t *memTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("memTx runs no SQL")
}
func (t *memTx) QueryRowContext(context.Context, string, ...any) *sql.Row { return nil }

func (t *memTx) Commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, a := range t.inserted {
		s.accounts[name] = a
		delete(s.reserved, name)
	}
	for _, a := range t.saved {
		cur := s.accounts[a.Username]
		enabled := cur.Enabled || a.Enabled
		*cur = *a
		cur.Enabled = enabled
	}
	s.tasks = append(s.tasks, t.tasks...)
	return nil
}

func (t *memTx) Rollback() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range t.inserted {
		delete(s.reserved, name)
	}
	return nil
}

// runInTx is a dbx.TxRunner over memTx.
func (s *memStore) runInTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	tx := &memTx{store: s, inserted: map[string]*models.Account{}}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *memStore) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *memStore) taskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *memStore) account(username string) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[username]
	if !ok {
		return nil
	}
	c := *a
	return &c
}

func (s *memStore) put(a *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	a.ID = fmt.Sprint(s.nextID)
	s.accounts[a.Username] = a
}

type memAccounts struct {
	store *memStore
	tx    *memTx
}

func (r *memAccounts) lookup(match func(*models.Account) bool) (*models.Account, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	if r.tx != nil {
		for _, a := range r.tx.inserted {
			if match(a) {
				c := *a
				return &c, nil
			}
		}
	}
	for _, a := range s.accounts {
		if match(a) {
			c := *a
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memAccounts) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	return r.lookup(func(a *models.Account) bool { return a.Username == username })
}

func (r *memAccounts) FindByActivationKey(_ context.Context, key string) (*models.Account, error) {
	return r.lookup(func(a *models.Account) bool { return a.ActivationKey == key })
}

func (r *memAccounts) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if b := r.store.existsBarrier; b != nil {
		b.Done()
		b.Wait()
	}
	_, err := r.FindByUsername(ctx, username)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memAccounts) Insert(_ context.Context, a *models.Account) (*models.Account, error) {
	if r.tx == nil {
		return nil, fmt.Errorf("%w: account insert requires a transaction", common.ErrorConstraint)
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if _, ok := s.accounts[a.Username]; ok {
		return nil, common.ErrorDuplicateUser
	}
	if owner, ok := s.reserved[a.Username]; ok && owner != r.tx {
		return nil, common.ErrorDuplicateUser
	}
	s.reserved[a.Username] = r.tx
	s.nextID++
	c := *a
	c.ID = fmt.Sprint(s.nextID)
	c.CreatedAt = time.Now()
	r.tx.inserted[a.Username] = &c
	out := c
	return &out, nil
}

func (r *memAccounts) Save(_ context.Context, a *models.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Username]; !ok {
		return common.ErrorNotFound
	}
	s.saves++
	c := *a
	if r.tx != nil {
		r.tx.saved = append(r.tx.saved, &c)
		return nil
	}
	cur := s.accounts[a.Username]
	enabled := cur.Enabled || c.Enabled
	*cur = c
	cur.Enabled = enabled
	return nil
}

type memTasks struct {
	store *memStore
	tx    *memTx
}

func (r *memTasks) Create(_ context.Context, t *models.Task) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createTaskErr != nil {
		return s.createTaskErr
	}
	s.nextID++
	t.ID = fmt.Sprint("task-", s.nextID)
	if r.tx == nil {
		s.tasks = append(s.tasks, t)
		return nil
	}
	r.tx.tasks = append(r.tx.tasks, t)
	return nil
}

func (r *memTasks) ClaimDue(context.Context, string, int, time.Duration) ([]*models.Task, error) {
	return nil, nil
}
func (r *memTasks) MarkCompleted(context.Context, string) error               { return nil }
func (r *memTasks) Reschedule(context.Context, string, time.Time, string) error { return nil }
func (r *memTasks) MarkFailed(context.Context, string, string) error            { return nil }

func (r *memTasks) CountPending(_ context.Context, queue string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n := 0
	for _, t := range r.store.tasks {
		if t.Queue == queue {
			n++
		}
	}
	return n, nil
}

type memRepoManager struct {
	store *memStore
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memRepoManager) Accounts(db dbx.DBTX) accounts.Repository {
	tx, _ := db.(*memTx)
	return &memAccounts{store: m.store, tx: tx}
}

func (m *memRepoManager) Tasks(db dbx.DBTX) tasks.Repository {
	tx, _ := db.(*memTx)
	return &memTasks{store: m.store, tx: tx}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

// newTestAccountService returns a service backed by a fresh memStore.
func newTestAccountService() (*AccountService, *memStore) {
	store := newMemStore()
	m := &memRepoManager{store: store}
	cfg := testConfig()
	svc := NewAccountService(nil, m, taskqueue.NewQueue(cfg.MailTaskQueue, m), cfg, logging.Nop{})
	svc.runInTx = store.runInTx
	return svc, store
}
