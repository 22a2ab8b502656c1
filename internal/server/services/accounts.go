// Package services contains server-side business logic: account
// registration and activation, the authentication adapter, and the handler
// behind deferred activation notices.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/cryptox"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophaccount/internal/server/taskqueue"
)

// activationKeySize is the number of random bytes behind an activation key;
// the key itself is their hex encoding.
const activationKeySize = 32

// RegistrationData is the raw input of a registration. Role defaults to
// common.DefaultRole.
type RegistrationData struct {
	Password string
	Role     string
}

// AccountService registers, looks up and activates accounts.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	queue       *taskqueue.Queue
	runInTx     dbx.TxRunner
	mailTaskURL string
	logger      logging.Logger
}

// NewAccountService wires the service. Registration and activation run in
// read committed transactions on db; activation notices go to queue.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, q *taskqueue.Queue, cfg *config.Config, l logging.Logger) *AccountService {
	return &AccountService{
		db:          db,
		repomanager: m,
		queue:       q,
		runInTx:     dbx.NewTxRunner(db, dbx.ReadCommitted),
		mailTaskURL: cfg.MailTaskURL,
		logger:      l.With("module", "accounts"),
	}
}

// Register creates a disabled account for username and enqueues its
// activation notice. Both happen in one transaction: if the account is not
// committed, no notice is ever sent. A taken username yields
// common.ErrorDuplicateUser and leaves the store untouched.
func (s *AccountService) Register(ctx context.Context, username string, data RegistrationData) (*models.Account, error) {
	if strings.TrimSpace(username) == "" || data.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}

	role := data.Role
	if role == "" {
		role = common.DefaultRole
	}

	key, err := common.MakeRandHexString(activationKeySize)
	if err != nil {
		return nil, fmt.Errorf("error generating activation key: %w", err)
	}

	salt := cryptox.NewSalt()
	hash := cryptox.HashPassword([]byte(data.Password), salt)
	account := models.NewPendingAccount(username, hash, salt, role, key)

	var created *models.Account
	err = s.runInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		exists, err := repo.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("error checking username: %w", err)
		}
		if exists {
			return common.ErrorDuplicateUser
		}

		created, err = repo.Insert(ctx, account)
		if err != nil {
			return fmt.Errorf("error creating account: %w", err)
		}

		_, err = s.queue.Add(ctx, tx, taskqueue.TaskOptions{
			URL:    s.mailTaskURL,
			Params: map[string]string{common.UsernameParam: username},
		})
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateUser) {
			s.logger.Info(ctx, "registration rejected, username taken", "username", username)
		}
		return nil, err
	}

	s.logger.Info(ctx, "account registered", "username", created.Username, "id", created.ID)
	return created, nil
}

// Lookup reads username from the store. A missing account is reported as
// found == false with a nil error.
func (s *AccountService) Lookup(ctx context.Context, username string) (*models.Account, bool, error) {
	a, err := s.repomanager.Accounts(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error searching account: %w", err)
	}
	return a, true, nil
}

// Activate enables the account holding key. It returns false, without
// touching the store, when no account holds key. The key stays valid after
// use, so activating twice returns true both times.
func (s *AccountService) Activate(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	activated := false
	err := s.runInTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		a, err := repo.FindByActivationKey(ctx, key)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error searching activation key: %w", err)
		}

		a.Enabled = true
		if err := repo.Save(ctx, a); err != nil {
			return fmt.Errorf("error activating account: %w", err)
		}
		activated = true
		s.logger.Info(ctx, "account activated", "username", a.Username)
		return nil
	})
	if err != nil {
		return false, err
	}
	return activated, nil
}
