// Package accounts provides the PostgreSQL-backed account store.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

const accountColumns = `id, username, password, salt, role, enabled,
		        account_non_expired, credentials_non_expired, account_non_locked,
		        activation_key, created_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.Password, &a.Salt, &a.Role, &a.Enabled,
		&a.AccountNonExpired, &a.CredentialsNonExpired, &a.AccountNonLocked,
		&a.ActivationKey, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// FindByUsername returns the account registered under username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE username = $1
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, username))
}

// FindByActivationKey returns the account holding key. The row is locked
// until the enclosing transaction ends, so concurrent activations of the same
// key run one after the other.
func (r *PostgresRepository) FindByActivationKey(ctx context.Context, key string) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE activation_key = $1
		FOR UPDATE
	`
	return scanAccount(r.db.QueryRowContext(ctx, query, key))
}

// ExistsByUsername is the pre-insert uniqueness check.
func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE username = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Insert persists a new account and fills in its ID and CreatedAt.
//
// It must run inside a transaction. A concurrent insert of the same username
// that committed first makes ON CONFLICT skip the row, which is reported as
// common.ErrorDuplicateUser.
func (r *PostgresRepository) Insert(ctx context.Context, a *models.Account) (*models.Account, error) {
	if !dbx.InTx(r.db) {
		return nil, fmt.Errorf("%w: account insert requires a transaction", common.ErrorConstraint)
	}

	query := `
		INSERT INTO accounts (username, password, salt, role, enabled,
		                      account_non_expired, credentials_non_expired, account_non_locked,
		                      activation_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (username) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		a.Username, a.Password, a.Salt, a.Role, a.Enabled,
		a.AccountNonExpired, a.CredentialsNonExpired, a.AccountNonLocked,
		a.ActivationKey).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorDuplicateUser
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Save writes the mutable fields of an existing account. Enabled is OR-ed
// with the stored value: once enabled, an account stays enabled.
func (r *PostgresRepository) Save(ctx context.Context, a *models.Account) error {
	query := `
		UPDATE accounts
		SET password = $2,
		    salt = $3,
		    role = $4,
		    enabled = enabled OR $5,
		    account_non_expired = $6,
		    credentials_non_expired = $7,
		    account_non_locked = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, a.ID,
		a.Password, a.Salt, a.Role, a.Enabled,
		a.AccountNonExpired, a.CredentialsNonExpired, a.AccountNonLocked)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
