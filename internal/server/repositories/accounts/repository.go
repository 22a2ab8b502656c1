package accounts

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// Repository is the account store contract. Lookups return
// common.ErrorNotFound when no row matches.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
	FindByActivationKey(ctx context.Context, key string) (*models.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Insert(ctx context.Context, account *models.Account) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
}
