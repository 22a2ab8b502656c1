package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophaccount/internal/dbx"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophaccount/internal/server/repositories/tasks"
)

// RepositoryManager vends repositories bound to a handle, so services can
// pick between the pool and an open transaction per call.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Tasks(db dbx.DBTX) tasks.Repository
}
