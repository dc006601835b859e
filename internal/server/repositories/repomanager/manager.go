package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/srpauth/internal/dbx"
	"github.com/dmitrijs2005/srpauth/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a database handle, which may
// be a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
