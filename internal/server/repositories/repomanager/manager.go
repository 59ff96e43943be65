// Package repomanager vends dialect-specific repository implementations and
// runs the embedded goose migrations for the chosen dialect.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/products"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Products(db dbx.DBTX) products.Repository
}

// New returns the manager for dialect d.
func New(d dbx.Dialect) RepositoryManager {
	if d == dbx.Postgres {
		return &PostgresRepositoryManager{}
	}
	return &SQLiteRepositoryManager{}
}
