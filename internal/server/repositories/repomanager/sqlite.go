package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/products"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/users"
)

// SQLiteRepositoryManager backs the server with the embedded SQLite store.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Products(db dbx.DBTX) products.Repository {
	return products.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, dbx.SQLite)
}
