package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/migrations"
	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/filex"
)

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

func RunMigrations(ctx context.Context, db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dbx.SQLite.GooseDialect()); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local cache at path and
// applies migrations. The parent directory is created with mode 0700.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	abs, err := filex.EnsureParentDir(path)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, dbx.SQLite, "file:"+abs+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}
