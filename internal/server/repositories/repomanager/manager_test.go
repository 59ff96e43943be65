package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/products"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_PicksDialect(t *testing.T) {
	assert.IsType(t, &PostgresRepositoryManager{}, New(dbx.Postgres))
	assert.IsType(t, &SQLiteRepositoryManager{}, New(dbx.SQLite))
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)

	pg := &PostgresRepositoryManager{}
	assert.IsType(t, &users.PostgresRepository{}, pg.Users(db))
	assert.IsType(t, &products.PostgresRepository{}, pg.Products(db))

	lite := &SQLiteRepositoryManager{}
	assert.IsType(t, &users.SQLiteRepository{}, lite.Users(db))
	assert.IsType(t, &products.SQLiteRepository{}, lite.Products(db))
}

func stubGoose(t *testing.T, fn func(dir string) error) {
	t.Helper()
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return fn(dir)
	}
	t.Cleanup(func() { gooseUpContext = orig })
}

func TestRunMigrations_UsesDialectDirectory(t *testing.T) {
	for _, tc := range []struct {
		m   RepositoryManager
		dir string
	}{
		{m: &PostgresRepositoryManager{}, dir: "postgres"},
		{m: &SQLiteRepositoryManager{}, dir: "sqlite"},
	} {
		t.Run(tc.dir, func(t *testing.T) {
			stubGoose(t, func(dir string) error {
				if dir != tc.dir {
					return fmt.Errorf("unexpected dir %q", dir)
				}
				return nil
			})
			require.NoError(t, tc.m.RunMigrations(context.Background(), newDB(t)))
		})
	}
}

func TestRunMigrations_Error(t *testing.T) {
	stubGoose(t, func(string) error { return errors.New("boom") })

	m := &PostgresRepositoryManager{}
	err := m.RunMigrations(context.Background(), newDB(t))
	require.EqualError(t, err, "boom")
}

func TestRunMigrations_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	db, err := dbx.Open(ctx, dbx.SQLite, "file:repomanager_e2e?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := New(dbx.SQLite)
	require.NoError(t, m.RunMigrations(ctx, db))
	require.NoError(t, m.RunMigrations(ctx, db), "idempotent")

	all, err := m.Products(db).List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}
