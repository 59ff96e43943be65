// Package sqlitetest opens throwaway in-memory SQLite databases with the
// server schema applied, for repository and service tests.
package sqlitetest

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

var seq atomic.Int64

// Open returns a migrated, seeded in-memory database private to t.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := dbx.Open(context.Background(), dbx.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sub, err := fs.Sub(migrations.Migrations, string(dbx.SQLite))
	require.NoError(t, err)

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	require.NoError(t, err)
	_, err = provider.Up(context.Background())
	require.NoError(t, err)

	return db
}
