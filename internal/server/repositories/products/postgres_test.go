package products

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{"id", "name", "description", "price", "image_url", "in_stock"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestPostgres_List(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+products\s+ORDER\s+BY\s+id\s*$`).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow(int64(101), "Pro Camera", "d", 1299.99, "dotnet_bot.png", true).
			AddRow(int64(104), "Drone", "d", 799.99, "dotnet_bot.png", false))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Pro Camera", got[0].Name)
	assert.False(t, got[1].InStock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_List_Empty(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+products`).WillReturnRows(sqlmock.NewRows(productCols))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_List_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM\s+products`).WillReturnError(errors.New("conn refused"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*conn refused`), err.Error())
}

func TestPostgres_Get(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+products\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(int64(103)).
		WillReturnRows(sqlmock.NewRows(productCols).AddRow(int64(103), "Smart Speaker", "d", 179.99, "img", true))

	got, err := repo.Get(context.Background(), 103)
	require.NoError(t, err)
	assert.Equal(t, int64(103), got.ID)
	assert.Equal(t, 179.99, got.Price)
}

func TestPostgres_Get_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+products\s+WHERE`).WithArgs(int64(999)).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+products\s*\(name,\s*description,\s*price,\s*image_url,\s*in_stock\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id\s*$`).
		WithArgs("Widget", "small", 9.99, "", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(106)))

	got, err := repo.Create(context.Background(), &models.Product{ID: 5, Name: "Widget", Description: "small", Price: 9.99, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(106), got.ID)
}

func TestPostgres_Update(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)^UPDATE\s+products\s+SET.*WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).
		WithArgs(int64(101), "Camera", "d", 1.5, "img", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs(int64(999), "X", "", 1.0, "", false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	got, err := repo.Update(context.Background(), &models.Product{ID: 101, Name: "Camera", Description: "d", Price: 1.5, ImageURL: "img"})
	require.NoError(t, err)
	assert.Equal(t, "Camera", got.Name)

	_, err = repo.Update(context.Background(), &models.Product{ID: 999, Name: "X", Price: 1.0})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `^DELETE\s+FROM\s+products\s+WHERE\s+id\s*=\s*\$1$`
	mock.ExpectExec(q).WithArgs(int64(101)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(101)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs(int64(102)).WillReturnError(errors.New("boom"))

	require.NoError(t, repo.Delete(context.Background(), 101))
	assert.ErrorIs(t, repo.Delete(context.Background(), 101), common.ErrorNotFound)

	err := repo.Delete(context.Background(), 102)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
