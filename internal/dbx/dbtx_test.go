package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func updatePrice(ctx context.Context, tx DBTX) error {
	_, err := tx.ExecContext(ctx, "UPDATE products SET price = ? WHERE id = ?", 10.5, 101)
	return err
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WithArgs(10.5, 101).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, WithTx(context.Background(), db, nil, updatePrice))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMock(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE products").WillReturnError(boom)
	mock.ExpectRollback()

	err := WithTx(context.Background(), db, nil, updatePrice)
	assert.ErrorIs(t, err, boom)
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.PanicsWithValue(t, "kaput", func() {
		_ = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
			panic("kaput")
		})
	})
}

func TestWithTx_BeginAndCommitErrors(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("no connection"))

	called := false
	err := WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	assert.EqualError(t, err, "no connection")
	assert.False(t, called)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))
	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error { return nil })
	assert.ErrorContains(t, err, "disk full")
}
