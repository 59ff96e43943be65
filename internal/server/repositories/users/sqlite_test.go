package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/sqlitetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_CreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.User{
		UserName: "alice", PasswordHash: "h", Email: "a@example.com", Role: models.RoleUser,
	})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	got, err := repo.GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "h", got.PasswordHash)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestSQLite_UsernamesAreCaseSensitive(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: "h", Email: "e", Role: models.RoleUser})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{UserName: "Alice", PasswordHash: "h", Email: "e", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = repo.GetUserByLogin(ctx, "ALICE")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_DuplicateUsername(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: "h1", Email: "a@x", Role: models.RoleUser})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: "h2", Email: "b@x", Role: models.RoleUser})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestSQLite_ConcurrentRegistrationOneWinner(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok, dup int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &models.User{UserName: "race", PasswordHash: "h", Email: "e", Role: models.RoleUser})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, common.ErrorAlreadyExists):
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dup)
}

func TestSQLite_GetUnknown(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))

	_, err := repo.GetUserByLogin(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_RoleConstraint(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))

	_, err := repo.Create(context.Background(), &models.User{UserName: "eve", PasswordHash: "h", Email: "e", Role: "Root"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}
