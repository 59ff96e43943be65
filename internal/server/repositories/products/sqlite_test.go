package products

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/sqlitetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLite_SeededCatalog(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, int64(101), got[0].ID)
	assert.Equal(t, "Pro Camera", got[0].Name)
	assert.Equal(t, 1299.99, got[0].Price)
	assert.Equal(t, "dotnet_bot.png", got[0].ImageURL)
	assert.True(t, got[0].InStock)

	assert.Equal(t, int64(104), got[3].ID)
	assert.Equal(t, "Drone", got[3].Name)
	assert.False(t, got[3].InStock)
}

func TestSQLite_CreateContinuesAfterSeed(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{Name: "Widget", Description: "small", Price: 9.99, InStock: true})
	require.NoError(t, err)
	assert.Equal(t, int64(106), created.ID)

	got, err := repo.Get(ctx, 106)
	require.NoError(t, err)
	assert.Equal(t, models.Product{ID: 106, Name: "Widget", Description: "small", Price: 9.99, InStock: true}, *got)
}

func TestSQLite_Update(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	p, err := repo.Get(ctx, 102)
	require.NoError(t, err)
	p.Price = 449.5
	p.InStock = false

	_, err = repo.Update(ctx, p)
	require.NoError(t, err)

	got, err := repo.Get(ctx, 102)
	require.NoError(t, err)
	assert.Equal(t, 449.5, got.Price)
	assert.False(t, got.InStock)

	_, err = repo.Update(ctx, &models.Product{ID: 999, Name: "ghost"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_Delete(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, 105))

	_, err := repo.Get(ctx, 105)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 105), common.ErrorNotFound)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLite_NegativePriceRejectedByStore(t *testing.T) {
	repo := NewSQLiteRepository(sqlitetest.Open(t))

	_, err := repo.Create(context.Background(), &models.Product{Name: "bad", Price: -1})
	assert.Error(t, err)
}
