// Package products persists the catalog.
package products

import (
	"context"

	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

// Repository stores products. Get, Update and Delete return
// common.ErrorNotFound when no row has the given id. Create ignores
// p.ID and fills in the generated one.
type Repository interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
}
