package client

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/models"
)

type Client interface {
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	Register(ctx context.Context, username, password, email string) error
	Verify(ctx context.Context) (*models.Identity, error)
	Ping(ctx context.Context) error

	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, id int64, path string) error
}

// Authenticator decorates outgoing requests with credentials.
type Authenticator interface {
	Attach(req *http.Request)
}
