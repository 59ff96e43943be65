package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/catalogkeeper/internal/client/client"
	"github.com/dmitrijs2005/catalogkeeper/internal/client/models"
)

// ProductService proxies catalog operations. Authorization failures come
// back as ErrNotPermitted without naming the role that was required.
type ProductService interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, id int64, path string) error
}

type productService struct {
	client client.Client
	cache  SessionStore
}

func NewProductService(c client.Client, cache SessionStore) ProductService {
	return &productService{client: c, cache: cache}
}

// checkProduct mirrors the server's validation so obvious mistakes never
// leave the machine.
func checkProduct(p *models.Product) error {
	if p == nil || strings.TrimSpace(p.Name) == "" {
		return errors.New("name is required")
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return errors.New("price must be a non-negative number")
	}
	return nil
}

// mapErr turns transport sentinels into user-facing errors. A 401 means the
// cached token is dead, so it is dropped.
func (s *productService) mapErr(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrForbidden):
		return ErrNotPermitted
	case errors.Is(err, client.ErrUnauthorized):
		if cerr := s.cache.Clear(ctx); cerr != nil {
			return cerr
		}
		return ErrNotLoggedIn
	case errors.Is(err, client.ErrNotFound):
		return fmt.Errorf("product %w", client.ErrNotFound)
	case errors.Is(err, client.ErrBadRequest):
		return errors.New(serverMessage(err, "invalid product"))
	default:
		return err
	}
}

func (s *productService) requireSession() error {
	if _, ok := s.cache.Session(); !ok {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *productService) List(ctx context.Context) ([]models.Product, error) {
	items, err := s.client.ListProducts(ctx)
	return items, s.mapErr(ctx, err)
}

func (s *productService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.client.GetProduct(ctx, id)
	return p, s.mapErr(ctx, err)
}

func (s *productService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	out, err := s.client.CreateProduct(ctx, p)
	return out, s.mapErr(ctx, err)
}

func (s *productService) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := s.requireSession(); err != nil {
		return nil, err
	}
	if err := checkProduct(p); err != nil {
		return nil, err
	}
	out, err := s.client.UpdateProduct(ctx, p)
	return out, s.mapErr(ctx, err)
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	return s.mapErr(ctx, s.client.DeleteProduct(ctx, id))
}

func (s *productService) UploadImage(ctx context.Context, id int64, path string) error {
	if err := s.requireSession(); err != nil {
		return err
	}
	return s.mapErr(ctx, s.client.UploadImage(ctx, id, path))
}
