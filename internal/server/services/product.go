package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/logging"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/repositories/repomanager"
)

// ProductService is the catalog. Authorization happens before it is called.
type ProductService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewProductService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ProductService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &ProductService{db: db, repomanager: m, logger: logger.With("service", "products")}
}

// ValidateProduct checks the fields a client may set.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("%w: product is required", common.ErrorValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", common.ErrorValidation)
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return fmt.Errorf("%w: price must be a non-negative number", common.ErrorValidation)
	}
	return nil
}

func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	items, err := s.repomanager.Products(s.db).List(ctx)
	if err != nil {
		s.logger.Error(ctx, "list products failed", "error", err)
		return nil, common.ErrorInternal
	}
	return items, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repomanager.Products(s.db).Get(ctx, id)
	return p, s.mapErr(ctx, "get product", id, err)
}

func (s *ProductService) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}
	p.ID = 0
	created, err := s.repomanager.Products(s.db).Create(ctx, p)
	if err != nil {
		return nil, s.mapErr(ctx, "create product", 0, err)
	}
	s.logger.Info(ctx, "product created", "id", created.ID)
	return created, nil
}

// Update replaces every mutable field of product id.
func (s *ProductService) Update(ctx context.Context, id int64, p *models.Product) (*models.Product, error) {
	if err := ValidateProduct(p); err != nil {
		return nil, err
	}
	p.ID = id
	updated, err := s.repomanager.Products(s.db).Update(ctx, p)
	if err != nil {
		return nil, s.mapErr(ctx, "update product", id, err)
	}
	s.logger.Info(ctx, "product updated", "id", id)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repomanager.Products(s.db).Delete(ctx, id); err != nil {
		return s.mapErr(ctx, "delete product", id, err)
	}
	s.logger.Info(ctx, "product deleted", "id", id)
	return nil
}

// SetImage records key as the image of product id inside one transaction.
func (s *ProductService) SetImage(ctx context.Context, id int64, key string) (*models.Product, error) {
	var out *models.Product
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Products(tx)
		p, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		p.ImageURL = key
		out, err = repo.Update(ctx, p)
		return err
	})
	if err != nil {
		return nil, s.mapErr(ctx, "set product image", id, err)
	}
	return out, nil
}

func (s *ProductService) mapErr(ctx context.Context, op string, id int64, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrorNotFound
	default:
		s.logger.Error(ctx, op+" failed", "id", id, "error", err)
		return common.ErrorInternal
	}
}
