package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/dmitrijs2005/catalogkeeper/internal/dbx"
	"github.com/dmitrijs2005/catalogkeeper/internal/server/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Product, error) {
	query := `select id, name, description, price, image_url, in_stock from products order by id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	defer rows.Close()

	result := make([]models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.InStock); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*models.Product, error) {
	query := `select id, name, description, price, image_url, in_stock from products where id = ?`

	p := &models.Product{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.InStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `insert into products (name, description, price, image_url, in_stock)
		values (?, ?, ?, ?, ?) returning id`

	if err := r.db.QueryRowContext(ctx, query, p.Name, p.Description, p.Price, p.ImageURL, p.InStock).Scan(&p.ID); err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `update products set name = ?, description = ?, price = ?, image_url = ?, in_stock = ?
		where id = ?`

	res, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.Price, p.ImageURL, p.InStock, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `delete from products where id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return expectOneRow(res)
}
