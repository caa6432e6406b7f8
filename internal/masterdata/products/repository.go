package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository reads the product master.
type Repository interface {
	Get(ctx context.Context, id int64) (*Product, error)
	GetMany(ctx context.Context, ids []int64) (map[int64]*Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, unit_price, is_active, created_at, updated_at
FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetMany(ctx context.Context, ids []int64) (map[int64]*Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku, name, unit_price, is_active, created_at, updated_at
FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]*Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result[p.ID] = &p
	}
	return result, rows.Err()
}
