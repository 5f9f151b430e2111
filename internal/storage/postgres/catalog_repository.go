package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// CatalogRepository implements the app.Catalog port over product_variants.
type CatalogRepository struct {
	db
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{db: db{pool: pool}}
}

func (r *CatalogRepository) LookupVariant(ctx context.Context, sku string) (domain.ProductVariant, error) {
	const query = `SELECT sku, product_ref, name, attributes, created_at FROM product_variants WHERE sku = $1`

	var v domain.ProductVariant
	err := r.queryRow(ctx, query, sku).
		Scan(&v.SKU, &v.ProductRef, &v.Name, &v.Attributes, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ProductVariant{}, domain.ErrVariantNotFound
		}
		return domain.ProductVariant{}, fmt.Errorf("lookup variant: %w", err)
	}
	return v, nil
}
