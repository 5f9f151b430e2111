package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// AdminRepository implements app.AdminRepository.
type AdminRepository struct {
	db
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{db: db{pool: pool}}
}

func (r *AdminRepository) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) error {
	const stmt = `
INSERT INTO warehouses (slug, name, priority, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, warehouse.Slug, warehouse.Name, warehouse.Priority, warehouse.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrWarehouseExists
		}
		return fmt.Errorf("create warehouse: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	const query = `SELECT slug, name, priority, created_at FROM warehouses ORDER BY priority, slug`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []domain.Warehouse
	for rows.Next() {
		var w domain.Warehouse
		if err := rows.Scan(&w.Slug, &w.Name, &w.Priority, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return warehouses, nil
}

func (r *AdminRepository) CreateVariant(ctx context.Context, variant domain.ProductVariant) error {
	const stmt = `
INSERT INTO product_variants (sku, product_ref, name, attributes, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (sku)
DO UPDATE SET product_ref = EXCLUDED.product_ref, name = EXCLUDED.name, attributes = EXCLUDED.attributes`

	attributes := variant.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}
	if _, err := r.exec(ctx, stmt, variant.SKU, variant.ProductRef, variant.Name, attributes, variant.CreatedAt); err != nil {
		return fmt.Errorf("create variant: %w", err)
	}
	return nil
}

func (r *AdminRepository) UpsertStockRecord(ctx context.Context, record domain.StockRecord) error {
	const stmt = `
INSERT INTO stock_records (sku, warehouse_slug, on_hand, reserved, backorder_allowed, backorder_limit, preorder_release_at, updated_at)
VALUES ($1, $2, $3, 0, $4, $5, $6, $7)
ON CONFLICT (sku, warehouse_slug)
DO UPDATE SET
	on_hand = EXCLUDED.on_hand,
	backorder_allowed = EXCLUDED.backorder_allowed,
	backorder_limit = EXCLUDED.backorder_limit,
	preorder_release_at = EXCLUDED.preorder_release_at,
	updated_at = EXCLUDED.updated_at`

	_, err := r.exec(ctx, stmt,
		record.SKU,
		record.WarehouseSlug,
		record.OnHand,
		record.BackorderAllowed,
		record.BackorderLimit,
		record.PreorderReleaseAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert stock record: %w", err)
	}
	return nil
}

func (r *AdminRepository) ListStockRecords(ctx context.Context, sku string) ([]domain.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + ` FROM stock_records`
	args := []any{}
	if sku != "" {
		query += ` WHERE sku = $1`
		args = append(args, sku)
	}
	query += ` ORDER BY sku, warehouse_slug`

	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()

	var records []domain.StockRecord
	for rows.Next() {
		rec, err := scanStockRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	return records, nil
}

func (r *AdminRepository) ListReservationsByCheckout(ctx context.Context, token string) ([]domain.Reservation, error) {
	const query = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE checkout_token = $1
ORDER BY created_at`

	rows, err := r.query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}
