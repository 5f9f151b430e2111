package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// StockRepository implements app.StockRepository over the stock_records and
// reservations tables.
type StockRepository struct {
	db
}

func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{db: db{pool: pool}}
}

func (r *StockRepository) GetRecord(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return getStockRecord(ctx, r.db, sku, warehouse, false)
}

func (r *StockRepository) GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return getStockRecord(ctx, r.db, sku, warehouse, true)
}

func (r *StockRepository) UpdateQuantities(ctx context.Context, sku, warehouse string, onHand, reserved int) error {
	const stmt = `
UPDATE stock_records
SET on_hand = $3, reserved = $4, updated_at = NOW()
WHERE sku = $1 AND warehouse_slug = $2`

	tag, err := r.exec(ctx, stmt, sku, warehouse, onHand, reserved)
	if err != nil {
		return fmt.Errorf("update stock quantities: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStockRecordNotFound
	}
	return nil
}

func (r *StockRepository) ReclaimExpired(ctx context.Context, sku, warehouse string, now time.Time) (int, error) {
	return reclaimExpired(ctx, r.db, sku, warehouse, now)
}

const stockRecordColumns = `sku, warehouse_slug, on_hand, reserved, backorder_allowed, backorder_limit, preorder_release_at, updated_at`

func getStockRecord(ctx context.Context, d db, sku, warehouse string, forUpdate bool) (domain.StockRecord, error) {
	query := `SELECT ` + stockRecordColumns + ` FROM stock_records WHERE sku = $1 AND warehouse_slug = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rec, err := scanStockRecord(d.queryRow(ctx, query, sku, warehouse))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StockRecord{}, domain.ErrStockRecordNotFound
		}
		return domain.StockRecord{}, fmt.Errorf("get stock record: %w", err)
	}
	return rec, nil
}

func scanStockRecord(row pgx.Row) (domain.StockRecord, error) {
	var rec domain.StockRecord
	err := row.Scan(
		&rec.SKU,
		&rec.WarehouseSlug,
		&rec.OnHand,
		&rec.Reserved,
		&rec.BackorderAllowed,
		&rec.BackorderLimit,
		&rec.PreorderReleaseAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func adjustReserved(ctx context.Context, d db, sku, warehouse string, delta int) error {
	const stmt = `
UPDATE stock_records
SET reserved = reserved + $3, updated_at = NOW()
WHERE sku = $1 AND warehouse_slug = $2`

	tag, err := d.exec(ctx, stmt, sku, warehouse, delta)
	if err != nil {
		return fmt.Errorf("adjust reserved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStockRecordNotFound
	}
	return nil
}

// reclaimExpired flips lapsed active reservations for a record to expired
// and returns the total quantity they held. Runs under the caller's record
// row lock so the reserved counter can be updated consistently.
func reclaimExpired(ctx context.Context, d db, sku, warehouse string, now time.Time) (int, error) {
	const stmt = `
WITH lapsed AS (
	UPDATE reservations
	SET status = 'expired'
	WHERE sku = $1 AND warehouse_slug = $2 AND status = 'active' AND expires_at <= $3
	RETURNING quantity
)
SELECT COALESCE(SUM(quantity), 0) FROM lapsed`

	var reclaimed int
	if err := d.queryRow(ctx, stmt, sku, warehouse, now).Scan(&reclaimed); err != nil {
		return 0, fmt.Errorf("reclaim expired reservations: %w", err)
	}
	if reclaimed == 0 {
		return 0, nil
	}
	if err := adjustReserved(ctx, d, sku, warehouse, -reclaimed); err != nil {
		return 0, err
	}
	return reclaimed, nil
}
