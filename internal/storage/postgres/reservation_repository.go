package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/app"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// ReservationRepository implements app.ReservationRepository.
type ReservationRepository struct {
	db
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db: db{pool: pool}}
}

func (r *ReservationRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservation(ctx, r.db, id, false)
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservation(ctx, r.db, id, true)
}

func (r *ReservationRepository) CreateReservation(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, sku, warehouse_slug, checkout_token, quantity, status, preorder, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		res.ID,
		res.SKU,
		res.WarehouseSlug,
		res.CheckoutToken,
		res.Quantity,
		res.Status,
		res.Preorder,
		res.ExpiresAt,
		res.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	return updateReservationStatus(ctx, r.db, id, status)
}

func (r *ReservationRepository) UpdateReservationExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	const stmt = `UPDATE reservations SET expires_at = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, expiresAt)
	if err != nil {
		return fmt.Errorf("update reservation expiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return getStockRecord(ctx, r.db, sku, warehouse, true)
}

func (r *ReservationRepository) ListRecordsBySKUForUpdate(ctx context.Context, sku string) ([]app.RoutedStockRecord, error) {
	const query = `
SELECT r.sku, r.warehouse_slug, r.on_hand, r.reserved, r.backorder_allowed, r.backorder_limit, r.preorder_release_at, r.updated_at, w.priority
FROM stock_records r
JOIN warehouses w ON w.slug = r.warehouse_slug
WHERE r.sku = $1
ORDER BY r.sku, r.warehouse_slug
FOR UPDATE OF r`

	rows, err := r.query(ctx, query, sku)
	if err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	defer rows.Close()

	var records []app.RoutedStockRecord
	for rows.Next() {
		var rec app.RoutedStockRecord
		if err := rows.Scan(
			&rec.SKU,
			&rec.WarehouseSlug,
			&rec.OnHand,
			&rec.Reserved,
			&rec.BackorderAllowed,
			&rec.BackorderLimit,
			&rec.PreorderReleaseAt,
			&rec.UpdatedAt,
			&rec.Priority,
		); err != nil {
			return nil, fmt.Errorf("scan stock record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stock records: %w", err)
	}
	return records, nil
}

func (r *ReservationRepository) AdjustReserved(ctx context.Context, sku, warehouse string, delta int) error {
	return adjustReserved(ctx, r.db, sku, warehouse, delta)
}

func (r *ReservationRepository) ReclaimExpired(ctx context.Context, sku, warehouse string, now time.Time) (int, error) {
	return reclaimExpired(ctx, r.db, sku, warehouse, now)
}

func (r *ReservationRepository) ListDueReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	const query = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE status = 'active' AND expires_at <= $1
ORDER BY expires_at
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due reservations: %w", err)
	}
	defer rows.Close()

	var due []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		due = append(due, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due reservations: %w", err)
	}
	return due, nil
}

func (r *ReservationRepository) ListLapsedCheckoutTokens(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
SELECT c.token
FROM checkouts c
WHERE c.status IN ('open', 'awaiting_payment')
  AND EXISTS (
	SELECT 1 FROM checkout_lines l WHERE l.checkout_token = c.token
  )
  AND NOT EXISTS (
	SELECT 1
	FROM checkout_lines l
	JOIN reservations res ON res.id = l.reservation_id
	WHERE l.checkout_token = c.token AND res.status = 'active' AND res.expires_at > $1
  )`

	rows, err := r.query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list lapsed checkouts: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan checkout token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lapsed checkouts: %w", err)
	}
	return tokens, nil
}

func (r *ReservationRepository) UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error {
	return updateCheckoutStatus(ctx, r.db, token, status)
}

const reservationColumns = `id, sku, warehouse_slug, checkout_token, quantity, status, preorder, expires_at, created_at`

func getReservation(ctx context.Context, d db, id string, forUpdate bool) (domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	res, err := scanReservation(d.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	var status string
	err := row.Scan(
		&res.ID,
		&res.SKU,
		&res.WarehouseSlug,
		&res.CheckoutToken,
		&res.Quantity,
		&status,
		&res.Preorder,
		&res.ExpiresAt,
		&res.CreatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Status = domain.ReservationStatus(status)
	return res, nil
}

func updateReservationStatus(ctx context.Context, d db, id string, status domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $2 WHERE id = $1`

	tag, err := d.exec(ctx, stmt, id, status)
	if err != nil {
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}
