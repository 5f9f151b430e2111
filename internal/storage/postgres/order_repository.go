package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// OrderRepository implements app.OrderRepository.
type OrderRepository struct {
	db
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db{pool: pool}}
}

func (r *OrderRepository) GetCheckoutForUpdate(ctx context.Context, token string) (domain.Checkout, error) {
	return getCheckout(ctx, r.db, token, true)
}

func (r *OrderRepository) GetOrderByCheckoutToken(ctx context.Context, token string) (*domain.Order, error) {
	order, err := getOrder(ctx, r.db, `checkout_token = $1`, token)
	if err != nil {
		if err == domain.ErrOrderNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, number string) (domain.Order, error) {
	return getOrder(ctx, r.db, `number = $1`, number)
}

func (r *OrderRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservation(ctx, r.db, id, true)
}

func (r *OrderRepository) GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return getStockRecord(ctx, r.db, sku, warehouse, true)
}

func (r *OrderRepository) ApplyCommit(ctx context.Context, sku, warehouse string, qty int) error {
	const stmt = `
UPDATE stock_records
SET on_hand = on_hand - $3, reserved = reserved - $3, updated_at = NOW()
WHERE sku = $1 AND warehouse_slug = $2`

	tag, err := r.exec(ctx, stmt, sku, warehouse, qty)
	if err != nil {
		return fmt.Errorf("apply commit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStockRecordNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	return updateReservationStatus(ctx, r.db, id, status)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const orderStmt = `
INSERT INTO orders (number, checkout_token, customer_ref, payment_status, fulfillment_status, total_amount, currency, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, orderStmt,
		order.Number,
		order.CheckoutToken,
		order.CustomerRef,
		order.PaymentStatus,
		order.FulfillmentStatus,
		order.Total.Amount,
		order.Total.Currency,
		order.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyConverted
		}
		return fmt.Errorf("create order: %w", err)
	}

	const lineStmt = `
INSERT INTO order_lines (order_number, position, sku, warehouse_slug, quantity, unit_amount, currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, line := range order.Lines {
		if _, err := r.exec(ctx, lineStmt,
			order.Number,
			line.Position,
			line.SKU,
			line.WarehouseSlug,
			line.Quantity,
			line.UnitPrice.Amount,
			line.UnitPrice.Currency,
		); err != nil {
			return fmt.Errorf("create order line: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) UpdateOrderPaymentStatus(ctx context.Context, number string, status domain.PaymentStatus) error {
	const stmt = `UPDATE orders SET payment_status = $2 WHERE number = $1`

	tag, err := r.exec(ctx, stmt, number, status)
	if err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error {
	return updateCheckoutStatus(ctx, r.db, token, status)
}

func getOrder(ctx context.Context, d db, where string, arg any) (domain.Order, error) {
	query := `
SELECT number, checkout_token, customer_ref, payment_status, fulfillment_status, total_amount, currency, created_at
FROM orders
WHERE ` + where

	var o domain.Order
	var paymentStatus, fulfillmentStatus string
	err := d.queryRow(ctx, query, arg).Scan(
		&o.Number,
		&o.CheckoutToken,
		&o.CustomerRef,
		&paymentStatus,
		&fulfillmentStatus,
		&o.Total.Amount,
		&o.Total.Currency,
		&o.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.FulfillmentStatus = domain.FulfillmentStatus(fulfillmentStatus)

	const lineQuery = `
SELECT position, sku, warehouse_slug, quantity, unit_amount, currency
FROM order_lines
WHERE order_number = $1
ORDER BY position`

	rows, err := d.query(ctx, lineQuery, o.Number)
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.Position,
			&line.SKU,
			&line.WarehouseSlug,
			&line.Quantity,
			&line.UnitPrice.Amount,
			&line.UnitPrice.Currency,
		); err != nil {
			return domain.Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("load order lines: %w", err)
	}
	return o, nil
}
