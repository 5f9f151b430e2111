package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// CheckoutRepository implements app.CheckoutRepository.
type CheckoutRepository struct {
	db
}

func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{db: db{pool: pool}}
}

func (r *CheckoutRepository) CreateCheckout(ctx context.Context, checkout domain.Checkout) error {
	const stmt = `
INSERT INTO checkouts (token, customer_ref, status, authorization_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		checkout.Token,
		checkout.CustomerRef,
		checkout.Status,
		checkout.AuthorizationID,
		checkout.CreatedAt,
		checkout.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create checkout: %w", err)
	}
	return nil
}

func (r *CheckoutRepository) GetCheckout(ctx context.Context, token string) (domain.Checkout, error) {
	return getCheckout(ctx, r.db, token, false)
}

func (r *CheckoutRepository) GetCheckoutForUpdate(ctx context.Context, token string) (domain.Checkout, error) {
	return getCheckout(ctx, r.db, token, true)
}

func (r *CheckoutRepository) UpsertLine(ctx context.Context, token string, line domain.CheckoutLine) error {
	const stmt = `
INSERT INTO checkout_lines (checkout_token, sku, quantity, reservation_id, position)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (checkout_token, sku)
DO UPDATE SET quantity = EXCLUDED.quantity, reservation_id = EXCLUDED.reservation_id`

	_, err := r.exec(ctx, stmt, token, line.SKU, line.Quantity, line.ReservationID, line.Position)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("upsert checkout line: %w", err)
	}
	return nil
}

func (r *CheckoutRepository) DeleteLine(ctx context.Context, token, sku string) error {
	const stmt = `DELETE FROM checkout_lines WHERE checkout_token = $1 AND sku = $2`

	if _, err := r.exec(ctx, stmt, token, sku); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete checkout line: %w", err)
	}
	return nil
}

func (r *CheckoutRepository) UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error {
	return updateCheckoutStatus(ctx, r.db, token, status)
}

func (r *CheckoutRepository) SetAuthorization(ctx context.Context, token, authorizationID string) error {
	const stmt = `UPDATE checkouts SET authorization_id = $2, updated_at = NOW() WHERE token = $1`

	tag, err := r.exec(ctx, stmt, token, authorizationID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set authorization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCheckoutNotFound
	}
	return nil
}

func (r *CheckoutRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	return getReservation(ctx, r.db, id, false)
}

func getCheckout(ctx context.Context, d db, token string, forUpdate bool) (domain.Checkout, error) {
	query := `SELECT token, customer_ref, status, authorization_id, created_at, updated_at FROM checkouts WHERE token = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var c domain.Checkout
	var status string
	err := d.queryRow(ctx, query, token).
		Scan(&c.Token, &c.CustomerRef, &status, &c.AuthorizationID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Checkout{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Checkout{}, domain.ErrCheckoutNotFound
		}
		return domain.Checkout{}, fmt.Errorf("get checkout: %w", err)
	}
	c.Status = domain.CheckoutStatus(status)

	lines, err := loadCheckoutLines(ctx, d, token)
	if err != nil {
		return domain.Checkout{}, err
	}
	c.Lines = lines
	return c, nil
}

func loadCheckoutLines(ctx context.Context, d db, token string) ([]domain.CheckoutLine, error) {
	const query = `
SELECT sku, quantity, reservation_id, position
FROM checkout_lines
WHERE checkout_token = $1
ORDER BY position`

	rows, err := d.query(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("load checkout lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CheckoutLine
	for rows.Next() {
		var line domain.CheckoutLine
		if err := rows.Scan(&line.SKU, &line.Quantity, &line.ReservationID, &line.Position); err != nil {
			return nil, fmt.Errorf("scan checkout line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load checkout lines: %w", err)
	}
	return lines, nil
}

func updateCheckoutStatus(ctx context.Context, d db, token string, status domain.CheckoutStatus) error {
	const stmt = `UPDATE checkouts SET status = $2, updated_at = NOW() WHERE token = $1`

	tag, err := d.exec(ctx, stmt, token, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update checkout status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCheckoutNotFound
	}
	return nil
}
