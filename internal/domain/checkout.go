package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusOpen            CheckoutStatus = "open"
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	CheckoutStatusCompleted       CheckoutStatus = "completed"
	CheckoutStatusAbandoned       CheckoutStatus = "abandoned"
)

// Checkout accumulates line items and reservations prior to order creation.
type Checkout struct {
	Token           string
	CustomerRef     string
	Status          CheckoutStatus
	AuthorizationID string
	Lines           []CheckoutLine
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CheckoutLine ties a variant quantity to the reservation holding its stock.
type CheckoutLine struct {
	SKU           string
	Quantity      int
	ReservationID string
	Position      int
}

// Mutable reports whether line items may still be added or removed.
func (c Checkout) Mutable() bool {
	return c.Status == CheckoutStatusOpen || c.Status == CheckoutStatusAwaitingPayment
}

// LineFor returns the line for the given SKU, if present.
func (c Checkout) LineFor(sku string) (CheckoutLine, bool) {
	for _, line := range c.Lines {
		if line.SKU == sku {
			return line, true
		}
	}
	return CheckoutLine{}, false
}
