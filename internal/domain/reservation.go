package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusReleased  ReservationStatus = "released"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCommitted ReservationStatus = "committed"
)

// Reservation is a time-bounded hold on stock taken during checkout.
type Reservation struct {
	ID            string
	SKU           string
	WarehouseSlug string
	CheckoutToken string
	Quantity      int
	Status        ReservationStatus
	Preorder      bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Live reports whether the reservation still holds stock at the given instant.
func (r Reservation) Live(now time.Time) bool {
	return r.Status == ReservationStatusActive && r.ExpiresAt.After(now)
}
