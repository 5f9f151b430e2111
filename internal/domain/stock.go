package domain

import "time"

// StockRecord tracks inventory for one variant in one warehouse.
type StockRecord struct {
	SKU              string
	WarehouseSlug    string
	OnHand           int
	Reserved         int
	BackorderAllowed bool
	// BackorderLimit caps how far Reserved may exceed OnHand when
	// backorders are allowed.
	BackorderLimit    int
	PreorderReleaseAt *time.Time
	UpdatedAt         time.Time
}

// Available reports how many units can still be reserved. Negative only
// when backorders have been taken.
func (r StockRecord) Available() int {
	return r.OnHand - r.Reserved
}

// ReservationCeiling is the maximum total quantity that may be reserved.
func (r StockRecord) ReservationCeiling() int {
	if r.BackorderAllowed {
		return r.OnHand + r.BackorderLimit
	}
	return r.OnHand
}

// CanReserve reports whether qty more units fit under the ceiling.
func (r StockRecord) CanReserve(qty int) bool {
	return r.Reserved+qty <= r.ReservationCeiling()
}

// IsPreorder reports whether the record is gated behind a future release date.
func (r StockRecord) IsPreorder(now time.Time) bool {
	return r.PreorderReleaseAt != nil && r.PreorderReleaseAt.After(now)
}
