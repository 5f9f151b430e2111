package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusCaptured   PaymentStatus = "captured"
)

type FulfillmentStatus string

const (
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	FulfillmentStatusFulfilled   FulfillmentStatus = "fulfilled"
)

// Order is the immutable result of converting a completed checkout.
type Order struct {
	Number            string
	CheckoutToken     string
	CustomerRef       string
	PaymentStatus     PaymentStatus
	FulfillmentStatus FulfillmentStatus
	Total             Money
	Lines             []OrderLine
	CreatedAt         time.Time
}

// OrderLine snapshots a checkout line with its unit price at commit time.
type OrderLine struct {
	SKU           string
	WarehouseSlug string
	Quantity      int
	UnitPrice     Money
	Position      int
}
