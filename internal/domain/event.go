package domain

import "time"

// OrderCreatedEvent is the payload published for downstream fulfillment
// and notification systems after a checkout is converted.
type OrderCreatedEvent struct {
	OrderNumber   string           `json:"order_number"`
	CheckoutToken string           `json:"checkout_token"`
	CustomerRef   string           `json:"customer_ref"`
	TotalAmount   int64            `json:"total_amount"`
	Currency      string           `json:"currency"`
	Lines         []OrderEventLine `json:"lines"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// OrderEventLine mirrors an order line in event form.
type OrderEventLine struct {
	SKU        string `json:"sku"`
	Warehouse  string `json:"warehouse"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}
