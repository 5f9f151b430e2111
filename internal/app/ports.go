package app

import (
	"context"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// Catalog resolves product variants by SKU.
type Catalog interface {
	LookupVariant(ctx context.Context, sku string) (domain.ProductVariant, error)
}

// PricingEngine resolves the unit price for a variant at commit time.
type PricingEngine interface {
	PriceFor(ctx context.Context, variant domain.ProductVariant, quantity int, customerRef string) (domain.Money, error)
}

// PaymentGateway authorizes and captures payments for checkouts.
type PaymentGateway interface {
	Authorize(ctx context.Context, checkoutToken string, amount domain.Money) (string, error)
	Capture(ctx context.Context, authorizationID string) error
}

// OrderNotifier publishes order events for downstream fulfillment and
// notification consumers.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, event domain.OrderCreatedEvent) error
}

// AvailabilityCache mirrors per-record availability for cheap reads. It is
// never authoritative; the stock ledger in Postgres is.
type AvailabilityCache interface {
	SetAvailable(ctx context.Context, sku, warehouse string, available int) error
	GetAvailable(ctx context.Context, sku, warehouse string) (int, bool, error)
}
