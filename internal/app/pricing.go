package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

const (
	attrUnitPrice = "unit_price"
	attrCurrency  = "currency"
)

// AttributePricingEngine resolves prices from variant attributes. It stands
// in for an external pricing/discount system: the unit price in minor units
// under "unit_price" and an ISO currency under "currency".
type AttributePricingEngine struct {
	DefaultCurrency string
}

func NewAttributePricingEngine(defaultCurrency string) *AttributePricingEngine {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &AttributePricingEngine{DefaultCurrency: defaultCurrency}
}

func (e *AttributePricingEngine) PriceFor(_ context.Context, variant domain.ProductVariant, _ int, _ string) (domain.Money, error) {
	raw, ok := variant.Attributes[attrUnitPrice]
	if !ok {
		return domain.Money{}, fmt.Errorf("variant %s has no %s attribute", variant.SKU, attrUnitPrice)
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount < 0 {
		return domain.Money{}, fmt.Errorf("variant %s has invalid %s %q", variant.SKU, attrUnitPrice, raw)
	}

	currency := variant.Attributes[attrCurrency]
	if currency == "" {
		currency = e.DefaultCurrency
	}
	return domain.Money{Amount: amount, Currency: currency}, nil
}
