package domain

import "time"

// ProductVariant is a sellable SKU belonging to a product.
type ProductVariant struct {
	SKU        string
	ProductRef string
	Name       string
	Attributes map[string]string
	CreatedAt  time.Time
}
