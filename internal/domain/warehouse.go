package domain

import "time"

// Warehouse is a fulfillment location. Lower Priority wins routing ties.
type Warehouse struct {
	Slug      string
	Name      string
	Priority  int
	CreatedAt time.Time
}
