package app

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func newID() string {
	return uuid.NewString()
}

// newOrderNumber generates a sortable order number.
func newOrderNumber() string {
	return "QC-" + ulid.Make().String()
}
