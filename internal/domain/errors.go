package domain

import "errors"

var (
	ErrVariantNotFound      = errors.New("variant not found")
	ErrWarehouseNotFound    = errors.New("warehouse not found")
	ErrStockRecordNotFound  = errors.New("stock record not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrCheckoutNotFound     = errors.New("checkout not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOutOfStock           = errors.New("out of stock")
	ErrReservationExpired   = errors.New("reservation expired")
	ErrIncompleteCheckout   = errors.New("checkout has lines without a live reservation")
	ErrStaleReservation     = errors.New("reservation expired before commit")
	ErrCheckoutImmutable    = errors.New("checkout can no longer be modified")
	ErrAlreadyConverted     = errors.New("checkout already converted to an order")
	ErrPaymentDeclined      = errors.New("payment authorization declined")
	ErrPaymentNotAuthorized = errors.New("checkout has no payment authorization")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidID            = errors.New("invalid id")
	ErrVariantNameRequired  = errors.New("variant name required")
	ErrWarehouseExists      = errors.New("warehouse already exists")
	ErrSlugRequired         = errors.New("warehouse slug required")
)
