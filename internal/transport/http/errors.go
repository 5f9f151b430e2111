package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidID           = "invalid_id"
	codeInvalidQuantity     = "invalid_quantity"
	codeSlugRequired        = "slug_required"
	codeVariantNameRequired = "variant_name_required"
	codeVariantNotFound     = "variant_not_found"
	codeWarehouseNotFound   = "warehouse_not_found"
	codeWarehouseExists     = "warehouse_already_exists"
	codeStockRecordNotFound = "stock_record_not_found"
	codeReservationNotFound = "reservation_not_found"
	codeCheckoutNotFound    = "checkout_not_found"
	codeOrderNotFound       = "order_not_found"
	codeInsufficientStock   = "insufficient_stock"
	codeOutOfStock          = "out_of_stock"
	codeReservationExpired  = "reservation_expired"
	codeIncompleteCheckout  = "incomplete_checkout"
	codeStaleReservation    = "stale_reservation"
	codeCheckoutImmutable   = "checkout_immutable"
	codeAlreadyConverted    = "checkout_already_converted"
	codePaymentDeclined     = "payment_declined"
	codePaymentNotAuthed    = "payment_not_authorized"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
