package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/katlegobruce88/quickcart/internal/app"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// OrderConverter is the minimal interface needed to convert a checkout.
type OrderConverter interface {
	CreateOrderFromCheckout(ctx context.Context, token string) (app.ConvertResult, error)
}

// HandleConvertCheckout returns an HTTP handler that converts a paid checkout
// into an order. Converting the same checkout twice returns the existing
// order with a 200 instead of a 201.
func HandleConvertCheckout(svc OrderConverter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		result, err := svc.CreateOrderFromCheckout(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrCheckoutNotFound):
				writeError(w, http.StatusNotFound, codeCheckoutNotFound, err.Error())
			case errors.Is(err, domain.ErrIncompleteCheckout):
				writeError(w, http.StatusConflict, codeIncompleteCheckout, err.Error())
			case errors.Is(err, domain.ErrPaymentNotAuthorized):
				writeError(w, http.StatusConflict, codePaymentNotAuthed, err.Error())
			case errors.Is(err, domain.ErrStaleReservation):
				writeError(w, http.StatusConflict, codeStaleReservation, err.Error())
			case errors.Is(err, domain.ErrAlreadyConverted):
				writeError(w, http.StatusConflict, codeAlreadyConverted, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		writeJSON(w, status, toOrderResponse(result.Order))
	}
}

type orderResponse struct {
	Number            string              `json:"number"`
	CheckoutToken     string              `json:"checkout_token"`
	CustomerRef       string              `json:"customer_ref,omitempty"`
	PaymentStatus     string              `json:"payment_status"`
	FulfillmentStatus string              `json:"fulfillment_status"`
	Total             moneyResponse       `json:"total"`
	Lines             []orderLineResponse `json:"lines"`
	CreatedAt         time.Time           `json:"created_at"`
}

type orderLineResponse struct {
	SKU       string        `json:"sku"`
	Warehouse string        `json:"warehouse"`
	Quantity  int           `json:"quantity"`
	UnitPrice moneyResponse `json:"unit_price"`
}

type moneyResponse struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		Number:            o.Number,
		CheckoutToken:     o.CheckoutToken,
		CustomerRef:       o.CustomerRef,
		PaymentStatus:     string(o.PaymentStatus),
		FulfillmentStatus: string(o.FulfillmentStatus),
		Total:             moneyResponse{Amount: o.Total.Amount, Currency: o.Total.Currency},
		Lines:             make([]orderLineResponse, 0, len(o.Lines)),
		CreatedAt:         o.CreatedAt,
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			SKU:       line.SKU,
			Warehouse: line.WarehouseSlug,
			Quantity:  line.Quantity,
			UnitPrice: moneyResponse{Amount: line.UnitPrice.Amount, Currency: line.UnitPrice.Currency},
		})
	}
	return resp
}
