package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/katlegobruce88/quickcart/internal/app"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// CheckoutService is the minimal interface the checkout endpoints need.
type CheckoutService interface {
	Create(ctx context.Context, customerRef string) (domain.Checkout, error)
	Get(ctx context.Context, token string) (domain.Checkout, error)
	AddItems(ctx context.Context, token string, items []app.LineItemInput) (app.AddItemsResult, error)
	RemoveItem(ctx context.Context, token, sku string) error
	BeginPayment(ctx context.Context, token string) (domain.Checkout, error)
	Abandon(ctx context.Context, token string) error
}

// HandleCreateCheckout returns an HTTP handler that opens a checkout.
func HandleCreateCheckout(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createCheckoutRequest
		if r.ContentLength != 0 {
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
		}

		checkout, err := svc.Create(r.Context(), req.CustomerRef)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, toCheckoutResponse(checkout))
	}
}

// HandleGetCheckout returns an HTTP handler that fetches a checkout with its lines.
func HandleGetCheckout(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		checkout, err := svc.Get(r.Context(), token)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCheckoutResponse(checkout))
	}
}

// HandleAddItems returns an HTTP handler that reserves stock for checkout
// lines. Item outcomes are reported individually; a failing item does not
// undo reservations taken for the others.
func HandleAddItems(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		var req addItemsRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "items are required")
			return
		}

		items := make([]app.LineItemInput, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, app.LineItemInput{
				SKU:       it.SKU,
				Quantity:  it.Quantity,
				Warehouse: it.Warehouse,
			})
		}

		result, err := svc.AddItems(r.Context(), token, items)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}

		resp := addItemsResponse{
			Items:  make([]itemResultResponse, 0, len(result.Items)),
			Failed: result.Failed,
		}
		for _, item := range result.Items {
			ir := itemResultResponse{
				SKU:           item.SKU,
				ReservationID: item.ReservationID,
			}
			if !item.ExpiresAt.IsZero() {
				ir.ExpiresAt = &item.ExpiresAt
			}
			if item.Err != nil {
				ir.Error = item.Err.Error()
				ir.Code = itemErrorCode(item.Err)
			}
			resp.Items = append(resp.Items, ir)
		}

		status := http.StatusOK
		if result.Failed {
			status = http.StatusMultiStatus
		}
		writeJSON(w, status, resp)
	}
}

// HandleRemoveItem returns an HTTP handler that drops a checkout line and
// releases its reservation.
func HandleRemoveItem(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		sku := chi.URLParam(r, "sku")

		if err := svc.RemoveItem(r.Context(), token, sku); err != nil {
			writeCheckoutError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleBeginPayment returns an HTTP handler that authorizes payment for the
// checkout total and moves the checkout to awaiting_payment.
func HandleBeginPayment(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		checkout, err := svc.BeginPayment(r.Context(), token)
		if err != nil {
			writeCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCheckoutResponse(checkout))
	}
}

// HandleAbandonCheckout returns an HTTP handler that abandons a checkout and
// releases all of its reservations.
func HandleAbandonCheckout(svc CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		if err := svc.Abandon(r.Context(), token); err != nil {
			writeCheckoutError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrCheckoutNotFound):
		writeError(w, http.StatusNotFound, codeCheckoutNotFound, err.Error())
	case errors.Is(err, domain.ErrCheckoutImmutable):
		writeError(w, http.StatusConflict, codeCheckoutImmutable, err.Error())
	case errors.Is(err, domain.ErrIncompleteCheckout):
		writeError(w, http.StatusConflict, codeIncompleteCheckout, err.Error())
	case errors.Is(err, domain.ErrPaymentDeclined):
		writeError(w, http.StatusPaymentRequired, codePaymentDeclined, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, codeVariantNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

func itemErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return codeOutOfStock
	case errors.Is(err, domain.ErrInsufficientStock):
		return codeInsufficientStock
	case errors.Is(err, domain.ErrVariantNotFound):
		return codeVariantNotFound
	case errors.Is(err, domain.ErrStockRecordNotFound):
		return codeStockRecordNotFound
	case errors.Is(err, domain.ErrInvalidQuantity):
		return codeInvalidQuantity
	default:
		return codeInternalError
	}
}

type createCheckoutRequest struct {
	CustomerRef string `json:"customer_ref"`
}

type addItemsRequest struct {
	Items []lineItemRequest `json:"items"`
}

type lineItemRequest struct {
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	Warehouse string `json:"warehouse,omitempty"`
}

type addItemsResponse struct {
	Items  []itemResultResponse `json:"items"`
	Failed bool                 `json:"failed"`
}

type itemResultResponse struct {
	SKU           string     `json:"sku"`
	ReservationID string     `json:"reservation_id,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Error         string     `json:"error,omitempty"`
	Code          string     `json:"code,omitempty"`
}

type checkoutResponse struct {
	Token       string                 `json:"token"`
	CustomerRef string                 `json:"customer_ref,omitempty"`
	Status      string                 `json:"status"`
	Lines       []checkoutLineResponse `json:"lines"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

type checkoutLineResponse struct {
	SKU           string `json:"sku"`
	Quantity      int    `json:"quantity"`
	ReservationID string `json:"reservation_id"`
}

func toCheckoutResponse(c domain.Checkout) checkoutResponse {
	resp := checkoutResponse{
		Token:       c.Token,
		CustomerRef: c.CustomerRef,
		Status:      string(c.Status),
		Lines:       make([]checkoutLineResponse, 0, len(c.Lines)),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for _, line := range c.Lines {
		resp.Lines = append(resp.Lines, checkoutLineResponse{
			SKU:           line.SKU,
			Quantity:      line.Quantity,
			ReservationID: line.ReservationID,
		})
	}
	return resp
}
