package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// AvailabilityReader is the minimal interface for the storefront
// availability endpoint.
type AvailabilityReader interface {
	Available(ctx context.Context, sku, warehouse string) (int, error)
}

// HandleAvailability returns an HTTP handler reporting sellable quantity for
// one stock record.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku := chi.URLParam(r, "sku")
		warehouse := chi.URLParam(r, "warehouse")

		available, err := svc.Available(r.Context(), sku, warehouse)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrStockRecordNotFound):
				writeError(w, http.StatusNotFound, codeStockRecordNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, availabilityResponse{
			SKU:       sku,
			Warehouse: warehouse,
			Available: available,
		})
	}
}

type availabilityResponse struct {
	SKU       string `json:"sku"`
	Warehouse string `json:"warehouse"`
	Available int    `json:"available"`
}
