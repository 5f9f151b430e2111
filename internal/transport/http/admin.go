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

// AdminService is the minimal interface the admin endpoints need.
type AdminService interface {
	CreateWarehouse(ctx context.Context, in app.CreateWarehouseInput) (domain.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	CreateVariant(ctx context.Context, in app.CreateVariantInput) (domain.ProductVariant, error)
	UpsertStockRecord(ctx context.Context, in app.UpsertStockInput) (domain.StockRecord, error)
	AdjustStock(ctx context.Context, sku, warehouse string, delta int) (domain.StockRecord, error)
	ListStockRecords(ctx context.Context, sku string) ([]domain.StockRecord, error)
	ListReservations(ctx context.Context, checkoutToken string) ([]domain.Reservation, error)
	ForceRelease(ctx context.Context, reservationID string) error
}

// HandleAdminWarehouses returns an HTTP handler for warehouse creation and listing.
func HandleAdminWarehouses(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			warehouses, err := svc.ListWarehouses(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]warehouseResponse, 0, len(warehouses))
			for _, wh := range warehouses {
				resp = append(resp, toWarehouseResponse(wh))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPost:
			var req createWarehouseRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			warehouse, err := svc.CreateWarehouse(r.Context(), app.CreateWarehouseInput{
				Slug:     req.Slug,
				Name:     req.Name,
				Priority: req.Priority,
			})
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrSlugRequired):
					writeError(w, http.StatusBadRequest, codeSlugRequired, err.Error())
				case errors.Is(err, domain.ErrWarehouseExists):
					writeError(w, http.StatusConflict, codeWarehouseExists, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				}
				return
			}
			writeJSON(w, http.StatusCreated, toWarehouseResponse(warehouse))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminVariants returns an HTTP handler for creating product variants.
func HandleAdminVariants(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createVariantRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		variant, err := svc.CreateVariant(r.Context(), app.CreateVariantInput{
			SKU:        req.SKU,
			ProductRef: req.ProductRef,
			Name:       req.Name,
			Attributes: req.Attributes,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrVariantNameRequired):
				writeError(w, http.StatusBadRequest, codeVariantNameRequired, err.Error())
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, toVariantResponse(variant))
	}
}

// HandleAdminStock returns an HTTP handler for listing and seeding stock records.
func HandleAdminStock(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			records, err := svc.ListStockRecords(r.Context(), r.URL.Query().Get("sku"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
				return
			}
			resp := make([]stockRecordResponse, 0, len(records))
			for _, rec := range records {
				resp = append(resp, toStockRecordResponse(rec))
			}
			writeJSON(w, http.StatusOK, resp)
		case http.MethodPut:
			var req upsertStockRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			rec, err := svc.UpsertStockRecord(r.Context(), app.UpsertStockInput{
				SKU:               req.SKU,
				Warehouse:         req.Warehouse,
				OnHand:            req.OnHand,
				BackorderAllowed:  req.BackorderAllowed,
				BackorderLimit:    req.BackorderLimit,
				PreorderReleaseAt: req.PreorderReleaseAt,
			})
			if err != nil {
				writeAdminStockError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toStockRecordResponse(rec))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminStockAdjust returns an HTTP handler that applies an on-hand delta.
func HandleAdminStockAdjust(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustStockRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		rec, err := svc.AdjustStock(r.Context(), req.SKU, req.Warehouse, req.Delta)
		if err != nil {
			writeAdminStockError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toStockRecordResponse(rec))
	}
}

// HandleAdminReservations returns an HTTP handler listing a checkout's reservations.
func HandleAdminReservations(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")

		reservations, err := svc.ListReservations(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := make([]reservationResponse, 0, len(reservations))
		for _, res := range reservations {
			resp = append(resp, toReservationResponse(res))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleAdminForceRelease returns an HTTP handler that releases a reservation
// on behalf of support staff.
func HandleAdminForceRelease(svc AdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := svc.ForceRelease(r.Context(), id); err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeAdminStockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrSlugRequired):
		writeError(w, http.StatusBadRequest, codeSlugRequired, err.Error())
	case errors.Is(err, domain.ErrVariantNotFound):
		writeError(w, http.StatusNotFound, codeVariantNotFound, err.Error())
	case errors.Is(err, domain.ErrWarehouseNotFound):
		writeError(w, http.StatusNotFound, codeWarehouseNotFound, err.Error())
	case errors.Is(err, domain.ErrStockRecordNotFound):
		writeError(w, http.StatusNotFound, codeStockRecordNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type createWarehouseRequest struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

type warehouseResponse struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

func toWarehouseResponse(w domain.Warehouse) warehouseResponse {
	return warehouseResponse{Slug: w.Slug, Name: w.Name, Priority: w.Priority}
}

type createVariantRequest struct {
	SKU        string            `json:"sku"`
	ProductRef string            `json:"product_ref"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

type variantResponse struct {
	SKU        string            `json:"sku"`
	ProductRef string            `json:"product_ref"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

func toVariantResponse(v domain.ProductVariant) variantResponse {
	return variantResponse{
		SKU:        v.SKU,
		ProductRef: v.ProductRef,
		Name:       v.Name,
		Attributes: v.Attributes,
	}
}

type upsertStockRequest struct {
	SKU               string     `json:"sku"`
	Warehouse         string     `json:"warehouse"`
	OnHand            int        `json:"on_hand"`
	BackorderAllowed  bool       `json:"backorder_allowed"`
	BackorderLimit    int        `json:"backorder_limit"`
	PreorderReleaseAt *time.Time `json:"preorder_release_at,omitempty"`
}

type adjustStockRequest struct {
	SKU       string `json:"sku"`
	Warehouse string `json:"warehouse"`
	Delta     int    `json:"delta"`
}

type stockRecordResponse struct {
	SKU               string     `json:"sku"`
	Warehouse         string     `json:"warehouse"`
	OnHand            int        `json:"on_hand"`
	Reserved          int        `json:"reserved"`
	Available         int        `json:"available"`
	BackorderAllowed  bool       `json:"backorder_allowed"`
	BackorderLimit    int        `json:"backorder_limit"`
	PreorderReleaseAt *time.Time `json:"preorder_release_at,omitempty"`
}

func toStockRecordResponse(rec domain.StockRecord) stockRecordResponse {
	return stockRecordResponse{
		SKU:               rec.SKU,
		Warehouse:         rec.WarehouseSlug,
		OnHand:            rec.OnHand,
		Reserved:          rec.Reserved,
		Available:         rec.Available(),
		BackorderAllowed:  rec.BackorderAllowed,
		BackorderLimit:    rec.BackorderLimit,
		PreorderReleaseAt: rec.PreorderReleaseAt,
	}
}

type reservationResponse struct {
	ID            string    `json:"id"`
	SKU           string    `json:"sku"`
	Warehouse     string    `json:"warehouse"`
	CheckoutToken string    `json:"checkout_token"`
	Quantity      int       `json:"quantity"`
	Status        string    `json:"status"`
	Preorder      bool      `json:"preorder,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            res.ID,
		SKU:           res.SKU,
		Warehouse:     res.WarehouseSlug,
		CheckoutToken: res.CheckoutToken,
		Quantity:      res.Quantity,
		Status:        string(res.Status),
		Preorder:      res.Preorder,
		ExpiresAt:     res.ExpiresAt,
	}
}
