package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterConfig collects the services the router exposes.
type RouterConfig struct {
	Checkouts      CheckoutService
	Orders         OrderConverter
	Stock          AvailabilityReader
	Admin          AdminService
	Logger         *zap.Logger
	AllowedOrigins []string
}

// NewRouter wires all endpoints onto a chi router with the standard
// middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Timeout(60 * time.Second))
	router.Use(func(next http.Handler) http.Handler {
		return RequestLogger(next, cfg.Logger)
	})

	router.NotFound(NotFoundHandler().ServeHTTP)
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	router.Get("/healthz", HealthHandler)

	router.Get("/stock/{sku}/{warehouse}", HandleAvailability(cfg.Stock))

	router.Route("/checkouts", func(r chi.Router) {
		r.Post("/", HandleCreateCheckout(cfg.Checkouts))
		r.Get("/{token}", HandleGetCheckout(cfg.Checkouts))
		r.Post("/{token}/items", HandleAddItems(cfg.Checkouts))
		r.Delete("/{token}/items/{sku}", HandleRemoveItem(cfg.Checkouts))
		r.Post("/{token}/payment", HandleBeginPayment(cfg.Checkouts))
		r.Post("/{token}/abandon", HandleAbandonCheckout(cfg.Checkouts))
		r.Post("/{token}/convert", HandleConvertCheckout(cfg.Orders))
	})

	router.Route("/admin", func(r chi.Router) {
		r.HandleFunc("/warehouses", HandleAdminWarehouses(cfg.Admin))
		r.Post("/variants", HandleAdminVariants(cfg.Admin))
		r.HandleFunc("/stock", HandleAdminStock(cfg.Admin))
		r.Post("/stock/adjust", HandleAdminStockAdjust(cfg.Admin))
		r.Get("/checkouts/{token}/reservations", HandleAdminReservations(cfg.Admin))
		r.Post("/reservations/{id}/release", HandleAdminForceRelease(cfg.Admin))
	})

	return CORS(cfg.AllowedOrigins, router)
}
