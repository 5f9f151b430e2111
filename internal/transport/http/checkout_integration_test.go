package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/katlegobruce88/quickcart/internal/app"
	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
	"github.com/katlegobruce88/quickcart/internal/notify"
	"github.com/katlegobruce88/quickcart/internal/storage/postgres"
	"github.com/katlegobruce88/quickcart/internal/testutil"
)

type recordingGateway struct {
	authorized int
	captured   []string
}

func (g *recordingGateway) Authorize(_ context.Context, token string, _ domain.Money) (string, error) {
	g.authorized++
	return "auth-" + token, nil
}

func (g *recordingGateway) Capture(_ context.Context, authorizationID string) error {
	g.captured = append(g.captured, authorizationID)
	return nil
}

// Runs the whole storefront flow over the real router and database: open a
// checkout, reserve two shirts, pay, convert, and verify the ledger moved.
func TestCheckoutFlow_HTTPIntegration(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	testutil.InsertWarehouse(t, ctx, pool, "west", 1)
	testutil.InsertVariant(t, ctx, pool, "TSHIRT-M", map[string]string{
		"unit_price": "1999",
		"currency":   "USD",
	})
	testutil.InsertStockRecord(t, ctx, pool, domain.StockRecord{
		SKU: "TSHIRT-M", WarehouseSlug: "west", OnHand: 5,
	})

	clk := clock.NewSystem()
	catalog := postgres.NewCatalogRepository(pool)
	pricing := app.NewAttributePricingEngine("USD")
	gateway := &recordingGateway{}

	stock := app.NewStockService(postgres.NewStockRepository(pool), clk)
	reservations := app.NewReservationService(postgres.NewReservationRepository(pool), clk)
	checkouts := app.NewCheckoutService(postgres.NewCheckoutRepository(pool), reservations, catalog, pricing, gateway, clk)
	orders := app.NewOrderService(postgres.NewOrderRepository(pool), catalog, pricing, gateway, notify.NoopNotifier{}, clk)
	admin := app.NewAdminService(postgres.NewAdminRepository(pool), stock, reservations, clk)

	handler := NewRouter(RouterConfig{
		Checkouts: checkouts,
		Orders:    orders,
		Stock:     stock,
		Admin:     admin,
	})

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	// Open a checkout.
	rec := do(http.MethodPost, "/checkouts", `{"customer_ref":"cust-1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create checkout: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created checkoutResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode checkout: %v", err)
	}
	token := created.Token

	// Reserve two shirts.
	rec = do(http.MethodPost, "/checkouts/"+token+"/items", `{"items":[{"sku":"TSHIRT-M","quantity":2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add items: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Availability reflects the hold while stock stays on hand.
	rec = do(http.MethodGet, "/stock/TSHIRT-M/west", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("availability: expected 200, got %d", rec.Code)
	}
	var avail availabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.Available != 3 {
		t.Fatalf("expected 3 available, got %d", avail.Available)
	}

	// Authorize payment.
	rec = do(http.MethodPost, "/checkouts/"+token+"/payment", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("begin payment: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gateway.authorized != 1 {
		t.Fatalf("expected 1 authorization, got %d", gateway.authorized)
	}

	// Convert to an order.
	rec = do(http.MethodPost, "/checkouts/"+token+"/convert", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("convert: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var order orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if !strings.HasPrefix(order.Number, "QC-") {
		t.Fatalf("unexpected order number %q", order.Number)
	}
	if order.Total.Amount != 3998 || order.Total.Currency != "USD" {
		t.Fatalf("unexpected total: %+v", order.Total)
	}

	// Converting again replays the same order.
	rec = do(http.MethodPost, "/checkouts/"+token+"/convert", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reconvert: expected 200, got %d", rec.Code)
	}
	var replay orderResponse
	if err := json.NewDecoder(rec.Body).Decode(&replay); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replay.Number != order.Number {
		t.Fatalf("expected same order number on replay, got %s and %s", order.Number, replay.Number)
	}
	if len(gateway.captured) != 1 {
		t.Fatalf("expected 1 capture, got %d", len(gateway.captured))
	}

	// The ledger committed the sale.
	var onHand, reserved int
	query := `SELECT on_hand, reserved FROM stock_records WHERE sku = $1 AND warehouse_slug = $2`
	if err := pool.QueryRow(ctx, query, "TSHIRT-M", "west").Scan(&onHand, &reserved); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	if onHand != 3 || reserved != 0 {
		t.Fatalf("expected on_hand 3 reserved 0, got %d/%d", onHand, reserved)
	}

	var status string
	if err := pool.QueryRow(ctx, `SELECT status FROM checkouts WHERE token = $1`, token).Scan(&status); err != nil {
		t.Fatalf("query checkout: %v", err)
	}
	if status != string(domain.CheckoutStatusCompleted) {
		t.Fatalf("expected completed checkout, got %s", status)
	}
}
