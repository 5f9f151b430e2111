package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/katlegobruce88/quickcart/internal/domain"
	"github.com/katlegobruce88/quickcart/internal/testutil"
)

func TestOrderRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewOrderRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	now := time.Now().UTC().Truncate(time.Microsecond)

	seed := func(ctx context.Context) string {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertWarehouse(t, ctx, pool, "west", 1)
		testutil.InsertVariant(t, ctx, pool, "TSHIRT-M", nil)
		testutil.InsertStockRecord(t, ctx, pool, domain.StockRecord{
			SKU: "TSHIRT-M", WarehouseSlug: "west", OnHand: 5, Reserved: 2,
		})
		return testutil.InsertCheckout(t, ctx, pool, domain.CheckoutStatusAwaitingPayment)
	}

	order := func(number, token string) domain.Order {
		return domain.Order{
			Number:            number,
			CheckoutToken:     token,
			CustomerRef:       "cust-1",
			PaymentStatus:     domain.PaymentStatusAuthorized,
			FulfillmentStatus: domain.FulfillmentStatusUnfulfilled,
			Total:             domain.Money{Amount: 3998, Currency: "USD"},
			Lines: []domain.OrderLine{
				{SKU: "TSHIRT-M", WarehouseSlug: "west", Quantity: 2, UnitPrice: domain.Money{Amount: 1999, Currency: "USD"}, Position: 0},
			},
			CreatedAt: now,
		}
	}

	t.Run("CreateOrder round trip with lines", func(t *testing.T) {
		ctx := context.Background()
		token := seed(ctx)

		if err := repo.CreateOrder(ctx, order("QC-001", token)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.GetOrder(ctx, "QC-001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.CheckoutToken != token || got.Total.Amount != 3998 || got.Total.Currency != "USD" {
			t.Fatalf("unexpected order: %+v", got)
		}
		if len(got.Lines) != 1 {
			t.Fatalf("expected 1 line, got %d", len(got.Lines))
		}
		line := got.Lines[0]
		if line.SKU != "TSHIRT-M" || line.Quantity != 2 || line.UnitPrice.Amount != 1999 {
			t.Fatalf("unexpected line: %+v", line)
		}
	})

	t.Run("GetOrderByCheckoutToken returns nil when unconverted", func(t *testing.T) {
		ctx := context.Background()
		token := seed(ctx)

		got, err := repo.GetOrderByCheckoutToken(ctx, token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}

		if err := repo.CreateOrder(ctx, order("QC-002", token)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, err = repo.GetOrderByCheckoutToken(ctx, token)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got == nil || got.Number != "QC-002" {
			t.Fatalf("unexpected order: %+v", got)
		}
	})

	t.Run("second order for a checkout is rejected", func(t *testing.T) {
		ctx := context.Background()
		token := seed(ctx)

		if err := repo.CreateOrder(ctx, order("QC-003", token)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.CreateOrder(ctx, order("QC-004", token)); err != domain.ErrAlreadyConverted {
			t.Fatalf("expected ErrAlreadyConverted, got %v", err)
		}
	})

	t.Run("ApplyCommit moves stock out of both counters", func(t *testing.T) {
		ctx := context.Background()
		seed(ctx)

		if err := repo.ApplyCommit(ctx, "TSHIRT-M", "west", 2); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		rec, err := repo.GetRecordForUpdate(ctx, "TSHIRT-M", "west")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.OnHand != 3 || rec.Reserved != 0 {
			t.Fatalf("expected on_hand 3 reserved 0, got %d/%d", rec.OnHand, rec.Reserved)
		}

		if err := repo.ApplyCommit(ctx, "TSHIRT-M", "missing", 1); err != domain.ErrStockRecordNotFound {
			t.Fatalf("expected ErrStockRecordNotFound, got %v", err)
		}
	})

	t.Run("ApplyCommit drives a backorder record negative", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertWarehouse(t, ctx, pool, "west", 1)
		testutil.InsertVariant(t, ctx, pool, "TSHIRT-M", nil)
		testutil.InsertStockRecord(t, ctx, pool, domain.StockRecord{
			SKU: "TSHIRT-M", WarehouseSlug: "west", OnHand: 1, Reserved: 4,
			BackorderAllowed: true, BackorderLimit: 5,
		})

		if err := repo.ApplyCommit(ctx, "TSHIRT-M", "west", 4); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		rec, err := repo.GetRecordForUpdate(ctx, "TSHIRT-M", "west")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.OnHand != -3 || rec.Reserved != 0 {
			t.Fatalf("expected on_hand -3 reserved 0, got %d/%d", rec.OnHand, rec.Reserved)
		}
	})

	t.Run("UpdateOrderPaymentStatus", func(t *testing.T) {
		ctx := context.Background()
		token := seed(ctx)

		if err := repo.CreateOrder(ctx, order("QC-005", token)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.UpdateOrderPaymentStatus(ctx, "QC-005", domain.PaymentStatusCaptured); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.GetOrder(ctx, "QC-005")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.PaymentStatus != domain.PaymentStatusCaptured {
			t.Fatalf("expected captured, got %s", got.PaymentStatus)
		}

		if err := repo.UpdateOrderPaymentStatus(ctx, "QC-999", domain.PaymentStatusCaptured); err != domain.ErrOrderNotFound {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})
}
