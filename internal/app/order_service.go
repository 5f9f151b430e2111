package app

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// OrderRepository persists orders and the conversion bookkeeping around them.
type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetCheckoutForUpdate(ctx context.Context, token string) (domain.Checkout, error)
	GetOrderByCheckoutToken(ctx context.Context, token string) (*domain.Order, error)
	GetOrder(ctx context.Context, number string) (domain.Order, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error)
	// ApplyCommit decrements both on-hand and reserved by qty for a record
	// the caller has locked.
	ApplyCommit(ctx context.Context, sku, warehouse string, qty int) error
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	CreateOrder(ctx context.Context, order domain.Order) error
	UpdateOrderPaymentStatus(ctx context.Context, number string, status domain.PaymentStatus) error
	UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error
}

// OrderService converts finalized checkouts into immutable orders. The
// commit is all-or-nothing: it never leaves the ledger decremented without
// an order, nor produces an order whose quantities were not reserved.
type OrderService struct {
	repo     OrderRepository
	catalog  Catalog
	pricing  PricingEngine
	gateway  PaymentGateway
	notifier OrderNotifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewOrderService(
	repo OrderRepository,
	catalog Catalog,
	pricing PricingEngine,
	gateway PaymentGateway,
	notifier OrderNotifier,
	clk clock.Clock,
	opts ...OrderServiceOption,
) *OrderService {
	svc := &OrderService{
		repo:     repo,
		catalog:  catalog,
		pricing:  pricing,
		gateway:  gateway,
		notifier: notifier,
		clock:    clk,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type OrderServiceOption func(*OrderService)

func WithOrderLogger(logger *zap.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type ConvertResult struct {
	Order   domain.Order
	Created bool
}

// CreateOrderFromCheckout commits a checkout's reservations into an order.
// Preconditions: the checkout is awaiting payment with a stored
// authorization. In one transaction it re-validates every reservation,
// decrements the ledger, snapshots prices, writes the order, and completes
// the checkout. A lapsed reservation aborts the whole conversion with
// domain.ErrStaleReservation and nothing is mutated.
func (s *OrderService) CreateOrderFromCheckout(ctx context.Context, token string) (ConvertResult, error) {
	now := s.clock.Now()
	var result ConvertResult
	var authorizationID string

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		checkout, err := s.repo.GetCheckoutForUpdate(txCtx, token)
		if err != nil {
			return err
		}

		switch checkout.Status {
		case domain.CheckoutStatusCompleted:
			existing, err := s.repo.GetOrderByCheckoutToken(txCtx, token)
			if err != nil {
				return err
			}
			if existing == nil {
				return domain.ErrAlreadyConverted
			}
			result = ConvertResult{Order: *existing, Created: false}
			return nil
		case domain.CheckoutStatusAwaitingPayment:
		default:
			return domain.ErrIncompleteCheckout
		}
		if checkout.AuthorizationID == "" {
			return domain.ErrPaymentNotAuthorized
		}
		authorizationID = checkout.AuthorizationID
		if len(checkout.Lines) == 0 {
			return domain.ErrIncompleteCheckout
		}

		reservations := make(map[string]domain.Reservation, len(checkout.Lines))
		for _, line := range checkout.Lines {
			res, err := s.repo.GetReservationForUpdate(txCtx, line.ReservationID)
			if err != nil {
				return err
			}
			if !res.Live(now) {
				return domain.ErrStaleReservation
			}
			if res.Quantity != line.Quantity {
				return domain.ErrStaleReservation
			}
			reservations[line.ReservationID] = res
		}

		// Lock records in deterministic order so concurrent conversions
		// cannot deadlock.
		lines := append([]domain.CheckoutLine(nil), checkout.Lines...)
		sort.SliceStable(lines, func(i, j int) bool {
			ri, rj := reservations[lines[i].ReservationID], reservations[lines[j].ReservationID]
			if ri.SKU != rj.SKU {
				return ri.SKU < rj.SKU
			}
			return ri.WarehouseSlug < rj.WarehouseSlug
		})

		for _, line := range lines {
			res := reservations[line.ReservationID]
			if _, err := s.repo.GetRecordForUpdate(txCtx, res.SKU, res.WarehouseSlug); err != nil {
				return err
			}
			if err := s.repo.ApplyCommit(txCtx, res.SKU, res.WarehouseSlug, res.Quantity); err != nil {
				return err
			}
			if err := s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationStatusCommitted); err != nil {
				return err
			}
		}

		order, err := s.buildOrder(txCtx, checkout, reservations, now)
		if err != nil {
			return err
		}
		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}
		if err := s.repo.UpdateCheckoutStatus(txCtx, token, domain.CheckoutStatusCompleted); err != nil {
			return err
		}

		result = ConvertResult{Order: order, Created: true}
		return nil
	})
	if err != nil {
		return ConvertResult{}, err
	}

	if result.Created {
		s.settle(ctx, result.Order, authorizationID)
	}
	return result, nil
}

// settle runs the post-commit side effects: payment capture and the order
// event. Neither failure rolls the conversion back; both are logged for
// operator follow-up.
func (s *OrderService) settle(ctx context.Context, order domain.Order, authorizationID string) {
	if err := s.gateway.Capture(ctx, authorizationID); err != nil {
		s.logger.Error("payment capture failed",
			zap.String("order", order.Number),
			zap.Error(err),
		)
	} else if err := s.repo.UpdateOrderPaymentStatus(ctx, order.Number, domain.PaymentStatusCaptured); err != nil {
		s.logger.Error("failed to record captured payment",
			zap.String("order", order.Number),
			zap.Error(err),
		)
	}

	event := domain.OrderCreatedEvent{
		OrderNumber:   order.Number,
		CheckoutToken: order.CheckoutToken,
		CustomerRef:   order.CustomerRef,
		TotalAmount:   order.Total.Amount,
		Currency:      order.Total.Currency,
		OccurredAt:    order.CreatedAt,
	}
	for _, line := range order.Lines {
		event.Lines = append(event.Lines, domain.OrderEventLine{
			SKU:        line.SKU,
			Warehouse:  line.WarehouseSlug,
			Quantity:   line.Quantity,
			UnitAmount: line.UnitPrice.Amount,
		})
	}
	if err := s.notifier.OrderCreated(ctx, event); err != nil {
		s.logger.Error("order event publish failed",
			zap.String("order", order.Number),
			zap.Error(err),
		)
	}
}

func (s *OrderService) buildOrder(
	ctx context.Context,
	checkout domain.Checkout,
	reservations map[string]domain.Reservation,
	now time.Time,
) (domain.Order, error) {
	order := domain.Order{
		Number:            newOrderNumber(),
		CheckoutToken:     checkout.Token,
		CustomerRef:       checkout.CustomerRef,
		PaymentStatus:     domain.PaymentStatusAuthorized,
		FulfillmentStatus: domain.FulfillmentStatusUnfulfilled,
		CreatedAt:         now,
	}

	for i, line := range checkout.Lines {
		variant, err := s.catalog.LookupVariant(ctx, line.SKU)
		if err != nil {
			return domain.Order{}, err
		}
		unit, err := s.pricing.PriceFor(ctx, variant, line.Quantity, checkout.CustomerRef)
		if err != nil {
			return domain.Order{}, err
		}

		res := reservations[line.ReservationID]
		order.Lines = append(order.Lines, domain.OrderLine{
			SKU:           line.SKU,
			WarehouseSlug: res.WarehouseSlug,
			Quantity:      line.Quantity,
			UnitPrice:     unit,
			Position:      i,
		})

		lineTotal := unit.Mul(line.Quantity)
		if i == 0 {
			order.Total = lineTotal
			continue
		}
		total, err := order.Total.Add(lineTotal)
		if err != nil {
			return domain.Order{}, err
		}
		order.Total = total
	}
	return order, nil
}
