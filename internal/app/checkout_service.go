package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// CheckoutRepository persists checkout aggregates and their lines.
type CheckoutRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateCheckout(ctx context.Context, checkout domain.Checkout) error
	GetCheckout(ctx context.Context, token string) (domain.Checkout, error)
	GetCheckoutForUpdate(ctx context.Context, token string) (domain.Checkout, error)
	UpsertLine(ctx context.Context, token string, line domain.CheckoutLine) error
	DeleteLine(ctx context.Context, token, sku string) error
	UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error
	SetAuthorization(ctx context.Context, token, authorizationID string) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
}

// CheckoutService drives the checkout lifecycle: accumulating reserved line
// items while open, transitioning to awaiting payment once every line holds
// a live reservation, and abandoning on cancellation.
type CheckoutService struct {
	repo         CheckoutRepository
	reservations *ReservationService
	catalog      Catalog
	pricing      PricingEngine
	gateway      PaymentGateway
	clock        clock.Clock
	logger       *zap.Logger
}

func NewCheckoutService(
	repo CheckoutRepository,
	reservations *ReservationService,
	catalog Catalog,
	pricing PricingEngine,
	gateway PaymentGateway,
	clk clock.Clock,
	opts ...CheckoutServiceOption,
) *CheckoutService {
	svc := &CheckoutService{
		repo:         repo,
		reservations: reservations,
		catalog:      catalog,
		pricing:      pricing,
		gateway:      gateway,
		clock:        clk,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CheckoutServiceOption func(*CheckoutService)

func WithCheckoutLogger(logger *zap.Logger) CheckoutServiceOption {
	return func(s *CheckoutService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Create opens a new checkout for the customer.
func (s *CheckoutService) Create(ctx context.Context, customerRef string) (domain.Checkout, error) {
	now := s.clock.Now()
	checkout := domain.Checkout{
		Token:       newID(),
		CustomerRef: customerRef,
		Status:      domain.CheckoutStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCheckout(ctx, checkout); err != nil {
		return domain.Checkout{}, err
	}
	return checkout, nil
}

// Get returns the checkout with its lines.
func (s *CheckoutService) Get(ctx context.Context, token string) (domain.Checkout, error) {
	return s.repo.GetCheckout(ctx, token)
}

type LineItemInput struct {
	SKU       string
	Quantity  int
	Warehouse string
	TTL       time.Duration
}

// ItemResult reports the outcome for one line item of an AddItems call.
type ItemResult struct {
	SKU           string
	ReservationID string
	ExpiresAt     time.Time
	Err           error
}

// AddItemsResult aggregates per-item outcomes. Failed is true when at least
// one item could not be reserved; successful items keep their reservations.
type AddItemsResult struct {
	Items  []ItemResult
	Failed bool
}

// AddItems reserves stock and upserts a checkout line per item. Items are
// processed independently: one item failing to reserve never disturbs the
// reservations already taken for the others, and the result names exactly
// which items failed so the caller can retry or drop them. Any stored
// payment authorization is invalidated, since the total no longer matches.
func (s *CheckoutService) AddItems(ctx context.Context, token string, items []LineItemInput) (AddItemsResult, error) {
	checkout, err := s.repo.GetCheckout(ctx, token)
	if err != nil {
		return AddItemsResult{}, err
	}
	if !checkout.Mutable() {
		return AddItemsResult{}, domain.ErrCheckoutImmutable
	}

	result := AddItemsResult{Items: make([]ItemResult, 0, len(items))}
	for _, item := range items {
		res := s.addItem(ctx, token, item)
		if res.Err != nil {
			result.Failed = true
		}
		result.Items = append(result.Items, res)
	}
	return result, nil
}

// addItem runs one item's reservation and line upsert in a single
// transaction, so a line never exists without a backing reservation. The
// checkout row is locked and re-read inside the transaction; concurrent
// adds of the same SKU serialize on that lock instead of stacking holds.
func (s *CheckoutService) addItem(ctx context.Context, token string, item LineItemInput) ItemResult {
	out := ItemResult{SKU: item.SKU}
	if item.Quantity <= 0 {
		out.Err = domain.ErrInvalidQuantity
		return out
	}

	if _, err := s.catalog.LookupVariant(ctx, item.SKU); err != nil {
		out.Err = err
		return out
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		checkout, err := s.repo.GetCheckoutForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if !checkout.Mutable() {
			return domain.ErrCheckoutImmutable
		}

		// A quantity change swaps the line onto a fresh hold. The prior
		// hold is released first so the swap only ever needs the new
		// quantity's worth of stock; the transaction restores it if the
		// reserve below fails.
		prior, hadLine := checkout.LineFor(item.SKU)
		if hadLine {
			if err := s.reservations.Release(txCtx, prior.ReservationID); err != nil {
				return err
			}
		}

		res, err := s.reservations.Reserve(txCtx, ReserveInput{
			SKU:           item.SKU,
			CheckoutToken: token,
			Quantity:      item.Quantity,
			Warehouse:     item.Warehouse,
			TTL:           item.TTL,
		})
		if err != nil {
			return err
		}

		position := prior.Position
		if !hadLine {
			position = len(checkout.Lines)
		}
		if err := s.repo.UpsertLine(txCtx, token, domain.CheckoutLine{
			SKU:           item.SKU,
			Quantity:      item.Quantity,
			ReservationID: res.ID,
			Position:      position,
		}); err != nil {
			return err
		}
		if err := s.invalidateAuthorization(txCtx, checkout); err != nil {
			return err
		}

		out.ReservationID = res.ID
		out.ExpiresAt = res.ExpiresAt
		return nil
	})
	if err != nil {
		out.Err = err
	}
	return out
}

// invalidateAuthorization drops a stored authorization after a line
// mutation and bounces the checkout back to open, forcing a fresh
// BeginPayment so the authorized amount always matches the lines.
func (s *CheckoutService) invalidateAuthorization(ctx context.Context, checkout domain.Checkout) error {
	if checkout.AuthorizationID == "" && checkout.Status != domain.CheckoutStatusAwaitingPayment {
		return nil
	}
	if checkout.AuthorizationID != "" {
		if err := s.repo.SetAuthorization(ctx, checkout.Token, ""); err != nil {
			return err
		}
	}
	if checkout.Status == domain.CheckoutStatusAwaitingPayment {
		return s.repo.UpdateCheckoutStatus(ctx, checkout.Token, domain.CheckoutStatusOpen)
	}
	return nil
}

// RemoveItem releases the line's reservation and deletes the line. Like
// AddItems, it invalidates any stored payment authorization.
func (s *CheckoutService) RemoveItem(ctx context.Context, token, sku string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		checkout, err := s.repo.GetCheckoutForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if !checkout.Mutable() {
			return domain.ErrCheckoutImmutable
		}

		line, ok := checkout.LineFor(sku)
		if !ok {
			return nil
		}
		if err := s.reservations.Release(txCtx, line.ReservationID); err != nil {
			return err
		}
		if err := s.repo.DeleteLine(txCtx, token, sku); err != nil {
			return err
		}
		return s.invalidateAuthorization(txCtx, checkout)
	})
}

// BeginPayment verifies every line holds a live reservation, prices the
// checkout, authorizes payment, and transitions open to awaiting_payment.
// It fails with domain.ErrIncompleteCheckout when any line's hold has
// lapsed, and with domain.ErrPaymentDeclined when authorization fails.
func (s *CheckoutService) BeginPayment(ctx context.Context, token string) (domain.Checkout, error) {
	now := s.clock.Now()
	var checkout domain.Checkout
	var total domain.Money

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		c, err := s.repo.GetCheckoutForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		if c.Status != domain.CheckoutStatusOpen && c.Status != domain.CheckoutStatusAwaitingPayment {
			return domain.ErrCheckoutImmutable
		}
		if len(c.Lines) == 0 {
			return domain.ErrIncompleteCheckout
		}

		for _, line := range c.Lines {
			res, err := s.repo.GetReservation(txCtx, line.ReservationID)
			if err != nil {
				return err
			}
			if !res.Live(now) {
				return domain.ErrIncompleteCheckout
			}
		}

		amount, err := s.priceCheckout(txCtx, c)
		if err != nil {
			return err
		}
		total = amount

		if c.Status == domain.CheckoutStatusOpen {
			if err := s.repo.UpdateCheckoutStatus(txCtx, token, domain.CheckoutStatusAwaitingPayment); err != nil {
				return err
			}
			c.Status = domain.CheckoutStatusAwaitingPayment
		}
		checkout = c
		return nil
	})
	if err != nil {
		return domain.Checkout{}, err
	}

	if checkout.AuthorizationID != "" {
		return checkout, nil
	}

	authID, err := s.gateway.Authorize(ctx, token, total)
	if err != nil {
		s.logger.Warn("payment authorization failed",
			zap.String("checkout", token),
			zap.Error(err),
		)
		if revertErr := s.repo.UpdateCheckoutStatus(ctx, token, domain.CheckoutStatusOpen); revertErr != nil {
			s.logger.Error("failed to revert checkout after declined authorization",
				zap.String("checkout", token),
				zap.Error(revertErr),
			)
		}
		return domain.Checkout{}, domain.ErrPaymentDeclined
	}

	if err := s.repo.SetAuthorization(ctx, token, authID); err != nil {
		return domain.Checkout{}, err
	}
	checkout.AuthorizationID = authID
	return checkout, nil
}

// Abandon cancels an open or awaiting-payment checkout and releases every
// line reservation. Abandoning an already-abandoned checkout is a no-op.
func (s *CheckoutService) Abandon(ctx context.Context, token string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		checkout, err := s.repo.GetCheckoutForUpdate(txCtx, token)
		if err != nil {
			return err
		}
		switch checkout.Status {
		case domain.CheckoutStatusAbandoned:
			return nil
		case domain.CheckoutStatusCompleted:
			return domain.ErrCheckoutImmutable
		}

		for _, line := range checkout.Lines {
			if err := s.reservations.Release(txCtx, line.ReservationID); err != nil {
				return err
			}
		}
		return s.repo.UpdateCheckoutStatus(txCtx, token, domain.CheckoutStatusAbandoned)
	})
}

func (s *CheckoutService) priceCheckout(ctx context.Context, checkout domain.Checkout) (domain.Money, error) {
	var total domain.Money
	for i, line := range checkout.Lines {
		variant, err := s.catalog.LookupVariant(ctx, line.SKU)
		if err != nil {
			return domain.Money{}, err
		}
		unit, err := s.pricing.PriceFor(ctx, variant, line.Quantity, checkout.CustomerRef)
		if err != nil {
			return domain.Money{}, err
		}
		lineTotal := unit.Mul(line.Quantity)
		if i == 0 {
			total = lineTotal
			continue
		}
		total, err = total.Add(lineTotal)
		if err != nil {
			return domain.Money{}, err
		}
	}
	return total, nil
}
