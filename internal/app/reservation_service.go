package app

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// RoutedStockRecord pairs a ledger record with its warehouse routing priority.
type RoutedStockRecord struct {
	domain.StockRecord
	Priority int
}

// ReservationRepository persists reservations and the stock records they
// hold. Record rows are the unit of mutual exclusion: every quantity change
// happens under GetRecordForUpdate / ListRecordsBySKUForUpdate row locks.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetReservation(ctx context.Context, id string) (domain.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	CreateReservation(ctx context.Context, res domain.Reservation) error
	UpdateReservationStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	UpdateReservationExpiry(ctx context.Context, id string, expiresAt time.Time) error
	GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error)
	// ListRecordsBySKUForUpdate locks every record for the SKU in
	// deterministic (sku, warehouse) order and returns them with their
	// warehouse priority.
	ListRecordsBySKUForUpdate(ctx context.Context, sku string) ([]RoutedStockRecord, error)
	AdjustReserved(ctx context.Context, sku, warehouse string, delta int) error
	ReclaimExpired(ctx context.Context, sku, warehouse string, now time.Time) (int, error)
	ListDueReservations(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	// ListLapsedCheckoutTokens returns open or awaiting-payment checkouts
	// that have at least one line and no line with a live reservation.
	ListLapsedCheckoutTokens(ctx context.Context, now time.Time) ([]string, error)
	UpdateCheckoutStatus(ctx context.Context, token string, status domain.CheckoutStatus) error
}

// ReservationService creates, extends, releases, and sweeps time-bounded
// holds on stock.
type ReservationService struct {
	repo       ReservationRepository
	clock      clock.Clock
	defaultTTL time.Duration
	logger     *zap.Logger
}

const defaultReservationTTL = 15 * time.Minute

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:       repo,
		clock:      clk,
		defaultTTL: defaultReservationTTL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationServiceOption func(*ReservationService)

// WithReservationTTL overrides the default TTL for new reservations.
func WithReservationTTL(d time.Duration) ReservationServiceOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.defaultTTL = d
		}
	}
}

func WithReservationLogger(logger *zap.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type ReserveInput struct {
	SKU           string
	CheckoutToken string
	Quantity      int
	// Warehouse pins the reservation to one warehouse. Empty means the
	// routing policy picks: highest availability, ties broken by
	// ascending warehouse priority.
	Warehouse string
	TTL       time.Duration
}

// Reserve places a hold on stock. It fails with domain.ErrOutOfStock when no
// warehouse, including backorder-enabled ones, can satisfy the quantity.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Reservation, error) {
	if in.Quantity <= 0 {
		return domain.Reservation{}, domain.ErrInvalidQuantity
	}

	ttl := in.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		rec, err := s.lockTarget(txCtx, in, now)
		if err != nil {
			return err
		}

		res := domain.Reservation{
			ID:            newID(),
			SKU:           in.SKU,
			WarehouseSlug: rec.WarehouseSlug,
			CheckoutToken: in.CheckoutToken,
			Quantity:      in.Quantity,
			Status:        domain.ReservationStatusActive,
			Preorder:      rec.IsPreorder(now),
			ExpiresAt:     now.Add(ttl),
			CreatedAt:     now,
		}

		if err := s.repo.CreateReservation(txCtx, res); err != nil {
			return err
		}
		if err := s.repo.AdjustReserved(txCtx, rec.SKU, rec.WarehouseSlug, in.Quantity); err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// lockTarget locks the stock record that will take the hold. A pinned
// warehouse is locked directly; otherwise all records for the SKU are locked
// in deterministic order and the routing policy picks among them.
func (s *ReservationService) lockTarget(ctx context.Context, in ReserveInput, now time.Time) (domain.StockRecord, error) {
	if in.Warehouse != "" {
		rec, err := s.repo.GetRecordForUpdate(ctx, in.SKU, in.Warehouse)
		if err != nil {
			return domain.StockRecord{}, err
		}
		reclaimed, err := s.repo.ReclaimExpired(ctx, in.SKU, in.Warehouse, now)
		if err != nil {
			return domain.StockRecord{}, err
		}
		rec.Reserved -= reclaimed
		if !rec.CanReserve(in.Quantity) {
			return domain.StockRecord{}, domain.ErrOutOfStock
		}
		return rec, nil
	}

	records, err := s.repo.ListRecordsBySKUForUpdate(ctx, in.SKU)
	if err != nil {
		return domain.StockRecord{}, err
	}
	if len(records) == 0 {
		return domain.StockRecord{}, domain.ErrOutOfStock
	}

	for i := range records {
		reclaimed, err := s.repo.ReclaimExpired(ctx, in.SKU, records[i].WarehouseSlug, now)
		if err != nil {
			return domain.StockRecord{}, err
		}
		records[i].Reserved -= reclaimed
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Available() != records[j].Available() {
			return records[i].Available() > records[j].Available()
		}
		return records[i].Priority < records[j].Priority
	})

	for _, rec := range records {
		if rec.CanReserve(in.Quantity) {
			return rec.StockRecord, nil
		}
	}
	return domain.StockRecord{}, domain.ErrOutOfStock
}

// Release removes a hold and returns its stock. It is idempotent: releasing
// a missing, expired, or already-released reservation is a no-op.
func (s *ReservationService) Release(ctx context.Context, id string) error {
	now := s.clock.Now()

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			if err == domain.ErrReservationNotFound {
				return nil
			}
			return err
		}
		if res.Status != domain.ReservationStatusActive {
			return nil
		}

		if _, err := s.repo.GetRecordForUpdate(txCtx, res.SKU, res.WarehouseSlug); err != nil {
			return err
		}

		status := domain.ReservationStatusReleased
		if !res.ExpiresAt.After(now) {
			status = domain.ReservationStatusExpired
		}
		if err := s.repo.UpdateReservationStatus(txCtx, id, status); err != nil {
			return err
		}
		return s.repo.AdjustReserved(txCtx, res.SKU, res.WarehouseSlug, -res.Quantity)
	})
}

// Extend pushes a live reservation's expiry to now + ttl. It fails with
// domain.ErrReservationExpired when the reservation has already lapsed or
// is no longer active.
func (s *ReservationService) Extend(ctx context.Context, id string, ttl time.Duration) (domain.Reservation, error) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetReservationForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !res.Live(now) {
			return domain.ErrReservationExpired
		}

		res.ExpiresAt = now.Add(ttl)
		if err := s.repo.UpdateReservationExpiry(txCtx, id, res.ExpiresAt); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return result, nil
}

// Get returns a reservation by ID.
func (s *ReservationService) Get(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

const sweepBatchSize = 200

// ExpireStale sweeps lapsed reservations, returns their stock, and abandons
// checkouts whose every line has lost its hold. Safe to run concurrently
// with Release: both flip status under the record row lock, so stock is
// returned exactly once.
func (s *ReservationService) ExpireStale(ctx context.Context) (int, error) {
	now := s.clock.Now()
	expired := 0

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		due, err := s.repo.ListDueReservations(txCtx, now, sweepBatchSize)
		if err != nil {
			return err
		}

		for _, res := range due {
			// Re-read under the lock; Release may have won the race.
			current, err := s.repo.GetReservationForUpdate(txCtx, res.ID)
			if err != nil {
				return err
			}
			if current.Status != domain.ReservationStatusActive {
				continue
			}
			if _, err := s.repo.GetRecordForUpdate(txCtx, res.SKU, res.WarehouseSlug); err != nil {
				return err
			}
			if err := s.repo.UpdateReservationStatus(txCtx, res.ID, domain.ReservationStatusExpired); err != nil {
				return err
			}
			if err := s.repo.AdjustReserved(txCtx, res.SKU, res.WarehouseSlug, -res.Quantity); err != nil {
				return err
			}
			expired++
		}

		tokens, err := s.repo.ListLapsedCheckoutTokens(txCtx, now)
		if err != nil {
			return err
		}
		for _, token := range tokens {
			if err := s.repo.UpdateCheckoutStatus(txCtx, token, domain.CheckoutStatusAbandoned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		s.logger.Info("reservation sweep released stale holds", zap.Int("count", expired))
	}
	return expired, nil
}
