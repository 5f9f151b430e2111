package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// StockRepository persists per-(variant, warehouse) ledger records. All
// mutating calls are expected to run inside WithTx with the record row
// locked, so two concurrent adjustments to the same record never interleave.
type StockRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetRecord(ctx context.Context, sku, warehouse string) (domain.StockRecord, error)
	GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error)
	UpdateQuantities(ctx context.Context, sku, warehouse string, onHand, reserved int) error
	// ReclaimExpired marks lapsed active reservations for the record as
	// expired, returns their stock to the reserved counter, and reports
	// the reclaimed quantity. The caller must hold the record lock.
	ReclaimExpired(ctx context.Context, sku, warehouse string, now time.Time) (int, error)
}

// StockService is the ledger of on-hand and reserved quantities.
type StockService struct {
	repo   StockRepository
	clock  clock.Clock
	cache  AvailabilityCache
	logger *zap.Logger
}

func NewStockService(repo StockRepository, clk clock.Clock, opts ...StockServiceOption) *StockService {
	svc := &StockService{
		repo:   repo,
		clock:  clk,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type StockServiceOption func(*StockService)

// WithAvailabilityCache mirrors availability into a cache after mutations.
func WithAvailabilityCache(cache AvailabilityCache) StockServiceOption {
	return func(s *StockService) {
		s.cache = cache
	}
}

func WithStockLogger(logger *zap.Logger) StockServiceOption {
	return func(s *StockService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Adjust changes on-hand quantity by delta. It fails with
// domain.ErrInsufficientStock when the result would go negative, or would
// leave existing reservations above the record's ceiling, unless backorders
// absorb the difference.
func (s *StockService) Adjust(ctx context.Context, sku, warehouse string, delta int) (domain.StockRecord, error) {
	now := s.clock.Now()
	var result domain.StockRecord

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		rec, err := s.repo.GetRecordForUpdate(txCtx, sku, warehouse)
		if err != nil {
			return err
		}

		reclaimed, err := s.repo.ReclaimExpired(txCtx, sku, warehouse, now)
		if err != nil {
			return err
		}
		rec.Reserved -= reclaimed

		rec.OnHand += delta
		if rec.OnHand < 0 && !rec.BackorderAllowed {
			return domain.ErrInsufficientStock
		}
		if rec.Reserved > rec.ReservationCeiling() {
			return domain.ErrInsufficientStock
		}

		if err := s.repo.UpdateQuantities(txCtx, sku, warehouse, rec.OnHand, rec.Reserved); err != nil {
			return err
		}
		result = rec
		return nil
	})
	if err != nil {
		return domain.StockRecord{}, err
	}

	s.mirrorAvailability(ctx, result)
	return result, nil
}

// Available returns on-hand minus reserved after reclaiming any lapsed
// reservations. Negative only when backorders have been taken.
func (s *StockService) Available(ctx context.Context, sku, warehouse string) (int, error) {
	now := s.clock.Now()
	var available int

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		rec, err := s.repo.GetRecordForUpdate(txCtx, sku, warehouse)
		if err != nil {
			return err
		}

		reclaimed, err := s.repo.ReclaimExpired(txCtx, sku, warehouse, now)
		if err != nil {
			return err
		}
		rec.Reserved -= reclaimed

		available = rec.Available()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return available, nil
}

// Record returns the current ledger record without reclaiming expiries.
func (s *StockService) Record(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return s.repo.GetRecord(ctx, sku, warehouse)
}

func (s *StockService) mirrorAvailability(ctx context.Context, rec domain.StockRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetAvailable(ctx, rec.SKU, rec.WarehouseSlug, rec.Available()); err != nil {
		s.logger.Warn("availability cache update failed",
			zap.String("sku", rec.SKU),
			zap.String("warehouse", rec.WarehouseSlug),
			zap.Error(err),
		)
	}
}
