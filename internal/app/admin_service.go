package app

import (
	"context"
	"time"

	"github.com/katlegobruce88/quickcart/internal/clock"
	"github.com/katlegobruce88/quickcart/internal/domain"
)

// AdminRepository backs the manual-intervention surface: warehouse and
// variant registration plus read access to ledger and reservation state.
type AdminRepository interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) error
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	CreateVariant(ctx context.Context, variant domain.ProductVariant) error
	UpsertStockRecord(ctx context.Context, record domain.StockRecord) error
	ListStockRecords(ctx context.Context, sku string) ([]domain.StockRecord, error)
	ListReservationsByCheckout(ctx context.Context, token string) ([]domain.Reservation, error)
}

// AdminService exposes stock and reservation state for manual intervention.
type AdminService struct {
	repo         AdminRepository
	stock        *StockService
	reservations *ReservationService
	clock        clock.Clock
}

func NewAdminService(repo AdminRepository, stock *StockService, reservations *ReservationService, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:         repo,
		stock:        stock,
		reservations: reservations,
		clock:        clk,
	}
}

type CreateWarehouseInput struct {
	Slug     string
	Name     string
	Priority int
}

func (s *AdminService) CreateWarehouse(ctx context.Context, in CreateWarehouseInput) (domain.Warehouse, error) {
	if in.Slug == "" {
		return domain.Warehouse{}, domain.ErrSlugRequired
	}

	warehouse := domain.Warehouse{
		Slug:      in.Slug,
		Name:      in.Name,
		Priority:  in.Priority,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateWarehouse(ctx, warehouse); err != nil {
		return domain.Warehouse{}, err
	}
	return warehouse, nil
}

func (s *AdminService) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

type CreateVariantInput struct {
	SKU        string
	ProductRef string
	Name       string
	Attributes map[string]string
}

func (s *AdminService) CreateVariant(ctx context.Context, in CreateVariantInput) (domain.ProductVariant, error) {
	if in.SKU == "" {
		return domain.ProductVariant{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.ProductVariant{}, domain.ErrVariantNameRequired
	}

	variant := domain.ProductVariant{
		SKU:        in.SKU,
		ProductRef: in.ProductRef,
		Name:       in.Name,
		Attributes: in.Attributes,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return domain.ProductVariant{}, err
	}
	return variant, nil
}

type UpsertStockInput struct {
	SKU               string
	Warehouse         string
	OnHand            int
	BackorderAllowed  bool
	BackorderLimit    int
	PreorderReleaseAt *time.Time
}

// UpsertStockRecord seeds or replaces a ledger record. Reserved quantity is
// preserved for existing records; only configuration and on-hand change.
func (s *AdminService) UpsertStockRecord(ctx context.Context, in UpsertStockInput) (domain.StockRecord, error) {
	if in.SKU == "" || in.Warehouse == "" {
		return domain.StockRecord{}, domain.ErrInvalidID
	}
	if in.OnHand < 0 || in.BackorderLimit < 0 {
		return domain.StockRecord{}, domain.ErrInvalidQuantity
	}

	record := domain.StockRecord{
		SKU:              in.SKU,
		WarehouseSlug:    in.Warehouse,
		OnHand:           in.OnHand,
		BackorderAllowed: in.BackorderAllowed,
		BackorderLimit:   in.BackorderLimit,
		UpdatedAt:        s.clock.Now(),
	}
	if in.PreorderReleaseAt != nil {
		t := *in.PreorderReleaseAt
		record.PreorderReleaseAt = &t
	}
	if err := s.repo.UpsertStockRecord(ctx, record); err != nil {
		return domain.StockRecord{}, err
	}
	return record, nil
}

// AdjustStock applies a manual on-hand delta through the ledger's
// serialization point.
func (s *AdminService) AdjustStock(ctx context.Context, sku, warehouse string, delta int) (domain.StockRecord, error) {
	return s.stock.Adjust(ctx, sku, warehouse, delta)
}

func (s *AdminService) ListStockRecords(ctx context.Context, sku string) ([]domain.StockRecord, error) {
	return s.repo.ListStockRecords(ctx, sku)
}

func (s *AdminService) ListReservations(ctx context.Context, checkoutToken string) ([]domain.Reservation, error) {
	if checkoutToken == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListReservationsByCheckout(ctx, checkoutToken)
}

// ForceRelease releases a reservation on operator request. Idempotent like
// any other release.
func (s *AdminService) ForceRelease(ctx context.Context, reservationID string) error {
	return s.reservations.Release(ctx, reservationID)
}
