package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/katlegobruce88/quickcart/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// serializes whole transactions the way row locks do in the real store, and
// nested WithTx calls join the outer transaction via the context marker.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	records      map[recordKey]domain.StockRecord
	warehouses   map[string]domain.Warehouse
	variants     map[string]domain.ProductVariant
	reservations map[string]domain.Reservation
	checkouts    map[string]domain.Checkout
	orders       map[string]domain.Order
}

type recordKey struct {
	sku       string
	warehouse string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:      make(map[recordKey]domain.StockRecord),
		warehouses:   make(map[string]domain.Warehouse),
		variants:     make(map[string]domain.ProductVariant),
		reservations: make(map[string]domain.Reservation),
		checkouts:    make(map[string]domain.Checkout),
		orders:       make(map[string]domain.Order),
	}
}

func (f *fakeStore) setRecord(rec domain.StockRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[recordKey{rec.SKU, rec.WarehouseSlug}] = rec
}

func (f *fakeStore) record(sku, warehouse string) domain.StockRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[recordKey{sku, warehouse}]
}

func (f *fakeStore) setWarehouse(w domain.Warehouse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warehouses[w.Slug] = w
}

func (f *fakeStore) setVariant(v domain.ProductVariant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[v.SKU] = v
}

func (f *fakeStore) reservation(id string) domain.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reservations[id]
}

func (f *fakeStore) activeReservations(token string) []domain.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.CheckoutToken == token && res.Status == domain.ReservationStatusActive {
			out = append(out, res)
		}
	}
	return out
}

func (f *fakeStore) checkout(token string) domain.Checkout {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyCheckout(f.checkouts[token])
}

type fakeTxKey struct{}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()
	return fn(context.WithValue(ctx, fakeTxKey{}, struct{}{}))
}

func (f *fakeStore) GetRecord(_ context.Context, sku, warehouse string) (domain.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey{sku, warehouse}]
	if !ok {
		return domain.StockRecord{}, domain.ErrStockRecordNotFound
	}
	return rec, nil
}

func (f *fakeStore) GetRecordForUpdate(ctx context.Context, sku, warehouse string) (domain.StockRecord, error) {
	return f.GetRecord(ctx, sku, warehouse)
}

func (f *fakeStore) UpdateQuantities(_ context.Context, sku, warehouse string, onHand, reserved int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{sku, warehouse}
	rec, ok := f.records[key]
	if !ok {
		return domain.ErrStockRecordNotFound
	}
	rec.OnHand = onHand
	rec.Reserved = reserved
	f.records[key] = rec
	return nil
}

func (f *fakeStore) ReclaimExpired(_ context.Context, sku, warehouse string, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reclaimed := 0
	for id, res := range f.reservations {
		if res.SKU != sku || res.WarehouseSlug != warehouse {
			continue
		}
		if res.Status != domain.ReservationStatusActive || res.ExpiresAt.After(now) {
			continue
		}
		res.Status = domain.ReservationStatusExpired
		f.reservations[id] = res
		reclaimed += res.Quantity
	}
	if reclaimed > 0 {
		key := recordKey{sku, warehouse}
		rec := f.records[key]
		rec.Reserved -= reclaimed
		f.records[key] = rec
	}
	return reclaimed, nil
}

func (f *fakeStore) GetReservation(_ context.Context, id string) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return res, nil
}

func (f *fakeStore) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	return f.GetReservation(ctx, id)
}

func (f *fakeStore) CreateReservation(_ context.Context, res domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reservations[res.ID] = res
	return nil
}

func (f *fakeStore) UpdateReservationStatus(_ context.Context, id string, status domain.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.Status = status
	f.reservations[id] = res
	return nil
}

func (f *fakeStore) UpdateReservationExpiry(_ context.Context, id string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.reservations[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	res.ExpiresAt = expiresAt
	f.reservations[id] = res
	return nil
}

func (f *fakeStore) ListRecordsBySKUForUpdate(_ context.Context, sku string) ([]RoutedStockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RoutedStockRecord
	for key, rec := range f.records {
		if key.sku != sku {
			continue
		}
		out = append(out, RoutedStockRecord{
			StockRecord: rec,
			Priority:    f.warehouses[key.warehouse].Priority,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WarehouseSlug < out[j].WarehouseSlug
	})
	return out, nil
}

func (f *fakeStore) AdjustReserved(_ context.Context, sku, warehouse string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{sku, warehouse}
	rec, ok := f.records[key]
	if !ok {
		return domain.ErrStockRecordNotFound
	}
	rec.Reserved += delta
	f.records[key] = rec
	return nil
}

func (f *fakeStore) ListDueReservations(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.Status == domain.ReservationStatusActive && !res.ExpiresAt.After(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListLapsedCheckoutTokens(_ context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for token, checkout := range f.checkouts {
		if checkout.Status != domain.CheckoutStatusOpen && checkout.Status != domain.CheckoutStatusAwaitingPayment {
			continue
		}
		if len(checkout.Lines) == 0 {
			continue
		}
		live := false
		for _, line := range checkout.Lines {
			if res, ok := f.reservations[line.ReservationID]; ok && res.Live(now) {
				live = true
				break
			}
		}
		if !live {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeStore) CreateCheckout(_ context.Context, checkout domain.Checkout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkouts[checkout.Token] = copyCheckout(checkout)
	return nil
}

func (f *fakeStore) GetCheckout(_ context.Context, token string) (domain.Checkout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkout, ok := f.checkouts[token]
	if !ok {
		return domain.Checkout{}, domain.ErrCheckoutNotFound
	}
	return copyCheckout(checkout), nil
}

func (f *fakeStore) GetCheckoutForUpdate(ctx context.Context, token string) (domain.Checkout, error) {
	return f.GetCheckout(ctx, token)
}

func (f *fakeStore) UpsertLine(_ context.Context, token string, line domain.CheckoutLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkout, ok := f.checkouts[token]
	if !ok {
		return domain.ErrCheckoutNotFound
	}
	replaced := false
	for i := range checkout.Lines {
		if checkout.Lines[i].SKU == line.SKU {
			checkout.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		checkout.Lines = append(checkout.Lines, line)
	}
	sort.Slice(checkout.Lines, func(i, j int) bool {
		return checkout.Lines[i].Position < checkout.Lines[j].Position
	})
	f.checkouts[token] = checkout
	return nil
}

func (f *fakeStore) DeleteLine(_ context.Context, token, sku string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkout, ok := f.checkouts[token]
	if !ok {
		return domain.ErrCheckoutNotFound
	}
	lines := checkout.Lines[:0]
	for _, line := range checkout.Lines {
		if line.SKU != sku {
			lines = append(lines, line)
		}
	}
	checkout.Lines = lines
	f.checkouts[token] = checkout
	return nil
}

func (f *fakeStore) UpdateCheckoutStatus(_ context.Context, token string, status domain.CheckoutStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkout, ok := f.checkouts[token]
	if !ok {
		return domain.ErrCheckoutNotFound
	}
	checkout.Status = status
	f.checkouts[token] = checkout
	return nil
}

func (f *fakeStore) SetAuthorization(_ context.Context, token, authorizationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkout, ok := f.checkouts[token]
	if !ok {
		return domain.ErrCheckoutNotFound
	}
	checkout.AuthorizationID = authorizationID
	f.checkouts[token] = checkout
	return nil
}

func (f *fakeStore) GetOrderByCheckoutToken(_ context.Context, token string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.CheckoutToken == token {
			o := order
			return &o, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetOrder(_ context.Context, number string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[number]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeStore) ApplyCommit(_ context.Context, sku, warehouse string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{sku, warehouse}
	rec, ok := f.records[key]
	if !ok {
		return domain.ErrStockRecordNotFound
	}
	rec.OnHand -= qty
	rec.Reserved -= qty
	f.records[key] = rec
	return nil
}

func (f *fakeStore) CreateOrder(_ context.Context, order domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.orders {
		if existing.CheckoutToken == order.CheckoutToken {
			return domain.ErrAlreadyConverted
		}
	}
	f.orders[order.Number] = order
	return nil
}

func (f *fakeStore) UpdateOrderPaymentStatus(_ context.Context, number string, status domain.PaymentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[number]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.PaymentStatus = status
	f.orders[number] = order
	return nil
}

func (f *fakeStore) CreateWarehouse(_ context.Context, warehouse domain.Warehouse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.warehouses[warehouse.Slug]; exists {
		return domain.ErrWarehouseExists
	}
	f.warehouses[warehouse.Slug] = warehouse
	return nil
}

func (f *fakeStore) ListWarehouses(_ context.Context) ([]domain.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Warehouse, 0, len(f.warehouses))
	for _, w := range f.warehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Slug < out[j].Slug
	})
	return out, nil
}

func (f *fakeStore) CreateVariant(_ context.Context, variant domain.ProductVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variants[variant.SKU] = variant
	return nil
}

func (f *fakeStore) UpsertStockRecord(_ context.Context, record domain.StockRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey{record.SKU, record.WarehouseSlug}
	if existing, ok := f.records[key]; ok {
		record.Reserved = existing.Reserved
	} else {
		record.Reserved = 0
	}
	f.records[key] = record
	return nil
}

func (f *fakeStore) ListStockRecords(_ context.Context, sku string) ([]domain.StockRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StockRecord
	for key, rec := range f.records {
		if sku != "" && key.sku != sku {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].WarehouseSlug < out[j].WarehouseSlug
	})
	return out, nil
}

func (f *fakeStore) ListReservationsByCheckout(_ context.Context, token string) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, res := range f.reservations {
		if res.CheckoutToken == token {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) LookupVariant(_ context.Context, sku string) (domain.ProductVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	variant, ok := f.variants[sku]
	if !ok {
		return domain.ProductVariant{}, domain.ErrVariantNotFound
	}
	return variant, nil
}

func copyCheckout(c domain.Checkout) domain.Checkout {
	c.Lines = append([]domain.CheckoutLine(nil), c.Lines...)
	return c
}

type fakeGateway struct {
	mu           sync.Mutex
	authorizeErr error
	captureErr   error
	authorized   []string
	captured     []string
}

func (g *fakeGateway) Authorize(_ context.Context, checkoutToken string, _ domain.Money) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	g.authorized = append(g.authorized, checkoutToken)
	return "auth-" + checkoutToken, nil
}

func (g *fakeGateway) Capture(_ context.Context, authorizationID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return g.captureErr
	}
	g.captured = append(g.captured, authorizationID)
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	err    error
	events []domain.OrderCreatedEvent
}

func (n *fakeNotifier) OrderCreated(_ context.Context, event domain.OrderCreatedEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

type fakeCache struct {
	mu     sync.Mutex
	err    error
	values map[recordKey]int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[recordKey]int)}
}

func (c *fakeCache) SetAvailable(_ context.Context, sku, warehouse string, available int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.values[recordKey{sku, warehouse}] = available
	return nil
}

func (c *fakeCache) GetAvailable(_ context.Context, sku, warehouse string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	v, ok := c.values[recordKey{sku, warehouse}]
	return v, ok, nil
}
