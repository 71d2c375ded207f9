package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var (
	keyMain  = entity.BalanceKey{ProductID: "P-100", WarehouseID: "BOD-1"}
	keyShelf = entity.BalanceKey{ProductID: "P-100", WarehouseID: "BOD-1", LocationID: "EST-3"}
	keyNorth = entity.BalanceKey{ProductID: "P-100", WarehouseID: "BOD-2"}
	keyOther = entity.BalanceKey{ProductID: "P-200", WarehouseID: "BOD-1"}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...inventory.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) ofType(t inventory.EventType) []inventory.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []inventory.LedgerEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store        *memory.Store
	clock        *fakeClock
	events       *recordingPublisher
	ledger       *inventory.StockLedgerUseCase
	engine       *inventory.ReconciliationUseCase
	reservations *inventory.ReservationUseCase
}

func newFixture(t *testing.T, extra ...inventory.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)},
		events: &recordingPublisher{},
	}
	opts := append([]inventory.Option{
		inventory.WithClock(f.clock.Now),
		inventory.WithPublisher(f.events),
	}, extra...)
	log := logger.Nop()
	f.ledger = inventory.NewStockLedgerUseCase(f.store, log, opts...)
	f.engine = inventory.NewReconciliationUseCase(f.store, f.ledger, log, opts...)
	f.reservations = inventory.NewReservationUseCase(f.store, log, opts...)
	return f
}

// add registra una entrada de compra y avanza el reloj.
func (f *fixture) add(t *testing.T, key entity.BalanceKey, qty string, cost *decimal.Decimal) {
	t.Helper()
	_, err := f.ledger.AddStock(context.Background(), inventory.MovementInput{
		BalanceKey:     key,
		Quantity:       dec(qty),
		MovementType:   entity.MovementTypePurchase,
		BusinessNumber: "PO-" + key.String(),
		UnitCost:       cost,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
}

func (f *fixture) balance(t *testing.T, key entity.BalanceKey) *entity.StockBalance {
	t.Helper()
	bal, err := f.ledger.GetBalance(context.Background(), key)
	require.NoError(t, err)
	return bal
}

type mockTxRunner struct {
	mock.Mock
}

func (m *mockTxRunner) Run(ctx context.Context, _ func(
	repository.BalanceRepository,
	repository.MovementRepository,
	repository.ReservationRepository,
) error) error {
	args := m.Called(ctx)
	return args.Error(0)
}
