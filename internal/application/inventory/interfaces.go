package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// StockLedger es el único escritor de cantidades físicas y costo promedio.
type StockLedger interface {
	AddStock(ctx context.Context, in MovementInput) (*MovementResult, error)
	ReduceStock(ctx context.Context, in MovementInput) (*MovementResult, error)
	TransferStock(ctx context.Context, in TransferInput) (*TransferResult, error)
	AdjustStock(ctx context.Context, in AdjustInput) (*MovementResult, error)
	GetBalance(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	GetAvailableQuantity(ctx context.Context, key entity.BalanceKey) (decimal.Decimal, error)
	IsStockAvailable(ctx context.Context, key entity.BalanceKey, required decimal.Decimal) (bool, error)
	ListBalancesByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error)
}

// ReservationLedger administra las reservas; solo escribe la cantidad reservada del saldo.
type ReservationLedger interface {
	Reserve(ctx context.Context, in ReserveInput) (*entity.Reservation, error)
	Release(ctx context.Context, id int64, qty *decimal.Decimal) (*entity.Reservation, error)
	Cancel(ctx context.Context, id int64, reason string) (*entity.Reservation, error)
	Extend(ctx context.Context, id int64, newExpiry time.Time) (*entity.Reservation, error)
	SweepExpired(ctx context.Context) (int, error)
	GetReservation(ctx context.Context, id int64) (*entity.Reservation, error)
	ListByReference(ctx context.Context, referenceNumber string) ([]*entity.Reservation, error)
}

// ReconciliationEngine mantiene el log de un documento igual a sus líneas vigentes.
type ReconciliationEngine interface {
	ReconcileByDifference(ctx context.Context, in ReconcileInput) (*ReconcileResult, error)
	DeleteDocument(ctx context.Context, in DeleteInput) (*ReconcileResult, error)
	PreviewDifference(ctx context.Context, in ReconcileInput) ([]inventory.KeyDelta, error)
	GetRelatedMovements(ctx context.Context, businessNumber string) ([]entity.MovementLine, error)
}

var (
	_ StockLedger          = (*StockLedgerUseCase)(nil)
	_ ReservationLedger    = (*ReservationUseCase)(nil)
	_ ReconciliationEngine = (*ReconciliationUseCase)(nil)
)
