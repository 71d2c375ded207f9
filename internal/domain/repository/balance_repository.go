package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// BalanceRepository define el puerto de persistencia de saldos.
// Usado dentro de transacciones para garantizar consistencia.
type BalanceRepository interface {
	// Get devuelve el saldo o nil si la clave no existe.
	Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción; nil si la clave no existe.
	GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error)
	// Create inserta un saldo nuevo; si otra transacción lo creó antes devuelve domain.ErrConflict.
	Create(ctx context.Context, balance *entity.StockBalance) error
	Update(ctx context.Context, balance *entity.StockBalance) error
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error)
}
