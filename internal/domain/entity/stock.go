package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockBalance es el saldo materializado de una clave (producto, bodega, ubicación).
// CurrentQuantity y AverageUnitCost solo los escribe el ledger de stock;
// ReservedQuantity solo lo escribe el subledger de reservas.
type StockBalance struct {
	BalanceKey
	CurrentQuantity  decimal.Decimal
	ReservedQuantity decimal.Decimal
	AverageUnitCost  *decimal.Decimal
	LastMovementAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockBalance crea un saldo en cero para una clave que aún no existe.
func NewStockBalance(key BalanceKey, now time.Time) *StockBalance {
	return &StockBalance{
		BalanceKey:       key,
		CurrentQuantity:  decimal.Zero,
		ReservedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Available es la cantidad libre: física menos reservada.
func (b *StockBalance) Available() decimal.Decimal {
	return b.CurrentQuantity.Sub(b.ReservedQuantity)
}
