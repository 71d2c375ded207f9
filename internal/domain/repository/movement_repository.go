package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementRepository define el puerto del log de movimientos (solo anexar).
type MovementRepository interface {
	// CreateHeader persiste la cabecera y asigna su ID.
	CreateHeader(ctx context.Context, header *entity.MovementHeader) error
	// AppendDetail persiste una línea y asigna su ID. Las líneas nunca se modifican.
	AppendDetail(ctx context.Context, detail *entity.MovementDetail) error
	// ListByBusinessNumber devuelve todas las líneas del documento ordenadas por ID.
	ListByBusinessNumber(ctx context.Context, businessNumber string) ([]entity.MovementLine, error)
	// LockBusinessNumber serializa, hasta el fin de la transacción, las operaciones sobre un documento.
	LockBusinessNumber(ctx context.Context, businessNumber string) error
}
