package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback de todo; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		balanceRepo repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error) error
}

// EventPublisher publica eventos del ledger después del commit.
type EventPublisher interface {
	Publish(ctx context.Context, events ...LedgerEvent) error
}

// Observer recibe las métricas del ledger.
type Observer interface {
	OperationFinished(operation string, kind domain.ErrorKind, elapsed time.Duration)
	MovementApplied(movementType entity.MovementType, tag entity.OperationTag, inbound bool)
	ReconciliationApplied(adjustments int)
	ReservationChanged(status entity.ReservationStatus)
	ReservationsSwept(count int)
}

// MovementReportRenderer genera el reporte de auditoría de un documento.
type MovementReportRenderer interface {
	RenderMovementReport(ctx context.Context, businessNumber string, lines []entity.MovementLine) ([]byte, error)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ...LedgerEvent) error { return nil }

type nopObserver struct{}

func (nopObserver) OperationFinished(string, domain.ErrorKind, time.Duration) {}
func (nopObserver) MovementApplied(entity.MovementType, entity.OperationTag, bool) {}
func (nopObserver) ReconciliationApplied(int) {}
func (nopObserver) ReservationChanged(entity.ReservationStatus) {}
func (nopObserver) ReservationsSwept(int) {}
