package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ReconcileInput líneas vigentes de un documento editado.
type ReconcileInput struct {
	BusinessNumber string
	MovementType   entity.MovementType
	Direction      entity.Direction
	Lines          []entity.LineItem
	Source         entity.SourceDocument
	UserID         string
}

// DeleteInput borrado definitivo de un documento.
type DeleteInput struct {
	BusinessNumber string
	MovementType   entity.MovementType
	Source         entity.SourceDocument
	UserID         string
}

// ReconcileResult diferencias calculadas y movimientos aplicados, en el mismo orden.
type ReconcileResult struct {
	BusinessNumber string
	Deltas         []inventory.KeyDelta
	Movements      []MovementResult
}

// ReconciliationUseCase aplica solo la diferencia entre lo que el log ya movió para un
// documento y lo que sus líneas vigentes piden. Los movimientos pasan por el StockLedger.
type ReconciliationUseCase struct {
	base
	ledger *StockLedgerUseCase
}

// NewReconciliationUseCase construye el motor sobre el ledger de stock.
func NewReconciliationUseCase(txRunner TxRunner, ledger *StockLedgerUseCase, log *logger.Logger, opts ...Option) *ReconciliationUseCase {
	return &ReconciliationUseCase{base: newBase(txRunner, log, "reconciliation", opts), ledger: ledger}
}

// ReconcileByDifference emite una compensación ADJUST por cada clave cuyo neto vigente
// difiere de las líneas del documento. Todo o nada: si una salida no tiene stock, no se aplica ninguna.
func (uc *ReconciliationUseCase) ReconcileByDifference(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	start := time.Now()
	if err := validateReconcile(in.BusinessNumber, in.MovementType); err != nil {
		return nil, uc.finish("reconcile", start, err)
	}
	res, err := uc.run(ctx, in.BusinessNumber, in.MovementType, in.UserID, in.Source, entity.OperationAdjust,
		func(history []entity.MovementLine) ([]inventory.KeyDelta, error) {
			return inventory.Difference(history, in.Lines, in.Direction)
		})
	return res, uc.finish("reconcile", start, err)
}

// DeleteDocument revierte el efecto neto vigente del documento con líneas DELETE,
// que además marcan la frontera para conciliaciones futuras.
func (uc *ReconciliationUseCase) DeleteDocument(ctx context.Context, in DeleteInput) (*ReconcileResult, error) {
	start := time.Now()
	if err := validateReconcile(in.BusinessNumber, in.MovementType); err != nil {
		return nil, uc.finish("delete_document", start, err)
	}
	res, err := uc.run(ctx, in.BusinessNumber, in.MovementType, in.UserID, in.Source, entity.OperationDelete,
		func(history []entity.MovementLine) ([]inventory.KeyDelta, error) {
			if len(history) == 0 {
				return nil, domain.NotFound("documento", in.BusinessNumber)
			}
			return inventory.Reversal(history), nil
		})
	return res, uc.finish("delete_document", start, err)
}

// PreviewDifference calcula lo que ReconcileByDifference aplicaría, sin escribir nada.
func (uc *ReconciliationUseCase) PreviewDifference(ctx context.Context, in ReconcileInput) ([]inventory.KeyDelta, error) {
	start := time.Now()
	if err := validateReconcile(in.BusinessNumber, in.MovementType); err != nil {
		return nil, uc.finish("preview", start, err)
	}
	history, err := uc.history(ctx, in.BusinessNumber)
	if err != nil {
		return nil, uc.finish("preview", start, err)
	}
	deltas, err := inventory.Difference(history, in.Lines, in.Direction)
	return deltas, uc.finish("preview", start, err)
}

// GetRelatedMovements devuelve todas las líneas del documento (INSERT, ADJUST y DELETE) en orden de aplicación.
func (uc *ReconciliationUseCase) GetRelatedMovements(ctx context.Context, businessNumber string) ([]entity.MovementLine, error) {
	start := time.Now()
	if strings.TrimSpace(businessNumber) == "" {
		return nil, uc.finish("related_movements", start, domain.Validation("número de documento obligatorio"))
	}
	lines, err := uc.history(ctx, businessNumber)
	return lines, uc.finish("related_movements", start, err)
}

func (uc *ReconciliationUseCase) history(ctx context.Context, businessNumber string) ([]entity.MovementLine, error) {
	var lines []entity.MovementLine
	err := uc.txRunner.Run(ctx, func(
		_ repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		lines, err = movementRepo.ListByBusinessNumber(ctx, businessNumber)
		return err
	})
	return lines, err
}

// run bloquea el documento, lee su historia, calcula las diferencias y las aplica en una transacción.
func (uc *ReconciliationUseCase) run(
	ctx context.Context,
	businessNumber string,
	movementType entity.MovementType,
	userID string,
	source entity.SourceDocument,
	tag entity.OperationTag,
	compute func(history []entity.MovementLine) ([]inventory.KeyDelta, error),
) (*ReconcileResult, error) {
	var (
		res *ReconcileResult
		now time.Time
	)
	err := uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		if now, err = uc.lockDocument(ctx, movementRepo, businessNumber); err != nil {
			return err
		}
		history, err := movementRepo.ListByBusinessNumber(ctx, businessNumber)
		if err != nil {
			return err
		}
		deltas, err := compute(history)
		if err != nil {
			return err
		}

		keys := make([]entity.BalanceKey, len(deltas))
		for i, d := range deltas {
			keys[i] = d.Key
		}
		if err := lockKeys(ctx, balanceRepo, keys); err != nil {
			return err
		}

		j := newJournal(movementRepo, businessNumber, movementType, userID, now)
		out := &ReconcileResult{BusinessNumber: businessNumber, Deltas: deltas}
		for _, d := range deltas {
			cmd := movementCmd{
				key:      d.Key,
				quantity: d.Quantity(),
				inbound:  d.Inbound(),
				tag:      tag,
				batch:    d.BatchNumber,
				source:   source,
			}
			if cmd.inbound {
				cmd.unitCost = d.UnitCost
			}
			mr, err := uc.ledger.apply(ctx, balanceRepo, j, cmd)
			if err != nil {
				return err
			}
			out.Movements = append(out.Movements, *mr)
		}
		res = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.opts.observer.ReconciliationApplied(len(res.Movements))
	uc.log.Info().
		Str("business_number", businessNumber).
		Str("movement_type", string(movementType)).
		Str("operation_tag", string(tag)).
		Int("adjustments", len(res.Movements)).
		Msg("documento conciliado")
	if len(res.Movements) > 0 {
		uc.ledger.committed(ctx, now, res.Movements...)
	}
	uc.publish(ctx, LedgerEvent{
		Type:        EventDocumentReconciled,
		AggregateID: businessNumber,
		OccurredAt:  now,
		Payload: DocumentReconciledPayload{
			BusinessNumber: businessNumber,
			MovementType:   string(movementType),
			OperationTag:   string(tag),
			Adjustments:    len(res.Movements),
		},
	})
	return res, nil
}

func validateReconcile(businessNumber string, movementType entity.MovementType) error {
	if strings.TrimSpace(businessNumber) == "" {
		return domain.Validation("número de documento obligatorio")
	}
	if !movementType.Valid() {
		return domain.Validation("tipo de movimiento desconocido: %q", movementType)
	}
	return nil
}
