package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// MovementReportUseCase genera el PDF de auditoría de un documento.
type MovementReportUseCase struct {
	engine   ReconciliationEngine
	renderer MovementReportRenderer
}

// NewMovementReportUseCase construye el caso de uso.
func NewMovementReportUseCase(engine ReconciliationEngine, renderer MovementReportRenderer) *MovementReportUseCase {
	return &MovementReportUseCase{engine: engine, renderer: renderer}
}

// RenderMovementReport devuelve el PDF con todas las líneas del documento.
func (uc *MovementReportUseCase) RenderMovementReport(ctx context.Context, businessNumber string) ([]byte, error) {
	lines, err := uc.engine.GetRelatedMovements(ctx, businessNumber)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.NotFound("documento", businessNumber)
	}
	pdf, err := uc.renderer.RenderMovementReport(ctx, businessNumber, lines)
	if err != nil {
		return nil, domain.Infrastructure(fmt.Errorf("render movement report %s: %w", businessNumber, err))
	}
	return pdf, nil
}
