package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementReporter genera el PDF de auditoría de un documento.
type MovementReporter interface {
	RenderMovementReport(ctx context.Context, businessNumber string) ([]byte, error)
}

// DocumentHandler concilia, borra y audita documentos por número.
type DocumentHandler struct {
	engine   inventory.ReconciliationEngine
	reporter MovementReporter
}

// NewDocumentHandler construye el handler. reporter puede ser nil (sin PDF).
func NewDocumentHandler(engine inventory.ReconciliationEngine, reporter MovementReporter) *DocumentHandler {
	return &DocumentHandler{engine: engine, reporter: reporter}
}

// Reconcile PUT /api/ledger/documents/:business_number
// Aplica solo la diferencia entre el log y las líneas vigentes.
func (h *DocumentHandler) Reconcile(c *fiber.Ctx) error {
	in, ok, err := h.reconcileInput(c)
	if !ok {
		return err
	}
	res, err := h.engine.ReconcileByDifference(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReconcileDTO(res))
}

// Preview POST /api/ledger/documents/:business_number/preview
func (h *DocumentHandler) Preview(c *fiber.Ctx) error {
	in, ok, err := h.reconcileInput(c)
	if !ok {
		return err
	}
	deltas, err := h.engine.PreviewDifference(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.ToKeyDeltaDTOs(deltas)))
}

// Delete DELETE /api/ledger/documents/:business_number?movement_type=
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	var req dto.DeleteDocumentRequest
	if err := bindQuery(c, &req); err != nil {
		return writeBindError(c, err)
	}
	res, err := h.engine.DeleteDocument(c.Context(), inventory.DeleteInput{
		BusinessNumber: pathParam(c, "business_number"),
		MovementType:   entity.MovementType(req.MovementType),
		Source:         entity.SourceDocument{Type: req.SourceType, ID: req.SourceID},
		UserID:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReconcileDTO(res))
}

// Movements GET /api/ledger/documents/:business_number/movements
func (h *DocumentHandler) Movements(c *fiber.Ctx) error {
	lines, err := h.engine.GetRelatedMovements(c.Context(), pathParam(c, "business_number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.ToMovementLineDTOs(lines)))
}

// Report GET /api/ledger/documents/:business_number/report
func (h *DocumentHandler) Report(c *fiber.Ctx) error {
	if h.reporter == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_IMPLEMENTED", Message: "reporte PDF no disponible"})
	}
	bn := pathParam(c, "business_number")
	pdf, err := h.reporter.RenderMovementReport(c.Context(), bn)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="movimientos-`+bn+`.pdf"`)
	return c.Send(pdf)
}

// reconcileInput arma la entrada; ok=false indica que ya se respondió con error.
func (h *DocumentHandler) reconcileInput(c *fiber.Ctx) (inventory.ReconcileInput, bool, error) {
	var req dto.ReconcileRequest
	if err := bind(c, &req); err != nil {
		return inventory.ReconcileInput{}, false, writeBindError(c, err)
	}
	lines := make([]entity.LineItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, entity.LineItem{
			BalanceKey:      entity.BalanceKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID, LocationID: l.LocationID},
			DesiredQuantity: l.DesiredQuantity,
			UnitCost:        l.UnitCost,
			BatchNumber:     l.BatchNumber,
		})
	}
	return inventory.ReconcileInput{
		BusinessNumber: pathParam(c, "business_number"),
		MovementType:   entity.MovementType(req.MovementType),
		Direction:      entity.Direction(req.Direction),
		Lines:          lines,
		Source:         entity.SourceDocument{Type: req.SourceType, ID: req.SourceID},
		UserID:         GetUserID(c),
	}, true, nil
}

func toReconcileDTO(res *inventory.ReconcileResult) dto.ReconcileResultDTO {
	out := dto.ReconcileResultDTO{
		BusinessNumber: res.BusinessNumber,
		Deltas:         dto.ToKeyDeltaDTOs(res.Deltas),
		Movements:      make([]dto.MovementResultDTO, 0, len(res.Movements)),
	}
	for _, m := range res.Movements {
		out.Movements = append(out.Movements, dto.ToMovementResultDTO(m.Line, m.Balance))
	}
	return out
}
