package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerHandler expone entradas, salidas, traslados, ajustes y consultas de saldo.
type LedgerHandler struct {
	ledger inventory.StockLedger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(ledger inventory.StockLedger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// AddStock POST /api/ledger/movements/in
func (h *LedgerHandler) AddStock(c *fiber.Ctx) error {
	return h.move(c, h.ledger.AddStock)
}

// ReduceStock POST /api/ledger/movements/out
func (h *LedgerHandler) ReduceStock(c *fiber.Ctx) error {
	return h.move(c, h.ledger.ReduceStock)
}

func (h *LedgerHandler) move(c *fiber.Ctx, apply func(context.Context, inventory.MovementInput) (*inventory.MovementResult, error)) error {
	var req dto.MovementRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	res, err := apply(c.Context(), inventory.MovementInput{
		BalanceKey:     entity.BalanceKey{ProductID: req.ProductID, WarehouseID: req.WarehouseID, LocationID: req.LocationID},
		Quantity:       req.Quantity,
		MovementType:   entity.MovementType(req.MovementType),
		BusinessNumber: req.BusinessNumber,
		UnitCost:       req.UnitCost,
		BatchNumber:    req.BatchNumber,
		Source:         entity.SourceDocument{Type: req.SourceType, ID: req.SourceID},
		OperationTag:   entity.OperationTag(req.OperationTag),
		UserID:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToMovementResultDTO(res.Line, res.Balance))
}

// TransferStock POST /api/ledger/transfers
func (h *LedgerHandler) TransferStock(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	res, err := h.ledger.TransferStock(c.Context(), inventory.TransferInput{
		ProductID:       req.ProductID,
		FromWarehouseID: req.FromWarehouseID,
		FromLocationID:  req.FromLocationID,
		ToWarehouseID:   req.ToWarehouseID,
		ToLocationID:    req.ToLocationID,
		Quantity:        req.Quantity,
		BusinessNumber:  req.BusinessNumber,
		BatchNumber:     req.BatchNumber,
		Source:          entity.SourceDocument{Type: req.SourceType, ID: req.SourceID},
		OperationTag:    entity.OperationTag(req.OperationTag),
		UserID:          GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResultDTO{
		Out: dto.ToMovementResultDTO(res.Out.Line, res.Out.Balance),
		In:  dto.ToMovementResultDTO(res.In.Line, res.In.Balance),
	})
}

// AdjustStock POST /api/ledger/adjustments
func (h *LedgerHandler) AdjustStock(c *fiber.Ctx) error {
	var req dto.AdjustRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	res, err := h.ledger.AdjustStock(c.Context(), inventory.AdjustInput{
		BalanceKey:     entity.BalanceKey{ProductID: req.ProductID, WarehouseID: req.WarehouseID, LocationID: req.LocationID},
		NewQuantity:    req.NewQuantity,
		MovementType:   entity.MovementType(req.MovementType),
		BusinessNumber: req.BusinessNumber,
		UnitCost:       req.UnitCost,
		Source:         entity.SourceDocument{Type: req.SourceType, ID: req.SourceID},
		OperationTag:   entity.OperationTag(req.OperationTag),
		UserID:         GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToMovementResultDTO(res.Line, res.Balance))
}

// GetBalance GET /api/ledger/balances/:product_id/:warehouse_id?location_id=
func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	b, err := h.ledger.GetBalance(c.Context(), balanceKey(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToBalanceDTO(b))
}

// ListBalancesByProduct GET /api/ledger/balances/:product_id
func (h *LedgerHandler) ListBalancesByProduct(c *fiber.Ctx) error {
	list, err := h.ledger.ListBalancesByProduct(c.Context(), pathParam(c, "product_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.ToBalanceDTOs(list)))
}

// GetAvailability GET /api/ledger/availability/:product_id/:warehouse_id?location_id=&required=
// Con required responde además si alcanza.
func (h *LedgerHandler) GetAvailability(c *fiber.Ctx) error {
	key := balanceKey(c)
	out := dto.AvailabilityDTO{ProductID: key.ProductID, WarehouseID: key.WarehouseID, LocationID: key.LocationID}

	if raw := c.Query("required"); raw != "" {
		required, err := decimal.NewFromString(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "required debe ser numérico"})
		}
		ok, err := h.ledger.IsStockAvailable(c.Context(), key, required)
		if err != nil {
			return writeError(c, err)
		}
		out.Required = &required
		out.Available = &ok
	}

	qty, err := h.ledger.GetAvailableQuantity(c.Context(), key)
	if err != nil {
		return writeError(c, err)
	}
	out.AvailableQuantity = qty
	return c.JSON(out)
}

func balanceKey(c *fiber.Ctx) entity.BalanceKey {
	return entity.BalanceKey{
		ProductID:   pathParam(c, "product_id"),
		WarehouseID: pathParam(c, "warehouse_id"),
		LocationID:  c.Query("location_id"),
	}
}
