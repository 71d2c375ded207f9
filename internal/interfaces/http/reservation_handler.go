package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReservationHandler maneja el ciclo de vida de las reservas.
type ReservationHandler struct {
	reservations inventory.ReservationLedger
}

// NewReservationHandler construye el handler.
func NewReservationHandler(reservations inventory.ReservationLedger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

// Reserve POST /api/reservations
func (h *ReservationHandler) Reserve(c *fiber.Ctx) error {
	var req dto.ReserveRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	r, err := h.reservations.Reserve(c.Context(), inventory.ReserveInput{
		BalanceKey:      entity.BalanceKey{ProductID: req.ProductID, WarehouseID: req.WarehouseID, LocationID: req.LocationID},
		Quantity:        req.Quantity,
		ReservationType: req.ReservationType,
		ReferenceNumber: req.ReferenceNumber,
		ExpiryDate:      req.ExpiryDate,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToReservationDTO(r))
}

// Get GET /api/reservations/:id
func (h *ReservationHandler) Get(c *fiber.Ctx) error {
	id, ok := reservationID(c)
	if !ok {
		return invalidID(c)
	}
	r, err := h.reservations.GetReservation(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(r))
}

// ListByReference GET /api/reservations?reference_number=
func (h *ReservationHandler) ListByReference(c *fiber.Ctx) error {
	list, err := h.reservations.ListByReference(c.Context(), c.Query("reference_number"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewListResponse(dto.ToReservationDTOs(list)))
}

// Release POST /api/reservations/:id/release
func (h *ReservationHandler) Release(c *fiber.Ctx) error {
	id, ok := reservationID(c)
	if !ok {
		return invalidID(c)
	}
	var req dto.ReleaseRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	r, err := h.reservations.Release(c.Context(), id, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(r))
}

// Cancel POST /api/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *fiber.Ctx) error {
	id, ok := reservationID(c)
	if !ok {
		return invalidID(c)
	}
	var req dto.CancelRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	r, err := h.reservations.Cancel(c.Context(), id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(r))
}

// Extend POST /api/reservations/:id/extend
func (h *ReservationHandler) Extend(c *fiber.Ctx) error {
	id, ok := reservationID(c)
	if !ok {
		return invalidID(c)
	}
	var req dto.ExtendRequest
	if err := bind(c, &req); err != nil {
		return writeBindError(c, err)
	}
	r, err := h.reservations.Extend(c.Context(), id, req.ExpiryDate)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ToReservationDTO(r))
}

// Sweep POST /api/reservations/sweep
// Libera las reservas vencidas sin esperar al barrido periódico.
func (h *ReservationHandler) Sweep(c *fiber.Ctx) error {
	n, err := h.reservations.SweepExpired(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"released": n})
}

func reservationID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id de reserva inválido"})
}
