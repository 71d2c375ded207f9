package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReserveRequest retiene stock libre para una referencia externa.
type ReserveRequest struct {
	ProductID       string          `json:"product_id" validate:"required,max=100"`
	WarehouseID     string          `json:"warehouse_id" validate:"required,max=100"`
	LocationID      string          `json:"location_id" validate:"max=100"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0"`
	ReservationType string          `json:"reservation_type" validate:"required,max=50"`
	ReferenceNumber string          `json:"reference_number" validate:"required,max=100"`
	ExpiryDate      *time.Time      `json:"expiry_date,omitempty"`
}

// ReleaseRequest libera parte de la reserva; sin quantity libera todo lo pendiente.
type ReleaseRequest struct {
	Quantity *decimal.Decimal `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

// CancelRequest motivo de cancelación.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ExtendRequest nueva fecha de expiración.
type ExtendRequest struct {
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
}

// ReservationDTO reserva expuesta por la API.
type ReservationDTO struct {
	ID                int64           `json:"id"`
	ProductID         string          `json:"product_id"`
	WarehouseID       string          `json:"warehouse_id"`
	LocationID        string          `json:"location_id,omitempty"`
	ReservationType   string          `json:"reservation_type"`
	ReferenceNumber   string          `json:"reference_number"`
	ReservedQuantity  decimal.Decimal `json:"reserved_quantity"`
	ReleasedQuantity  decimal.Decimal `json:"released_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	Status            string          `json:"status"`
	ReservationDate   time.Time       `json:"reservation_date"`
	ExpiryDate        *time.Time      `json:"expiry_date,omitempty"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToReservationDTO convierte una reserva.
func ToReservationDTO(r *entity.Reservation) ReservationDTO {
	return ReservationDTO{
		ID:                r.ID,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		LocationID:        r.LocationID,
		ReservationType:   r.ReservationType,
		ReferenceNumber:   r.ReferenceNumber,
		ReservedQuantity:  r.ReservedQuantity,
		ReleasedQuantity:  r.ReleasedQuantity,
		RemainingQuantity: r.Remaining(),
		Status:            string(r.Status),
		ReservationDate:   r.ReservationDate,
		ExpiryDate:        r.ExpiryDate,
		CancelReason:      r.CancelReason,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ToReservationDTOs convierte una lista de reservas.
func ToReservationDTOs(list []*entity.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(list))
	for _, r := range list {
		out = append(out, ToReservationDTO(r))
	}
	return out
}
