package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus estado de una reserva.
type ReservationStatus string

const (
	ReservationReserved          ReservationStatus = "RESERVED"
	ReservationPartiallyReleased ReservationStatus = "PARTIALLY_RELEASED"
	ReservationReleased          ReservationStatus = "RELEASED"
	ReservationCancelled         ReservationStatus = "CANCELLED"
)

// Active indica si la reserva todavía retiene stock.
func (s ReservationStatus) Active() bool {
	return s == ReservationReserved || s == ReservationPartiallyReleased
}

// Reservation retiene stock para una referencia externa (pedido, orden de producción).
// Nunca se borra; solo cambia de estado.
type Reservation struct {
	ID               int64
	BalanceKey
	ReservationType  string
	ReferenceNumber  string
	ReservedQuantity decimal.Decimal
	ReleasedQuantity decimal.Decimal
	Status           ReservationStatus
	ReservationDate  time.Time
	ExpiryDate       *time.Time
	CancelReason     string
	UpdatedAt        time.Time
}

// Remaining es la cantidad aún retenida.
func (r *Reservation) Remaining() decimal.Decimal {
	return r.ReservedQuantity.Sub(r.ReleasedQuantity)
}

// Expired indica si la reserva activa venció en now.
func (r *Reservation) Expired(now time.Time) bool {
	return r.Status.Active() && r.ExpiryDate != nil && !r.ExpiryDate.After(now)
}

// Release libera qty; devuelve false si la transición no es válida.
func (r *Reservation) Release(qty decimal.Decimal, now time.Time) bool {
	if !r.Status.Active() || !qty.IsPositive() || qty.GreaterThan(r.Remaining()) {
		return false
	}
	r.ReleasedQuantity = r.ReleasedQuantity.Add(qty)
	if r.Remaining().IsZero() {
		r.Status = ReservationReleased
	} else {
		r.Status = ReservationPartiallyReleased
	}
	r.UpdatedAt = now
	return true
}

// Cancel pasa la reserva a CANCELLED; devuelve false desde un estado terminal.
func (r *Reservation) Cancel(reason string, now time.Time) bool {
	if !r.Status.Active() {
		return false
	}
	r.Status = ReservationCancelled
	r.CancelReason = reason
	r.UpdatedAt = now
	return true
}
