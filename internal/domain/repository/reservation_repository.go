package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ReservationRepository define el puerto de persistencia de reservas.
type ReservationRepository interface {
	// Create persiste la reserva y asigna su ID.
	Create(ctx context.Context, r *entity.Reservation) error
	// GetByID devuelve la reserva o nil si no existe.
	GetByID(ctx context.Context, id int64) (*entity.Reservation, error)
	// GetForUpdate bloquea la reserva; nil si no existe.
	GetForUpdate(ctx context.Context, id int64) (*entity.Reservation, error)
	Update(ctx context.Context, r *entity.Reservation) error
	ListByReference(ctx context.Context, referenceNumber string) ([]*entity.Reservation, error)
	// ListExpired devuelve los IDs de reservas activas cuya expiración es anterior o igual a now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]int64, error)
}
