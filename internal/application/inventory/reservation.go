package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ReserveInput entrada de Reserve.
type ReserveInput struct {
	entity.BalanceKey
	Quantity        decimal.Decimal
	ReservationType string
	ReferenceNumber string
	ExpiryDate      *time.Time // nil = TTL por defecto
}

// ReservationUseCase retiene stock para referencias externas sin moverlo.
// Bloquea siempre el saldo antes que la reserva.
type ReservationUseCase struct {
	base
}

// NewReservationUseCase construye el caso de uso.
func NewReservationUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *ReservationUseCase {
	return &ReservationUseCase{base: newBase(txRunner, log, "reservations", opts)}
}

// Reserve crea una reserva si la cantidad libre la cubre.
func (uc *ReservationUseCase) Reserve(ctx context.Context, in ReserveInput) (*entity.Reservation, error) {
	start := time.Now()
	r, err := uc.reserve(ctx, in)
	return r, uc.finish("reserve", start, err)
}

func (uc *ReservationUseCase) reserve(ctx context.Context, in ReserveInput) (*entity.Reservation, error) {
	now := uc.now()
	if !in.BalanceKey.Valid() {
		return nil, domain.Validation("producto y bodega son obligatorios")
	}
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ReferenceNumber) == "" {
		return nil, domain.Validation("número de referencia obligatorio")
	}
	if strings.TrimSpace(in.ReservationType) == "" {
		return nil, domain.Validation("tipo de reserva obligatorio")
	}
	expiry := in.ExpiryDate
	if expiry == nil && uc.opts.reservationTTL > 0 {
		e := now.Add(uc.opts.reservationTTL)
		expiry = &e
	}
	if expiry != nil && !expiry.After(now) {
		return nil, domain.Validation("la fecha de expiración debe ser futura")
	}

	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		bal, err := balanceRepo.GetForUpdate(ctx, in.BalanceKey)
		if err != nil {
			return err
		}
		if bal == nil {
			return domain.NotFound("saldo", in.BalanceKey.String())
		}
		if available := bal.Available(); available.LessThan(in.Quantity) {
			return domain.InsufficientStock(in.BalanceKey, in.Quantity, available)
		}
		res = &entity.Reservation{
			BalanceKey:       in.BalanceKey,
			ReservationType:  in.ReservationType,
			ReferenceNumber:  in.ReferenceNumber,
			ReservedQuantity: in.Quantity,
			ReleasedQuantity: decimal.Zero,
			Status:           entity.ReservationReserved,
			ReservationDate:  now,
			ExpiryDate:       expiry,
			UpdatedAt:        now,
		}
		if err := reservationRepo.Create(ctx, res); err != nil {
			return err
		}
		bal.ReservedQuantity = bal.ReservedQuantity.Add(in.Quantity)
		bal.UpdatedAt = now
		return balanceRepo.Update(ctx, bal)
	})
	if err != nil {
		return nil, err
	}
	uc.changed(ctx, now, res)
	return res, nil
}

// Release libera qty (o todo lo pendiente si qty es nil).
func (uc *ReservationUseCase) Release(ctx context.Context, id int64, qty *decimal.Decimal) (*entity.Reservation, error) {
	start := time.Now()
	if qty != nil {
		if err := validateQuantity(*qty); err != nil {
			return nil, uc.finish("release", start, err)
		}
	}
	now := uc.now()
	r, err := uc.settle(ctx, id, now, func(r *entity.Reservation) (decimal.Decimal, error) {
		if !r.Status.Active() {
			return decimal.Zero, domain.Validation("la reserva %d está %s y no se puede liberar", r.ID, r.Status)
		}
		amount := r.Remaining()
		if qty != nil {
			if qty.GreaterThan(amount) {
				return decimal.Zero, domain.Validation("no se puede liberar %s: pendiente %s", qty, amount)
			}
			amount = *qty
		}
		r.Release(amount, now)
		return amount, nil
	})
	return r, uc.finish("release", start, err)
}

// Cancel anula la reserva y devuelve lo pendiente a la cantidad libre.
func (uc *ReservationUseCase) Cancel(ctx context.Context, id int64, reason string) (*entity.Reservation, error) {
	start := time.Now()
	now := uc.now()
	r, err := uc.settle(ctx, id, now, func(r *entity.Reservation) (decimal.Decimal, error) {
		amount := r.Remaining()
		if !r.Cancel(reason, now) {
			return decimal.Zero, domain.Validation("la reserva %d está %s y no se puede cancelar", r.ID, r.Status)
		}
		return amount, nil
	})
	return r, uc.finish("cancel", start, err)
}

// Extend mueve la expiración hacia adelante. Solo reservas activas.
func (uc *ReservationUseCase) Extend(ctx context.Context, id int64, newExpiry time.Time) (*entity.Reservation, error) {
	start := time.Now()
	r, err := uc.extend(ctx, id, newExpiry)
	return r, uc.finish("extend", start, err)
}

func (uc *ReservationUseCase) extend(ctx context.Context, id int64, newExpiry time.Time) (*entity.Reservation, error) {
	now := uc.now()
	if !newExpiry.After(now) {
		return nil, domain.Validation("la nueva expiración debe ser futura")
	}
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		_ repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		r, err := reservationRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return domain.NotFound("reserva", strconv.FormatInt(id, 10))
		}
		if !r.Status.Active() {
			return domain.Validation("la reserva %d está %s y no se puede extender", r.ID, r.Status)
		}
		if r.ExpiryDate != nil && !newExpiry.After(*r.ExpiryDate) {
			return domain.Validation("la nueva expiración debe ser posterior a la actual")
		}
		e := newExpiry.UTC()
		r.ExpiryDate = &e
		r.UpdatedAt = now
		if err := reservationRepo.Update(ctx, r); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.changed(ctx, now, res)
	return res, nil
}

// SweepExpired libera las reservas activas vencidas, cada una en su propia transacción.
// Devuelve cuántas liberó; los fallos individuales se registran y no detienen el barrido.
func (uc *ReservationUseCase) SweepExpired(ctx context.Context) (int, error) {
	start := time.Now()
	now := uc.now()

	var ids []int64
	err := uc.txRunner.Run(ctx, func(
		_ repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		var err error
		ids, err = reservationRepo.ListExpired(ctx, now, uc.opts.sweepBatch)
		return err
	})
	if err != nil {
		return 0, uc.finish("sweep_expired", start, err)
	}

	released := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		_, err := uc.settle(ctx, id, now, func(r *entity.Reservation) (decimal.Decimal, error) {
			if !r.Expired(now) {
				return decimal.Zero, errSkip
			}
			amount := r.Remaining()
			r.Release(amount, now)
			return amount, nil
		})
		switch {
		case err == nil:
			released++
		case errors.Is(err, errSkip):
		default:
			uc.log.Error().Err(err).Int64("reservation_id", id).Msg("liberar reserva vencida")
		}
	}
	uc.opts.observer.ReservationsSwept(released)
	if released > 0 {
		uc.log.Info().Int("released", released).Msg("reservas vencidas liberadas")
	}
	return released, uc.finish("sweep_expired", start, nil)
}

// GetReservation devuelve una reserva por ID.
func (uc *ReservationUseCase) GetReservation(ctx context.Context, id int64) (*entity.Reservation, error) {
	start := time.Now()
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		_ repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		var err error
		res, err = reservationRepo.GetByID(ctx, id)
		return err
	})
	if err == nil && res == nil {
		err = domain.NotFound("reserva", strconv.FormatInt(id, 10))
	}
	return res, uc.finish("get_reservation", start, err)
}

// ListByReference devuelve las reservas de una referencia externa.
func (uc *ReservationUseCase) ListByReference(ctx context.Context, referenceNumber string) ([]*entity.Reservation, error) {
	start := time.Now()
	if strings.TrimSpace(referenceNumber) == "" {
		return nil, uc.finish("list_reservations", start, domain.Validation("número de referencia obligatorio"))
	}
	var list []*entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		_ repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		var err error
		list, err = reservationRepo.ListByReference(ctx, referenceNumber)
		return err
	})
	return list, uc.finish("list_reservations", start, err)
}

var errSkip = errors.New("reservation skipped")

// settle aplica una transición que devuelve stock a la cantidad libre. transition muta la
// reserva y devuelve cuánto deja de estar reservado.
func (uc *ReservationUseCase) settle(
	ctx context.Context,
	id int64,
	now time.Time,
	transition func(r *entity.Reservation) (decimal.Decimal, error),
) (*entity.Reservation, error) {
	var res *entity.Reservation
	err := uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		_ repository.MovementRepository,
		reservationRepo repository.ReservationRepository,
	) error {
		current, err := reservationRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NotFound("reserva", strconv.FormatInt(id, 10))
		}
		bal, err := balanceRepo.GetForUpdate(ctx, current.BalanceKey)
		if err != nil {
			return err
		}
		if bal == nil {
			return fmt.Errorf("reservation %d: balance %s missing", id, current.BalanceKey)
		}
		r, err := reservationRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		amount, err := transition(r)
		if err != nil {
			return err
		}
		if err := reservationRepo.Update(ctx, r); err != nil {
			return err
		}
		bal.ReservedQuantity = bal.ReservedQuantity.Sub(amount)
		if bal.ReservedQuantity.IsNegative() {
			return fmt.Errorf("reservation %d: reserved quantity of %s would go negative", id, bal.BalanceKey)
		}
		bal.UpdatedAt = now
		if err := balanceRepo.Update(ctx, bal); err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.changed(ctx, now, res)
	return res, nil
}

func (uc *ReservationUseCase) changed(ctx context.Context, now time.Time, r *entity.Reservation) {
	uc.opts.observer.ReservationChanged(r.Status)
	uc.log.Info().
		Int64("reservation_id", r.ID).
		Str("reference_number", r.ReferenceNumber).
		Str("product_id", r.ProductID).
		Str("warehouse_id", r.WarehouseID).
		Str("status", string(r.Status)).
		Str("remaining", r.Remaining().String()).
		Msg("reserva actualizada")
	uc.publish(ctx, reservationEvent(r, now))
}
