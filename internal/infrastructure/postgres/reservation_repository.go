package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ReservationRepository = (*ReservationRepo)(nil)

// ReservationRepo reservas sobre PostgreSQL.
type ReservationRepo struct {
	q Querier
}

// NewReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReservationRepository(q Querier) *ReservationRepo {
	return &ReservationRepo{q: q}
}

const reservationColumns = `id, product_id, warehouse_id, location_id, reservation_type, reference_number,
	reserved_quantity, released_quantity, status, reservation_date, expiry_date, cancel_reason, updated_at`

func scanReservation(row pgx.Row) (*entity.Reservation, error) {
	var res entity.Reservation
	var status string
	if err := row.Scan(
		&res.ID, &res.ProductID, &res.WarehouseID, &res.LocationID, &res.ReservationType, &res.ReferenceNumber,
		&res.ReservedQuantity, &res.ReleasedQuantity, &status, &res.ReservationDate, &res.ExpiryDate,
		&res.CancelReason, &res.UpdatedAt,
	); err != nil {
		return nil, err
	}
	res.Status = entity.ReservationStatus(status)
	return &res, nil
}

// Create persiste la reserva y asigna su ID.
func (r *ReservationRepo) Create(ctx context.Context, res *entity.Reservation) error {
	query := `
		INSERT INTO stock_reservations (product_id, warehouse_id, location_id, reservation_type, reference_number,
			reserved_quantity, released_quantity, status, reservation_date, expiry_date, cancel_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		res.ProductID, res.WarehouseID, res.LocationID, res.ReservationType, res.ReferenceNumber,
		res.ReservedQuantity, res.ReleasedQuantity, string(res.Status), res.ReservationDate, res.ExpiryDate,
		res.CancelReason, res.UpdatedAt,
	).Scan(&res.ID)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

// GetByID obtiene una reserva; nil si no existe.
func (r *ReservationRepo) GetByID(ctx context.Context, id int64) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM stock_reservations WHERE id = $1`, id)
}

// GetForUpdate obtiene la reserva y bloquea la fila.
func (r *ReservationRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM stock_reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepo) get(ctx context.Context, query string, id int64) (*entity.Reservation, error) {
	res, err := scanReservation(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return res, nil
}

// Update guarda cantidades liberadas, estado y expiración.
func (r *ReservationRepo) Update(ctx context.Context, res *entity.Reservation) error {
	query := `
		UPDATE stock_reservations
		SET released_quantity = $2, status = $3, expiry_date = $4, cancel_reason = $5, updated_at = $6
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		res.ID, res.ReleasedQuantity, string(res.Status), res.ExpiryDate, res.CancelReason, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update reservation %d: %w", res.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update reservation %d: no rows affected", res.ID)
	}
	return nil
}

// ListByReference lista las reservas de una referencia externa.
func (r *ReservationRepo) ListByReference(ctx context.Context, referenceNumber string) ([]*entity.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
		FROM stock_reservations WHERE reference_number = $1 ORDER BY id`
	rows, err := r.q.Query(ctx, query, referenceNumber)
	if err != nil {
		return nil, fmt.Errorf("list reservations by reference: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		list = append(list, res)
	}
	return list, rows.Err()
}

// ListExpired IDs de reservas activas vencidas, las más antiguas primero.
func (r *ReservationRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM stock_reservations
		WHERE status IN ('RESERVED', 'PARTIALLY_RELEASED') AND expiry_date <= $1
		ORDER BY expiry_date, id
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired reservations: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
