package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos sobre PostgreSQL. Solo inserta: un trigger en
// movement_details rechaza UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// CreateHeader persiste la cabecera y asigna su ID.
func (r *MovementRepo) CreateHeader(ctx context.Context, h *entity.MovementHeader) error {
	query := `
		INSERT INTO movement_headers (correlation_id, business_number, movement_type, warehouse_id, movement_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	createdBy := (*string)(nil)
	if h.CreatedBy != "" {
		createdBy = &h.CreatedBy
	}
	err := r.q.QueryRow(ctx, query,
		h.CorrelationID, h.BusinessNumber, string(h.MovementType), h.WarehouseID,
		h.MovementDate, createdBy, h.CreatedAt,
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("create movement header: %w", err)
	}
	return nil
}

// AppendDetail persiste una línea y asigna su ID.
func (r *MovementRepo) AppendDetail(ctx context.Context, d *entity.MovementDetail) error {
	query := `
		INSERT INTO movement_details (header_id, product_id, location_id, batch_number, signed_quantity,
			unit_cost, operation_tag, operation_at, source_type, source_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		d.HeaderID, d.ProductID, d.LocationID, d.BatchNumber, d.SignedQuantity,
		d.UnitCost, string(d.OperationTag), d.OperationAt, d.Source.Type, d.Source.ID,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("append movement detail: %w", err)
	}
	return nil
}

// ListByBusinessNumber devuelve todas las líneas del documento en orden de aplicación.
func (r *MovementRepo) ListByBusinessNumber(ctx context.Context, businessNumber string) ([]entity.MovementLine, error) {
	query := `
		SELECT d.id, d.header_id, d.product_id, d.location_id, d.batch_number, d.signed_quantity,
			d.unit_cost, d.operation_tag, d.operation_at, d.source_type, d.source_id,
			h.business_number, h.movement_type, h.warehouse_id, h.correlation_id, COALESCE(h.created_by, '')
		FROM movement_details d
		JOIN movement_headers h ON h.id = d.header_id
		WHERE h.business_number = $1
		ORDER BY d.id`
	rows, err := r.q.Query(ctx, query, businessNumber)
	if err != nil {
		return nil, fmt.Errorf("list movements by business number: %w", err)
	}
	defer rows.Close()
	var list []entity.MovementLine
	for rows.Next() {
		var l entity.MovementLine
		var cost decimal.NullDecimal
		var tag, movementType string
		if err := rows.Scan(
			&l.ID, &l.HeaderID, &l.ProductID, &l.LocationID, &l.BatchNumber, &l.SignedQuantity,
			&cost, &tag, &l.OperationAt, &l.Source.Type, &l.Source.ID,
			&l.BusinessNumber, &movementType, &l.WarehouseID, &l.CorrelationID, &l.CreatedBy,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		l.UnitCost = fromNullDecimal(cost)
		l.OperationTag = entity.OperationTag(tag)
		l.MovementType = entity.MovementType(movementType)
		list = append(list, l)
	}
	return list, rows.Err()
}

// LockBusinessNumber toma un advisory lock de transacción sobre el número de documento.
func (r *MovementRepo) LockBusinessNumber(ctx context.Context, businessNumber string) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, businessNumber); err != nil {
		return fmt.Errorf("lock business number %s: %w", businessNumber, err)
	}
	return nil
}
