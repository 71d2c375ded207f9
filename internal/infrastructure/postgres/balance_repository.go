package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador de saldos. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

const balanceColumns = `product_id, warehouse_id, location_id, current_quantity, reserved_quantity,
	average_unit_cost, last_movement_at, created_at, updated_at`

func scanBalance(row pgx.Row) (*entity.StockBalance, error) {
	var b entity.StockBalance
	var cost decimal.NullDecimal
	if err := row.Scan(
		&b.ProductID, &b.WarehouseID, &b.LocationID, &b.CurrentQuantity, &b.ReservedQuantity,
		&cost, &b.LastMovementAt, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.AverageUnitCost = fromNullDecimal(cost)
	return &b, nil
}

// Get obtiene el saldo de una clave; nil si no existe.
func (r *BalanceRepo) Get(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances WHERE product_id = $1 AND warehouse_id = $2 AND location_id = $3`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, key.LocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance %s: %w", key, err)
	}
	return b, nil
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE).
func (r *BalanceRepo) GetForUpdate(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances WHERE product_id = $1 AND warehouse_id = $2 AND location_id = $3
		FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, key.ProductID, key.WarehouseID, key.LocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get balance for update %s: %w", key, err)
	}
	return b, nil
}

// Create inserta un saldo nuevo. Si otra transacción creó la misma clave devuelve un conflicto.
func (r *BalanceRepo) Create(ctx context.Context, b *entity.StockBalance) error {
	query := `
		INSERT INTO stock_balances (` + balanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		b.ProductID, b.WarehouseID, b.LocationID, b.CurrentQuantity, b.ReservedQuantity,
		b.AverageUnitCost, b.LastMovementAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict(fmt.Errorf("balance %s already exists: %w", b.BalanceKey, err))
		}
		return fmt.Errorf("create balance %s: %w", b.BalanceKey, err)
	}
	return nil
}

// Update reescribe cantidades, costo y fechas del saldo.
func (r *BalanceRepo) Update(ctx context.Context, b *entity.StockBalance) error {
	query := `
		UPDATE stock_balances
		SET current_quantity = $4, reserved_quantity = $5, average_unit_cost = $6,
			last_movement_at = $7, updated_at = $8
		WHERE product_id = $1 AND warehouse_id = $2 AND location_id = $3`
	tag, err := r.q.Exec(ctx, query,
		b.ProductID, b.WarehouseID, b.LocationID,
		b.CurrentQuantity, b.ReservedQuantity, b.AverageUnitCost, b.LastMovementAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update balance %s: %w", b.BalanceKey, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update balance %s: no rows affected", b.BalanceKey)
	}
	return nil
}

// ListByProduct lista los saldos de un producto en todas sus bodegas y ubicaciones.
func (r *BalanceRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error) {
	query := `SELECT ` + balanceColumns + `
		FROM stock_balances WHERE product_id = $1
		ORDER BY warehouse_id, location_id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list balances by product: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func fromNullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}
