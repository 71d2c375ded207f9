package inventory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// MovementInput entrada de AddStock y ReduceStock.
type MovementInput struct {
	entity.BalanceKey
	Quantity       decimal.Decimal
	MovementType   entity.MovementType
	BusinessNumber string
	UnitCost       *decimal.Decimal // solo entradas
	BatchNumber    string
	Source         entity.SourceDocument
	OperationTag   entity.OperationTag // vacío = INSERT
	UserID         string
}

// TransferInput entrada de TransferStock. El producto es el mismo en origen y destino.
type TransferInput struct {
	ProductID       string
	FromWarehouseID string
	FromLocationID  string
	ToWarehouseID   string
	ToLocationID    string
	Quantity        decimal.Decimal
	BusinessNumber  string
	BatchNumber     string
	Source          entity.SourceDocument
	OperationTag    entity.OperationTag
	UserID          string
}

// From clave de origen.
func (in TransferInput) From() entity.BalanceKey {
	return entity.BalanceKey{ProductID: in.ProductID, WarehouseID: in.FromWarehouseID, LocationID: in.FromLocationID}
}

// To clave de destino.
func (in TransferInput) To() entity.BalanceKey {
	return entity.BalanceKey{ProductID: in.ProductID, WarehouseID: in.ToWarehouseID, LocationID: in.ToLocationID}
}

// AdjustInput entrada de AdjustStock: lleva el saldo a NewQuantity.
type AdjustInput struct {
	entity.BalanceKey
	NewQuantity    decimal.Decimal
	MovementType   entity.MovementType // vacío = ADJUSTMENT
	BusinessNumber string
	UnitCost       *decimal.Decimal
	Source         entity.SourceDocument
	OperationTag   entity.OperationTag
	UserID         string
}

// MovementResult línea escrita y saldo resultante. Line es nil cuando no hubo movimiento.
type MovementResult struct {
	Line    *entity.MovementLine
	Balance *entity.StockBalance
}

// TransferResult las dos patas de un traslado.
type TransferResult struct {
	Out MovementResult
	In  MovementResult
}

// movementCmd es un movimiento ya validado listo para aplicarse dentro de una transacción.
type movementCmd struct {
	key      entity.BalanceKey
	quantity decimal.Decimal
	inbound  bool
	unitCost *decimal.Decimal
	tag      entity.OperationTag
	batch    string
	source   entity.SourceDocument
}

// StockLedgerUseCase registra entradas, salidas, traslados y ajustes de forma transaccional
// con bloqueo de fila (SELECT FOR UPDATE) y costo promedio móvil.
type StockLedgerUseCase struct {
	base
}

// NewStockLedgerUseCase construye el caso de uso.
func NewStockLedgerUseCase(txRunner TxRunner, log *logger.Logger, opts ...Option) *StockLedgerUseCase {
	return &StockLedgerUseCase{base: newBase(txRunner, log, "stock_ledger", opts)}
}

// AddStock suma cantidad a una clave, recalcula el costo promedio y anexa la línea al log.
func (uc *StockLedgerUseCase) AddStock(ctx context.Context, in MovementInput) (*MovementResult, error) {
	start := time.Now()
	res, err := uc.move(ctx, in, true)
	return res, uc.finish("add_stock", start, err)
}

// ReduceStock resta cantidad de una clave. Solo consume stock libre (físico menos reservado).
func (uc *StockLedgerUseCase) ReduceStock(ctx context.Context, in MovementInput) (*MovementResult, error) {
	start := time.Now()
	res, err := uc.move(ctx, in, false)
	return res, uc.finish("reduce_stock", start, err)
}

func (uc *StockLedgerUseCase) move(ctx context.Context, in MovementInput, inbound bool) (*MovementResult, error) {
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	tag, err := validateDocument(in.BalanceKey, in.MovementType, in.BusinessNumber, in.UnitCost, in.OperationTag)
	if err != nil {
		return nil, err
	}
	cmd := movementCmd{
		key:      in.BalanceKey,
		quantity: in.Quantity,
		inbound:  inbound,
		unitCost: in.UnitCost,
		tag:      tag,
		batch:    in.BatchNumber,
		source:   in.Source,
	}

	var (
		res *MovementResult
		now time.Time
	)
	err = uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		if now, err = uc.lockDocument(ctx, movementRepo, in.BusinessNumber); err != nil {
			return err
		}
		j := newJournal(movementRepo, in.BusinessNumber, in.MovementType, in.UserID, now)
		res, err = uc.apply(ctx, balanceRepo, j, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.committed(ctx, now, *res)
	return res, nil
}

// TransferStock saca de origen y entra en destino al costo promedio de origen, en una sola transacción.
func (uc *StockLedgerUseCase) TransferStock(ctx context.Context, in TransferInput) (*TransferResult, error) {
	start := time.Now()
	res, err := uc.transfer(ctx, in)
	return res, uc.finish("transfer_stock", start, err)
}

func (uc *StockLedgerUseCase) transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	from, to := in.From(), in.To()
	if err := validateQuantity(in.Quantity); err != nil {
		return nil, err
	}
	tag, err := validateDocument(from, entity.MovementTypeTransfer, in.BusinessNumber, nil, in.OperationTag)
	if err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, domain.Validation("bodega destino obligatoria")
	}
	if from == to {
		return nil, domain.Validation("origen y destino deben ser distintos")
	}

	var (
		res *TransferResult
		now time.Time
	)
	err = uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		if now, err = uc.lockDocument(ctx, movementRepo, in.BusinessNumber); err != nil {
			return err
		}
		if err := lockKeys(ctx, balanceRepo, []entity.BalanceKey{from, to}); err != nil {
			return err
		}
		j := newJournal(movementRepo, in.BusinessNumber, entity.MovementTypeTransfer, in.UserID, now)
		out, err := uc.apply(ctx, balanceRepo, j, movementCmd{
			key: from, quantity: in.Quantity, tag: tag, batch: in.BatchNumber, source: in.Source,
		})
		if err != nil {
			return err
		}
		inb, err := uc.apply(ctx, balanceRepo, j, movementCmd{
			key: to, quantity: in.Quantity, inbound: true, unitCost: out.Line.UnitCost,
			tag: tag, batch: in.BatchNumber, source: in.Source,
		})
		if err != nil {
			return err
		}
		res = &TransferResult{Out: *out, In: *inb}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.committed(ctx, now, res.Out, res.In)
	return res, nil
}

// AdjustStock lleva el saldo a NewQuantity con una entrada o salida por la diferencia.
// Si no hay diferencia no escribe nada.
func (uc *StockLedgerUseCase) AdjustStock(ctx context.Context, in AdjustInput) (*MovementResult, error) {
	start := time.Now()
	res, err := uc.adjust(ctx, in)
	return res, uc.finish("adjust_stock", start, err)
}

func (uc *StockLedgerUseCase) adjust(ctx context.Context, in AdjustInput) (*MovementResult, error) {
	if in.MovementType == "" {
		in.MovementType = entity.MovementTypeAdjustment
	}
	if in.NewQuantity.IsNegative() {
		return nil, domain.Validation("la cantidad objetivo no puede ser negativa")
	}
	if !inventory.FitsQuantityScale(in.NewQuantity) {
		return nil, domain.Validation("la cantidad admite máximo %d decimales", inventory.QuantityScale)
	}
	tag, err := validateDocument(in.BalanceKey, in.MovementType, in.BusinessNumber, in.UnitCost, in.OperationTag)
	if err != nil {
		return nil, err
	}

	var (
		res *MovementResult
		now time.Time
	)
	err = uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		movementRepo repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		if now, err = uc.lockDocument(ctx, movementRepo, in.BusinessNumber); err != nil {
			return err
		}
		bal, err := balanceRepo.GetForUpdate(ctx, in.BalanceKey)
		if err != nil {
			return err
		}
		current := decimal.Zero
		if bal != nil {
			current = bal.CurrentQuantity
		}
		delta := in.NewQuantity.Sub(current)
		if delta.IsZero() {
			res = &MovementResult{Balance: bal}
			return nil
		}
		j := newJournal(movementRepo, in.BusinessNumber, in.MovementType, in.UserID, now)
		res, err = uc.apply(ctx, balanceRepo, j, movementCmd{
			key:      in.BalanceKey,
			quantity: delta.Abs(),
			inbound:  delta.IsPositive(),
			unitCost: in.UnitCost,
			tag:      tag,
			source:   in.Source,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Line != nil {
		uc.committed(ctx, now, *res)
	}
	return res, nil
}

// GetBalance devuelve el saldo de una clave; NotFound si nunca tuvo movimientos.
func (uc *StockLedgerUseCase) GetBalance(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	start := time.Now()
	bal, err := uc.getBalance(ctx, key)
	if err == nil && bal == nil {
		err = domain.NotFound("saldo", key.String())
	}
	return bal, uc.finish("get_balance", start, err)
}

// GetAvailableQuantity devuelve la cantidad libre de una clave (cero si no existe).
func (uc *StockLedgerUseCase) GetAvailableQuantity(ctx context.Context, key entity.BalanceKey) (decimal.Decimal, error) {
	start := time.Now()
	bal, err := uc.getBalance(ctx, key)
	available := decimal.Zero
	if err == nil && bal != nil {
		available = bal.Available()
	}
	return available, uc.finish("get_available_quantity", start, err)
}

// IsStockAvailable indica si la cantidad libre cubre required.
func (uc *StockLedgerUseCase) IsStockAvailable(ctx context.Context, key entity.BalanceKey, required decimal.Decimal) (bool, error) {
	if required.IsNegative() {
		return false, domain.Validation("la cantidad requerida no puede ser negativa")
	}
	available, err := uc.GetAvailableQuantity(ctx, key)
	if err != nil {
		return false, err
	}
	return available.GreaterThanOrEqual(required), nil
}

// ListBalancesByProduct devuelve los saldos de un producto en todas sus bodegas y ubicaciones.
func (uc *StockLedgerUseCase) ListBalancesByProduct(ctx context.Context, productID string) ([]*entity.StockBalance, error) {
	start := time.Now()
	if strings.TrimSpace(productID) == "" {
		return nil, uc.finish("list_balances", start, domain.Validation("producto obligatorio"))
	}
	var list []*entity.StockBalance
	err := uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		_ repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		list, err = balanceRepo.ListByProduct(ctx, productID)
		return err
	})
	return list, uc.finish("list_balances", start, err)
}

func (uc *StockLedgerUseCase) getBalance(ctx context.Context, key entity.BalanceKey) (*entity.StockBalance, error) {
	if !key.Valid() {
		return nil, domain.Validation("producto y bodega son obligatorios")
	}
	var bal *entity.StockBalance
	err := uc.txRunner.Run(ctx, func(
		balanceRepo repository.BalanceRepository,
		_ repository.MovementRepository,
		_ repository.ReservationRepository,
	) error {
		var err error
		bal, err = balanceRepo.Get(ctx, key)
		return err
	})
	return bal, err
}

// apply bloquea la fila, valida, actualiza el saldo y anexa la línea. Debe correr dentro de una transacción.
func (uc *StockLedgerUseCase) apply(ctx context.Context, balanceRepo repository.BalanceRepository, j *journal, cmd movementCmd) (*MovementResult, error) {
	bal, err := balanceRepo.GetForUpdate(ctx, cmd.key)
	if err != nil {
		return nil, err
	}
	isNew := bal == nil
	if isNew {
		if !cmd.inbound {
			return nil, domain.InsufficientStock(cmd.key, cmd.quantity, decimal.Zero)
		}
		bal = entity.NewStockBalance(cmd.key, j.now)
	}

	signed := cmd.quantity
	lineCost := cmd.unitCost
	if cmd.inbound {
		bal.AverageUnitCost = inventory.NextAverageCost(bal.CurrentQuantity, bal.AverageUnitCost, cmd.quantity, cmd.unitCost)
		bal.CurrentQuantity = bal.CurrentQuantity.Add(cmd.quantity)
	} else {
		if available := bal.Available(); available.LessThan(cmd.quantity) {
			return nil, domain.InsufficientStock(cmd.key, cmd.quantity, available)
		}
		bal.CurrentQuantity = bal.CurrentQuantity.Sub(cmd.quantity)
		lineCost = bal.AverageUnitCost
		signed = signed.Neg()
	}
	at := j.now
	bal.LastMovementAt = &at
	bal.UpdatedAt = at

	if isNew {
		err = balanceRepo.Create(ctx, bal)
	} else {
		err = balanceRepo.Update(ctx, bal)
	}
	if err != nil {
		return nil, err
	}

	line, err := j.append(ctx, cmd.key, signed, lineCost, cmd.tag, cmd.batch, cmd.source)
	if err != nil {
		return nil, err
	}
	return &MovementResult{Line: &line, Balance: bal}, nil
}

// committed registra, mide y publica movimientos ya confirmados.
func (uc *StockLedgerUseCase) committed(ctx context.Context, now time.Time, results ...MovementResult) {
	events := make([]LedgerEvent, 0, len(results))
	for _, r := range results {
		l := r.Line
		uc.opts.observer.MovementApplied(l.MovementType, l.OperationTag, l.SignedQuantity.IsPositive())
		uc.log.Info().
			Str("business_number", l.BusinessNumber).
			Str("movement_type", string(l.MovementType)).
			Str("operation_tag", string(l.OperationTag)).
			Str("product_id", l.ProductID).
			Str("warehouse_id", l.WarehouseID).
			Str("location_id", l.LocationID).
			Str("quantity", l.SignedQuantity.String()).
			Str("balance", r.Balance.CurrentQuantity.String()).
			Msg("movimiento aplicado")
		events = append(events, stockMovedEvent(r, now))
	}
	uc.publish(ctx, events...)
}

// lockDocument bloquea el número de documento y devuelve la hora de la operación, tomada
// ya con el bloqueo para que siga el orden de escritura. Debe correr dentro de una transacción.
func (b *base) lockDocument(ctx context.Context, movementRepo repository.MovementRepository, businessNumber string) (time.Time, error) {
	if err := movementRepo.LockBusinessNumber(ctx, businessNumber); err != nil {
		return time.Time{}, err
	}
	return b.now(), nil
}

// lockKeys bloquea las filas en orden de clave para que dos transacciones no se esperen en cruz.
func lockKeys(ctx context.Context, balanceRepo repository.BalanceRepository, keys []entity.BalanceKey) error {
	sorted := slices.Clone(keys)
	slices.SortFunc(sorted, entity.BalanceKey.Compare)
	for _, k := range sorted {
		if _, err := balanceRepo.GetForUpdate(ctx, k); err != nil {
			return fmt.Errorf("lock balance %s: %w", k, err)
		}
	}
	return nil
}

// validateQuantity exige una cantidad positiva representable en el almacén.
func validateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.Validation("la cantidad debe ser mayor que cero")
	}
	if !inventory.FitsQuantityScale(q) {
		return domain.Validation("la cantidad admite máximo %d decimales", inventory.QuantityScale)
	}
	return nil
}

// validateDocument valida la clave y los datos del documento; devuelve la etiqueta efectiva.
func validateDocument(
	key entity.BalanceKey,
	movementType entity.MovementType,
	businessNumber string,
	unitCost *decimal.Decimal,
	tag entity.OperationTag,
) (entity.OperationTag, error) {
	if !key.Valid() {
		return "", domain.Validation("producto y bodega son obligatorios")
	}
	if !movementType.Valid() {
		return "", domain.Validation("tipo de movimiento desconocido: %q", movementType)
	}
	if strings.TrimSpace(businessNumber) == "" {
		return "", domain.Validation("número de documento obligatorio")
	}
	if unitCost != nil && unitCost.IsNegative() {
		return "", domain.Validation("el costo unitario no puede ser negativo")
	}
	if tag == "" {
		tag = entity.OperationInsert
	}
	if !tag.Valid() {
		return "", domain.Validation("etiqueta de operación desconocida: %q", tag)
	}
	return tag, nil
}
