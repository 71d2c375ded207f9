package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// journal escribe en el log las líneas de una llamada, con una cabecera por bodega.
// Vive lo que dura una transacción.
type journal struct {
	movements      repository.MovementRepository
	correlationID  string
	businessNumber string
	movementType   entity.MovementType
	userID         string
	now            time.Time
	headers        map[string]*entity.MovementHeader
}

func newJournal(movements repository.MovementRepository, businessNumber string, movementType entity.MovementType, userID string, now time.Time) *journal {
	return &journal{
		movements:      movements,
		correlationID:  uuid.New().String(),
		businessNumber: businessNumber,
		movementType:   movementType,
		userID:         userID,
		now:            now,
		headers:        make(map[string]*entity.MovementHeader),
	}
}

func (j *journal) header(ctx context.Context, warehouseID string) (*entity.MovementHeader, error) {
	if h, ok := j.headers[warehouseID]; ok {
		return h, nil
	}
	h := &entity.MovementHeader{
		CorrelationID:  j.correlationID,
		BusinessNumber: j.businessNumber,
		MovementType:   j.movementType,
		WarehouseID:    warehouseID,
		MovementDate:   j.now,
		CreatedBy:      j.userID,
		CreatedAt:      j.now,
	}
	if err := j.movements.CreateHeader(ctx, h); err != nil {
		return nil, err
	}
	j.headers[warehouseID] = h
	return h, nil
}

func (j *journal) append(
	ctx context.Context,
	key entity.BalanceKey,
	signed decimal.Decimal,
	unitCost *decimal.Decimal,
	tag entity.OperationTag,
	batch string,
	source entity.SourceDocument,
) (entity.MovementLine, error) {
	h, err := j.header(ctx, key.WarehouseID)
	if err != nil {
		return entity.MovementLine{}, err
	}
	d := entity.MovementDetail{
		HeaderID:       h.ID,
		ProductID:      key.ProductID,
		LocationID:     key.LocationID,
		BatchNumber:    batch,
		SignedQuantity: signed,
		UnitCost:       unitCost,
		OperationTag:   tag,
		OperationAt:    j.now,
		Source:         source,
	}
	if err := j.movements.AppendDetail(ctx, &d); err != nil {
		return entity.MovementLine{}, err
	}
	return entity.MovementLine{
		MovementDetail: d,
		BusinessNumber: h.BusinessNumber,
		MovementType:   h.MovementType,
		WarehouseID:    h.WarehouseID,
		CorrelationID:  h.CorrelationID,
		CreatedBy:      h.CreatedBy,
	}, nil
}
