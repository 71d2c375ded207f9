package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

// MovementRequest entrada o salida de stock (AddStock / ReduceStock).
type MovementRequest struct {
	ProductID      string           `json:"product_id" validate:"required,max=100"`
	WarehouseID    string           `json:"warehouse_id" validate:"required,max=100"`
	LocationID     string           `json:"location_id" validate:"max=100"`
	Quantity       decimal.Decimal  `json:"quantity" validate:"gt=0"`
	MovementType   string           `json:"movement_type" validate:"required,oneof=PURCHASE SALE SALES_RETURN TRANSFER ADJUSTMENT MATERIAL_ISSUE MATERIAL_RETURN STOCK_TAKING"`
	BusinessNumber string           `json:"business_number" validate:"required,max=100"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	BatchNumber    string           `json:"batch_number" validate:"max=100"`
	SourceType     string           `json:"source_document_type" validate:"max=100"`
	SourceID       string           `json:"source_document_id" validate:"max=100"`
	OperationTag   string           `json:"operation_tag" validate:"omitempty,oneof=INSERT ADJUST DELETE"`
}

// TransferRequest traslado del mismo producto entre bodegas o ubicaciones.
type TransferRequest struct {
	ProductID       string          `json:"product_id" validate:"required,max=100"`
	FromWarehouseID string          `json:"from_warehouse_id" validate:"required,max=100"`
	FromLocationID  string          `json:"from_location_id" validate:"max=100"`
	ToWarehouseID   string          `json:"to_warehouse_id" validate:"required,max=100"`
	ToLocationID    string          `json:"to_location_id" validate:"max=100"`
	Quantity        decimal.Decimal `json:"quantity" validate:"gt=0"`
	BusinessNumber  string          `json:"business_number" validate:"required,max=100"`
	BatchNumber     string          `json:"batch_number" validate:"max=100"`
	SourceType      string          `json:"source_document_type" validate:"max=100"`
	SourceID        string          `json:"source_document_id" validate:"max=100"`
	OperationTag    string          `json:"operation_tag" validate:"omitempty,oneof=INSERT ADJUST DELETE"`
}

// AdjustRequest lleva el saldo de una clave a NewQuantity (toma física).
type AdjustRequest struct {
	ProductID      string           `json:"product_id" validate:"required,max=100"`
	WarehouseID    string           `json:"warehouse_id" validate:"required,max=100"`
	LocationID     string           `json:"location_id" validate:"max=100"`
	NewQuantity    decimal.Decimal  `json:"new_quantity" validate:"gte=0"`
	MovementType   string           `json:"movement_type" validate:"omitempty,oneof=PURCHASE SALE SALES_RETURN TRANSFER ADJUSTMENT MATERIAL_ISSUE MATERIAL_RETURN STOCK_TAKING"`
	BusinessNumber string           `json:"business_number" validate:"required,max=100"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	SourceType     string           `json:"source_document_type" validate:"max=100"`
	SourceID       string           `json:"source_document_id" validate:"max=100"`
	OperationTag   string           `json:"operation_tag" validate:"omitempty,oneof=INSERT ADJUST DELETE"`
}

// LineItemRequest línea vigente de un documento.
type LineItemRequest struct {
	ProductID       string           `json:"product_id" validate:"required,max=100"`
	WarehouseID     string           `json:"warehouse_id" validate:"required,max=100"`
	LocationID      string           `json:"location_id" validate:"max=100"`
	DesiredQuantity decimal.Decimal  `json:"desired_quantity"`
	UnitCost        *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	BatchNumber     string           `json:"batch_number" validate:"max=100"`
}

// ReconcileRequest líneas vigentes del documento. Lines vacío equivale a dejar el documento en cero.
type ReconcileRequest struct {
	MovementType string            `json:"movement_type" validate:"required,oneof=PURCHASE SALE SALES_RETURN TRANSFER ADJUSTMENT MATERIAL_ISSUE MATERIAL_RETURN STOCK_TAKING"`
	Direction    string            `json:"direction" validate:"required,oneof=OUTBOUND INBOUND SIGNED"`
	Lines        []LineItemRequest `json:"lines" validate:"dive"`
	SourceType   string            `json:"source_document_type" validate:"max=100"`
	SourceID     string            `json:"source_document_id" validate:"max=100"`
}

// DeleteDocumentRequest borrado definitivo de un documento.
// Viaja en la query string de DELETE.
type DeleteDocumentRequest struct {
	MovementType string `json:"movement_type" query:"movement_type" validate:"required,oneof=PURCHASE SALE SALES_RETURN TRANSFER ADJUSTMENT MATERIAL_ISSUE MATERIAL_RETURN STOCK_TAKING"`
	SourceType   string `json:"source_document_type" query:"source_document_type" validate:"max=100"`
	SourceID     string `json:"source_document_id" query:"source_document_id" validate:"max=100"`
}

// BalanceDTO saldo de una clave.
type BalanceDTO struct {
	ProductID         string           `json:"product_id"`
	WarehouseID       string           `json:"warehouse_id"`
	LocationID        string           `json:"location_id,omitempty"`
	CurrentQuantity   decimal.Decimal  `json:"current_quantity"`
	ReservedQuantity  decimal.Decimal  `json:"reserved_quantity"`
	AvailableQuantity decimal.Decimal  `json:"available_quantity"`
	AverageUnitCost   *decimal.Decimal `json:"average_unit_cost,omitempty"`
	LastMovementAt    *time.Time       `json:"last_movement_at,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// AvailabilityDTO respuesta de disponibilidad.
type AvailabilityDTO struct {
	ProductID         string           `json:"product_id"`
	WarehouseID       string           `json:"warehouse_id"`
	LocationID        string           `json:"location_id,omitempty"`
	AvailableQuantity decimal.Decimal  `json:"available_quantity"`
	Required          *decimal.Decimal `json:"required,omitempty"`
	Available         *bool            `json:"available,omitempty"`
}

// MovementLineDTO línea del log con los datos de su cabecera.
type MovementLineDTO struct {
	ID                 int64            `json:"id"`
	HeaderID           int64            `json:"header_id"`
	BusinessNumber     string           `json:"business_number"`
	MovementType       string           `json:"movement_type"`
	ProductID          string           `json:"product_id"`
	WarehouseID        string           `json:"warehouse_id"`
	LocationID         string           `json:"location_id,omitempty"`
	BatchNumber        string           `json:"batch_number,omitempty"`
	SignedQuantity     decimal.Decimal  `json:"signed_quantity"`
	UnitCost           *decimal.Decimal `json:"unit_cost,omitempty"`
	OperationTag       string           `json:"operation_tag"`
	OperationAt        time.Time        `json:"operation_at"`
	SourceDocumentType string           `json:"source_document_type,omitempty"`
	SourceDocumentID   string           `json:"source_document_id,omitempty"`
	CorrelationID      string           `json:"correlation_id"`
	CreatedBy          string           `json:"created_by,omitempty"`
}

// MovementResultDTO línea escrita (si la hubo) y saldo resultante.
type MovementResultDTO struct {
	Line    *MovementLineDTO `json:"line,omitempty"`
	Balance *BalanceDTO      `json:"balance"`
}

// TransferResultDTO las dos patas de un traslado.
type TransferResultDTO struct {
	Out MovementResultDTO `json:"out"`
	In  MovementResultDTO `json:"in"`
}

// KeyDeltaDTO compensación calculada para una clave.
type KeyDeltaDTO struct {
	ProductID   string          `json:"product_id"`
	WarehouseID string          `json:"warehouse_id"`
	LocationID  string          `json:"location_id,omitempty"`
	Applied     decimal.Decimal `json:"applied"`
	Target      decimal.Decimal `json:"target"`
	Delta       decimal.Decimal `json:"delta"`
}

// ReconcileResultDTO diferencias aplicadas a un documento.
type ReconcileResultDTO struct {
	BusinessNumber string              `json:"business_number"`
	Deltas         []KeyDeltaDTO       `json:"deltas"`
	Movements      []MovementResultDTO `json:"movements"`
}

// ToBalanceDTO convierte un saldo.
func ToBalanceDTO(b *entity.StockBalance) *BalanceDTO {
	if b == nil {
		return nil
	}
	return &BalanceDTO{
		ProductID:         b.ProductID,
		WarehouseID:       b.WarehouseID,
		LocationID:        b.LocationID,
		CurrentQuantity:   b.CurrentQuantity,
		ReservedQuantity:  b.ReservedQuantity,
		AvailableQuantity: b.Available(),
		AverageUnitCost:   b.AverageUnitCost,
		LastMovementAt:    b.LastMovementAt,
		UpdatedAt:         b.UpdatedAt,
	}
}

// ToBalanceDTOs convierte una lista de saldos.
func ToBalanceDTOs(list []*entity.StockBalance) []BalanceDTO {
	out := make([]BalanceDTO, 0, len(list))
	for _, b := range list {
		out = append(out, *ToBalanceDTO(b))
	}
	return out
}

// ToMovementLineDTO convierte una línea del log.
func ToMovementLineDTO(l entity.MovementLine) MovementLineDTO {
	return MovementLineDTO{
		ID:                 l.ID,
		HeaderID:           l.HeaderID,
		BusinessNumber:     l.BusinessNumber,
		MovementType:       string(l.MovementType),
		ProductID:          l.ProductID,
		WarehouseID:        l.WarehouseID,
		LocationID:         l.LocationID,
		BatchNumber:        l.BatchNumber,
		SignedQuantity:     l.SignedQuantity,
		UnitCost:           l.UnitCost,
		OperationTag:       string(l.OperationTag),
		OperationAt:        l.OperationAt,
		SourceDocumentType: l.Source.Type,
		SourceDocumentID:   l.Source.ID,
		CorrelationID:      l.CorrelationID,
		CreatedBy:          l.CreatedBy,
	}
}

// ToMovementLineDTOs convierte el historial de un documento.
func ToMovementLineDTOs(lines []entity.MovementLine) []MovementLineDTO {
	out := make([]MovementLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, ToMovementLineDTO(l))
	}
	return out
}

// ToMovementResultDTO convierte el resultado de un movimiento.
func ToMovementResultDTO(line *entity.MovementLine, balance *entity.StockBalance) MovementResultDTO {
	res := MovementResultDTO{Balance: ToBalanceDTO(balance)}
	if line != nil {
		l := ToMovementLineDTO(*line)
		res.Line = &l
	}
	return res
}

// ToKeyDeltaDTOs convierte las diferencias calculadas.
func ToKeyDeltaDTOs(deltas []inventory.KeyDelta) []KeyDeltaDTO {
	out := make([]KeyDeltaDTO, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, KeyDeltaDTO{
			ProductID:   d.Key.ProductID,
			WarehouseID: d.Key.WarehouseID,
			LocationID:  d.Key.LocationID,
			Applied:     d.Applied,
			Target:      d.Target,
			Delta:       d.Delta,
		})
	}
	return out
}
