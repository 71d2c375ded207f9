package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType clasifica el documento que originó el movimiento.
type MovementType string

const (
	MovementTypePurchase       MovementType = "PURCHASE"
	MovementTypeSale           MovementType = "SALE"
	MovementTypeSalesReturn    MovementType = "SALES_RETURN"
	MovementTypeTransfer       MovementType = "TRANSFER"
	MovementTypeAdjustment     MovementType = "ADJUSTMENT"
	MovementTypeMaterialIssue  MovementType = "MATERIAL_ISSUE"
	MovementTypeMaterialReturn MovementType = "MATERIAL_RETURN"
	MovementTypeStockTaking    MovementType = "STOCK_TAKING"
)

// Valid indica si el tipo de movimiento es conocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeSalesReturn, MovementTypeTransfer,
		MovementTypeAdjustment, MovementTypeMaterialIssue, MovementTypeMaterialReturn, MovementTypeStockTaking:
		return true
	}
	return false
}

// OperationTag distingue el origen de cada línea del log.
type OperationTag string

const (
	// OperationInsert: confirmación original del documento.
	OperationInsert OperationTag = "INSERT"
	// OperationAdjust: compensación emitida por una conciliación.
	OperationAdjust OperationTag = "ADJUST"
	// OperationDelete: compensación por borrado definitivo; marca frontera.
	OperationDelete OperationTag = "DELETE"
)

// Valid indica si la etiqueta es conocida.
func (t OperationTag) Valid() bool {
	switch t {
	case OperationInsert, OperationAdjust, OperationDelete:
		return true
	}
	return false
}

// SourceDocument referencia opcional al documento que originó el movimiento.
type SourceDocument struct {
	Type string
	ID   string
}

// MovementHeader agrupa las líneas de un documento en una bodega.
type MovementHeader struct {
	ID             int64
	CorrelationID  string // compartido por todas las cabeceras de una misma llamada
	BusinessNumber string
	MovementType   MovementType
	WarehouseID    string
	MovementDate   time.Time
	CreatedBy      string
	CreatedAt      time.Time
}

// MovementDetail es una línea inmutable del log.
type MovementDetail struct {
	ID             int64
	HeaderID       int64
	ProductID      string
	LocationID     string
	BatchNumber    string
	SignedQuantity decimal.Decimal // positivo entrada, negativo salida, nunca cero
	UnitCost       *decimal.Decimal
	OperationTag   OperationTag
	OperationAt    time.Time
	Source         SourceDocument
}

// MovementLine es la vista plana de una línea con los datos de su cabecera.
type MovementLine struct {
	MovementDetail
	BusinessNumber string
	MovementType   MovementType
	WarehouseID    string
	CorrelationID  string
	CreatedBy      string
}

// Key devuelve la clave de saldo afectada por la línea.
func (l MovementLine) Key() BalanceKey {
	return BalanceKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID, LocationID: l.LocationID}
}
