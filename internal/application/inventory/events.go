package inventory

import (
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// EventType nombre del evento publicado.
type EventType string

const (
	EventStockMoved         EventType = "ledger.stock_moved"
	EventDocumentReconciled EventType = "ledger.document_reconciled"
	EventReservationChanged EventType = "ledger.reservation_changed"
)

// LedgerEvent es un hecho ya confirmado en la base de datos.
type LedgerEvent struct {
	Type          EventType
	AggregateID   string
	CorrelationID string
	OccurredAt    time.Time
	Payload       any
}

// StockMovedPayload datos de un movimiento aplicado.
type StockMovedPayload struct {
	BusinessNumber  string `json:"business_number"`
	MovementType    string `json:"movement_type"`
	OperationTag    string `json:"operation_tag"`
	ProductID       string `json:"product_id"`
	WarehouseID     string `json:"warehouse_id"`
	LocationID      string `json:"location_id,omitempty"`
	SignedQuantity  string `json:"signed_quantity"`
	CurrentQuantity string `json:"current_quantity"`
	DetailID        int64  `json:"detail_id"`
}

// DocumentReconciledPayload resumen de una conciliación o borrado.
type DocumentReconciledPayload struct {
	BusinessNumber string `json:"business_number"`
	MovementType   string `json:"movement_type"`
	OperationTag   string `json:"operation_tag"`
	Adjustments    int    `json:"adjustments"`
}

// ReservationChangedPayload nuevo estado de una reserva.
type ReservationChangedPayload struct {
	ReservationID     int64  `json:"reservation_id"`
	ReferenceNumber   string `json:"reference_number"`
	ProductID         string `json:"product_id"`
	WarehouseID       string `json:"warehouse_id"`
	LocationID        string `json:"location_id,omitempty"`
	Status            string `json:"status"`
	RemainingQuantity string `json:"remaining_quantity"`
}

func stockMovedEvent(res MovementResult, occurredAt time.Time) LedgerEvent {
	l := res.Line
	return LedgerEvent{
		Type:          EventStockMoved,
		AggregateID:   l.BusinessNumber,
		CorrelationID: l.CorrelationID,
		OccurredAt:    occurredAt,
		Payload: StockMovedPayload{
			BusinessNumber:  l.BusinessNumber,
			MovementType:    string(l.MovementType),
			OperationTag:    string(l.OperationTag),
			ProductID:       l.ProductID,
			WarehouseID:     l.WarehouseID,
			LocationID:      l.LocationID,
			SignedQuantity:  l.SignedQuantity.String(),
			CurrentQuantity: res.Balance.CurrentQuantity.String(),
			DetailID:        l.ID,
		},
	}
}

func reservationEvent(r *entity.Reservation, occurredAt time.Time) LedgerEvent {
	return LedgerEvent{
		Type:        EventReservationChanged,
		AggregateID: r.ReferenceNumber,
		OccurredAt:  occurredAt,
		Payload: ReservationChangedPayload{
			ReservationID:     r.ID,
			ReferenceNumber:   r.ReferenceNumber,
			ProductID:         r.ProductID,
			WarehouseID:       r.WarehouseID,
			LocationID:        r.LocationID,
			Status:            string(r.Status),
			RemainingQuantity: r.Remaining().String(),
		},
	}
}
