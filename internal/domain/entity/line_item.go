package entity

import "github.com/shopspring/decimal"

// Direction indica cómo se interpretan las cantidades deseadas de un documento.
type Direction string

const (
	// DirectionOutbound: salidas (consumos, despachos); la cantidad positiva se niega.
	DirectionOutbound Direction = "OUTBOUND"
	// DirectionInbound: entradas (devoluciones, recepciones); la cantidad se usa tal cual.
	DirectionInbound Direction = "INBOUND"
	// DirectionSigned: la cantidad ya trae el signo (traslados, tomas físicas).
	DirectionSigned Direction = "SIGNED"
)

// Valid indica si la dirección es conocida.
func (d Direction) Valid() bool {
	switch d {
	case DirectionOutbound, DirectionInbound, DirectionSigned:
		return true
	}
	return false
}

// LineItem es una línea vigente del documento que se concilia contra el log.
type LineItem struct {
	BalanceKey
	DesiredQuantity decimal.Decimal
	UnitCost        *decimal.Decimal
	BatchNumber     string
}
