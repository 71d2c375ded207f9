package entity

import (
	"cmp"
	"strings"
)

// BalanceKey identifica un saldo: producto + bodega + ubicación (vacía cuando no aplica).
type BalanceKey struct {
	ProductID   string
	WarehouseID string
	LocationID  string
}

// String devuelve la forma legible producto@bodega[/ubicación].
func (k BalanceKey) String() string {
	var b strings.Builder
	b.WriteString(k.ProductID)
	b.WriteByte('@')
	b.WriteString(k.WarehouseID)
	if k.LocationID != "" {
		b.WriteByte('/')
		b.WriteString(k.LocationID)
	}
	return b.String()
}

// Compare ordena claves de forma total por producto, bodega y ubicación; define el orden
// global de bloqueo de filas.
func (k BalanceKey) Compare(o BalanceKey) int {
	return cmp.Or(
		strings.Compare(k.ProductID, o.ProductID),
		strings.Compare(k.WarehouseID, o.WarehouseID),
		strings.Compare(k.LocationID, o.LocationID),
	)
}

// Less indica si k va antes que o.
func (k BalanceKey) Less(o BalanceKey) bool { return k.Compare(o) < 0 }

// Valid indica si la clave tiene producto y bodega.
func (k BalanceKey) Valid() bool {
	return strings.TrimSpace(k.ProductID) != "" && strings.TrimSpace(k.WarehouseID) != ""
}
