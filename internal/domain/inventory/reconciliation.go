package inventory

import (
	"cmp"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// KeyDelta es la compensación neta que hay que aplicar sobre una clave.
type KeyDelta struct {
	Key         entity.BalanceKey
	Applied     decimal.Decimal
	Target      decimal.Decimal
	Delta       decimal.Decimal // > 0 entrada, < 0 salida
	UnitCost    *decimal.Decimal
	BatchNumber string
}

// Inbound indica si la compensación suma stock.
func (d KeyDelta) Inbound() bool { return d.Delta.IsPositive() }

// Quantity es el valor absoluto de la compensación.
func (d KeyDelta) Quantity() decimal.Decimal { return d.Delta.Abs() }

// SortHistory ordena las líneas por ID, el orden en que se aplicaron. Las escrituras de un
// documento se serializan con su bloqueo, así que el ID crece con cada línea.
func SortHistory(lines []entity.MovementLine) {
	slices.SortStableFunc(lines, func(a, b entity.MovementLine) int {
		return cmp.Compare(a.ID, b.ID)
	})
}

// ActiveLines devuelve las líneas aplicadas después de la última línea DELETE,
// sin incluir ninguna línea DELETE. El historial debe venir ordenado.
func ActiveLines(history []entity.MovementLine) []entity.MovementLine {
	boundary := -1
	for i := range history {
		if history[i].OperationTag == entity.OperationDelete {
			boundary = i
		}
	}
	out := make([]entity.MovementLine, 0, len(history)-boundary-1)
	for _, l := range history[boundary+1:] {
		if l.OperationTag != entity.OperationDelete {
			out = append(out, l)
		}
	}
	return out
}

// NetByKey suma las cantidades con signo por clave.
func NetByKey(lines []entity.MovementLine) map[entity.BalanceKey]decimal.Decimal {
	net := make(map[entity.BalanceKey]decimal.Decimal)
	for _, l := range lines {
		k := l.Key()
		net[k] = net[k].Add(l.SignedQuantity)
	}
	return net
}

type targetLine struct {
	net       decimal.Decimal
	costQty   decimal.Decimal
	costTotal decimal.Decimal
	lastCost  *decimal.Decimal
	batch     string
}

// targetByKey agrupa las líneas vigentes con la convención de signo de la dirección.
func targetByKey(items []entity.LineItem, dir entity.Direction) (map[entity.BalanceKey]*targetLine, error) {
	if !dir.Valid() {
		return nil, domain.Validation("dirección de documento desconocida: %q", dir)
	}
	out := make(map[entity.BalanceKey]*targetLine, len(items))
	for i, it := range items {
		if !it.BalanceKey.Valid() {
			return nil, domain.Validation("línea %d: producto y bodega son obligatorios", i+1)
		}
		qty := it.DesiredQuantity
		if !FitsQuantityScale(qty) {
			return nil, domain.Validation("línea %d: la cantidad admite máximo %d decimales", i+1, QuantityScale)
		}
		if dir != entity.DirectionSigned {
			if qty.IsNegative() {
				return nil, domain.Validation("línea %d: la cantidad no puede ser negativa", i+1)
			}
			if dir == entity.DirectionOutbound {
				qty = qty.Neg()
			}
		}
		if it.UnitCost != nil && it.UnitCost.IsNegative() {
			return nil, domain.Validation("línea %d: el costo unitario no puede ser negativo", i+1)
		}
		t, ok := out[it.BalanceKey]
		if !ok {
			t = &targetLine{}
			out[it.BalanceKey] = t
		}
		t.net = t.net.Add(qty)
		if it.UnitCost != nil {
			t.lastCost = it.UnitCost
			t.costQty = t.costQty.Add(qty.Abs())
			t.costTotal = t.costTotal.Add(qty.Abs().Mul(*it.UnitCost))
		}
		if t.batch == "" {
			t.batch = it.BatchNumber
		}
	}
	return out, nil
}

func (t *targetLine) unitCost() *decimal.Decimal {
	if t.lastCost == nil || t.costQty.IsZero() {
		return t.lastCost
	}
	c := t.costTotal.Div(t.costQty).Round(CostScale)
	return &c
}

// Difference calcula, por clave, lo que falta aplicar para que el log del documento
// iguale sus líneas vigentes. Las claves sin diferencia no aparecen.
func Difference(history []entity.MovementLine, items []entity.LineItem, dir entity.Direction) ([]KeyDelta, error) {
	sorted := append([]entity.MovementLine(nil), history...)
	SortHistory(sorted)
	applied := NetByKey(ActiveLines(sorted))

	target, err := targetByKey(items, dir)
	if err != nil {
		return nil, err
	}

	keys := make(map[entity.BalanceKey]struct{}, len(applied)+len(target))
	for k := range applied {
		keys[k] = struct{}{}
	}
	for k := range target {
		keys[k] = struct{}{}
	}

	deltas := make([]KeyDelta, 0, len(keys))
	for k := range keys {
		d := KeyDelta{Key: k, Applied: applied[k]}
		if t, ok := target[k]; ok {
			d.Target = t.net
			d.UnitCost = t.unitCost()
			d.BatchNumber = t.batch
		}
		d.Delta = d.Target.Sub(d.Applied)
		if d.Delta.IsZero() {
			continue
		}
		deltas = append(deltas, d)
	}
	SortDeltas(deltas)
	return deltas, nil
}

// Reversal calcula las compensaciones que dejan en cero el efecto neto vigente del documento.
func Reversal(history []entity.MovementLine) []KeyDelta {
	sorted := append([]entity.MovementLine(nil), history...)
	SortHistory(sorted)
	applied := NetByKey(ActiveLines(sorted))

	deltas := make([]KeyDelta, 0, len(applied))
	for k, net := range applied {
		if net.IsZero() {
			continue
		}
		deltas = append(deltas, KeyDelta{Key: k, Applied: net, Target: decimal.Zero, Delta: net.Neg()})
	}
	SortDeltas(deltas)
	return deltas
}

// SortDeltas deja primero las entradas y luego las salidas, cada grupo por clave.
// Aplicar entradas antes evita saldos negativos transitorios dentro de la transacción.
func SortDeltas(deltas []KeyDelta) {
	sort.Slice(deltas, func(i, j int) bool {
		ii, ji := deltas[i].Inbound(), deltas[j].Inbound()
		if ii != ji {
			return ii
		}
		return deltas[i].Key.Less(deltas[j].Key)
	})
}
