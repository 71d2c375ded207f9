package inventory

import "github.com/shopspring/decimal"

// CostScale decimales con que se guarda el costo promedio.
const CostScale = 6

// QuantityScale decimales máximos de una cantidad; el almacén no guarda más.
const QuantityScale = 6

// FitsQuantityScale indica si q se representa en QuantityScale decimales sin redondear.
func FitsQuantityScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}

// CostCalculator implementa el costo promedio móvil (servicio de dominio).
// NuevoCosto = ((CantActual * CostoActual) + (CantEntrada * CostoEntrada)) / (CantActual + CantEntrada)
func CostCalculator(cantActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	sum := cantActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	num := cantActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum).Round(CostScale)
}

// NextAverageCost decide el costo promedio tras una entrada.
// Sin costo de entrada el promedio no cambia; sin saldo previo (o sin costo previo) se toma el de entrada.
func NextAverageCost(oldQty decimal.Decimal, oldCost *decimal.Decimal, inQty decimal.Decimal, inCost *decimal.Decimal) *decimal.Decimal {
	if inCost == nil {
		return oldCost
	}
	if !oldQty.IsPositive() || oldCost == nil {
		c := inCost.Round(CostScale)
		return &c
	}
	c := CostCalculator(oldQty, *oldCost, inQty, *inCost)
	return &c
}
