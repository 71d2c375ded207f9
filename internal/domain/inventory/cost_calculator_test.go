package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCostCalculator_PromedioPonderado(t *testing.T) {
	got := CostCalculator(dec("10"), dec("5"), dec("10"), dec("7"))
	assert.True(t, got.Equal(dec("6")), "10@5 + 10@7 debe dar 6, obtuvo %s", got)
}

func TestCostCalculator_SinCantidad(t *testing.T) {
	got := CostCalculator(decimal.Zero, dec("5"), decimal.Zero, dec("7"))
	assert.True(t, got.IsZero())
}

func TestCostCalculator_RedondeaASeisDecimales(t *testing.T) {
	got := CostCalculator(dec("1"), dec("1"), dec("2"), dec("2"))
	assert.Equal(t, "1.666667", got.String())
}

func TestFitsQuantityScale(t *testing.T) {
	assert.True(t, FitsQuantityScale(dec("12.5")))
	assert.True(t, FitsQuantityScale(dec("0.000001")))
	assert.True(t, FitsQuantityScale(dec("1.500000000")), "los ceros a la derecha no cuentan")
	assert.False(t, FitsQuantityScale(dec("0.0000001")))
	assert.False(t, FitsQuantityScale(dec("-3.1234567")))
}

func TestNextAverageCost(t *testing.T) {
	t.Run("sin costo de entrada conserva el promedio", func(t *testing.T) {
		got := NextAverageCost(dec("10"), decPtr("5"), dec("3"), nil)
		require.NotNil(t, got)
		assert.True(t, got.Equal(dec("5")))
	})

	t.Run("sin costo previo y sin entrada queda nulo", func(t *testing.T) {
		assert.Nil(t, NextAverageCost(decimal.Zero, nil, dec("3"), nil))
	})

	t.Run("saldo en cero toma el costo de entrada", func(t *testing.T) {
		got := NextAverageCost(decimal.Zero, decPtr("99"), dec("4"), decPtr("7.5"))
		require.NotNil(t, got)
		assert.True(t, got.Equal(dec("7.5")))
	})

	t.Run("saldo sin costo previo toma el costo de entrada", func(t *testing.T) {
		got := NextAverageCost(dec("5"), nil, dec("5"), decPtr("3"))
		require.NotNil(t, got)
		assert.True(t, got.Equal(dec("3")))
	})

	t.Run("saldo positivo promedia", func(t *testing.T) {
		got := NextAverageCost(dec("10"), decPtr("5"), dec("10"), decPtr("7"))
		require.NotNil(t, got)
		assert.True(t, got.Equal(dec("6")))
	})
}
