package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func reserveInput(qty string) inventory.ReserveInput {
	return inventory.ReserveInput{
		BalanceKey:      keyMain,
		Quantity:        dec(qty),
		ReservationType: "SALES_ORDER",
		ReferenceNumber: "SO-77",
	}
}

// assertBalanceInvariant comprueba 0 <= reservado <= actual.
func assertBalanceInvariant(t *testing.T, bal *entity.StockBalance) {
	t.Helper()
	assert.False(t, bal.ReservedQuantity.IsNegative(), "reservado negativo")
	assert.True(t, bal.ReservedQuantity.LessThanOrEqual(bal.CurrentQuantity), "reservado mayor que el saldo")
}

func TestReserve_RetieneSinMoverStock(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	lines := f.store.DetailCount()

	r, err := f.reservations.Reserve(context.Background(), reserveInput("4"))
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, entity.ReservationReserved, r.Status)
	assert.Nil(t, r.ExpiryDate)

	bal := f.balance(t, keyMain)
	assert.True(t, bal.CurrentQuantity.Equal(dec("10")))
	assert.True(t, bal.ReservedQuantity.Equal(dec("4")))
	assert.True(t, bal.Available().Equal(dec("6")))
	assert.Equal(t, lines, f.store.DetailCount(), "reservar no escribe en el log")
	assertBalanceInvariant(t, bal)
	assert.Len(t, f.events.ofType(inventory.EventReservationChanged), 1)
}

func TestReserve_CantidadLibreInsuficiente(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	ctx := context.Background()

	_, err := f.reservations.Reserve(ctx, reserveInput("7"))
	require.NoError(t, err)

	_, err = f.reservations.Reserve(ctx, reserveInput("4"))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, f.balance(t, keyMain).ReservedQuantity.Equal(dec("7")))
}

func TestReserve_SaldoInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservations.Reserve(context.Background(), reserveInput("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReserve_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	past := f.clock.Now().Add(-time.Hour)

	cases := []struct {
		name   string
		mutate func(in *inventory.ReserveInput)
	}{
		{"cantidad cero", func(in *inventory.ReserveInput) { in.Quantity = dec("0") }},
		{"sin referencia", func(in *inventory.ReserveInput) { in.ReferenceNumber = "" }},
		{"sin tipo", func(in *inventory.ReserveInput) { in.ReservationType = " " }},
		{"sin bodega", func(in *inventory.ReserveInput) { in.WarehouseID = "" }},
		{"expiración pasada", func(in *inventory.ReserveInput) { in.ExpiryDate = &past }},
		{"más de seis decimales", func(in *inventory.ReserveInput) { in.Quantity = dec("0.0000001") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := reserveInput("1")
			tc.mutate(&in)
			_, err := f.reservations.Reserve(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRelease_ParcialYTotal(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	ctx := context.Background()
	r, err := f.reservations.Reserve(ctx, reserveInput("6"))
	require.NoError(t, err)

	r, err = f.reservations.Release(ctx, r.ID, decPtr("2"))
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationPartiallyReleased, r.Status)
	assert.True(t, r.Remaining().Equal(dec("4")))
	assert.True(t, f.balance(t, keyMain).ReservedQuantity.Equal(dec("4")))

	_, err = f.reservations.Release(ctx, r.ID, decPtr("5"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no se puede liberar más de lo pendiente")

	r, err = f.reservations.Release(ctx, r.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReleased, r.Status)
	bal := f.balance(t, keyMain)
	assert.True(t, bal.ReservedQuantity.IsZero())
	assertBalanceInvariant(t, bal)

	_, err = f.reservations.Release(ctx, r.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "RELEASED es terminal")
}

func TestCancel_DevuelveLoPendiente(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	ctx := context.Background()
	r, err := f.reservations.Reserve(ctx, reserveInput("5"))
	require.NoError(t, err)
	_, err = f.reservations.Release(ctx, r.ID, decPtr("1"))
	require.NoError(t, err)

	r, err = f.reservations.Cancel(ctx, r.ID, "pedido anulado")
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationCancelled, r.Status)
	assert.Equal(t, "pedido anulado", r.CancelReason)
	assert.True(t, f.balance(t, keyMain).ReservedQuantity.IsZero())

	_, err = f.reservations.Cancel(ctx, r.ID, "otra vez")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.reservations.Extend(ctx, r.ID, f.clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReservation_Inexistente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reservations.Release(ctx, 99, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.reservations.Cancel(ctx, 99, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.reservations.Extend(ctx, 99, f.clock.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.reservations.GetReservation(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtend_SoloHaciaAdelante(t *testing.T) {
	f := newFixture(t, inventory.WithReservationTTL(30*time.Minute))
	f.add(t, keyMain, "10", nil)
	ctx := context.Background()

	r, err := f.reservations.Reserve(ctx, reserveInput("2"))
	require.NoError(t, err)
	require.NotNil(t, r.ExpiryDate)
	assert.Equal(t, f.clock.Now().Add(30*time.Minute), *r.ExpiryDate)

	_, err = f.reservations.Extend(ctx, r.ID, f.clock.Now().Add(10*time.Minute))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	later := f.clock.Now().Add(2 * time.Hour)
	r, err = f.reservations.Extend(ctx, r.ID, later)
	require.NoError(t, err)
	assert.Equal(t, later, *r.ExpiryDate)
}

func TestSweepExpired_LiberaSoloLasVencidas(t *testing.T) {
	f := newFixture(t, inventory.WithReservationTTL(30*time.Minute))
	f.add(t, keyMain, "20", nil)
	ctx := context.Background()

	short, err := f.reservations.Reserve(ctx, reserveInput("5"))
	require.NoError(t, err)
	_, err = f.reservations.Release(ctx, short.ID, decPtr("1"))
	require.NoError(t, err)

	longExpiry := f.clock.Now().Add(24 * time.Hour)
	in := reserveInput("3")
	in.ReferenceNumber = "SO-78"
	in.ExpiryDate = &longExpiry
	long, err := f.reservations.Reserve(ctx, in)
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)
	n, err := f.reservations.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.reservations.GetReservation(ctx, short.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReleased, got.Status)
	got, err = f.reservations.GetReservation(ctx, long.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReservationReserved, got.Status)

	bal := f.balance(t, keyMain)
	assert.True(t, bal.ReservedQuantity.Equal(dec("3")))
	assertBalanceInvariant(t, bal)

	n, err = f.reservations.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestListByReference(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	f.add(t, keyOther, "10", nil)
	ctx := context.Background()

	_, err := f.reservations.Reserve(ctx, reserveInput("1"))
	require.NoError(t, err)
	in := reserveInput("2")
	in.BalanceKey = keyOther
	_, err = f.reservations.Reserve(ctx, in)
	require.NoError(t, err)

	list, err := f.reservations.ListByReference(ctx, "SO-77")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, keyMain, list[0].BalanceKey)
	assert.Equal(t, keyOther, list[1].BalanceKey)

	_, err = f.reservations.ListByReference(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
