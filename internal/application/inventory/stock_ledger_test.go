package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// AddStock / ReduceStock
// ──────────────────────────────────────────────────────────────────────────────

func TestAddStock_CostoPromedioMovil(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", decPtr("5"))
	f.add(t, keyMain, "10", decPtr("7"))

	bal := f.balance(t, keyMain)
	assert.True(t, bal.CurrentQuantity.Equal(dec("20")))
	require.NotNil(t, bal.AverageUnitCost)
	assert.True(t, bal.AverageUnitCost.Equal(dec("6")), "costo esperado 6.00, obtuvo %s", bal.AverageUnitCost)
	require.NotNil(t, bal.LastMovementAt)
}

func TestAddStock_SinCostoConservaElPromedio(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", decPtr("5"))
	f.add(t, keyMain, "5", nil)

	bal := f.balance(t, keyMain)
	assert.True(t, bal.CurrentQuantity.Equal(dec("15")))
	assert.True(t, bal.AverageUnitCost.Equal(dec("5")))
}

func TestAddStock_EscribeLineaInsertPorDefecto(t *testing.T) {
	f := newFixture(t)
	res, err := f.ledger.AddStock(context.Background(), inventory.MovementInput{
		BalanceKey:     keyShelf,
		Quantity:       dec("4"),
		MovementType:   entity.MovementTypePurchase,
		BusinessNumber: "PO-77",
		UnitCost:       decPtr("2.5"),
		BatchNumber:    "L-01",
		Source:         entity.SourceDocument{Type: "PURCHASE_ORDER", ID: "77"},
		UserID:         "u-1",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Line)
	assert.Equal(t, entity.OperationInsert, res.Line.OperationTag)
	assert.True(t, res.Line.SignedQuantity.Equal(dec("4")))
	assert.Equal(t, "PO-77", res.Line.BusinessNumber)
	assert.Equal(t, "EST-3", res.Line.LocationID)
	assert.Equal(t, "L-01", res.Line.BatchNumber)
	assert.Equal(t, "u-1", res.Line.CreatedBy)
	assert.NotEmpty(t, res.Line.CorrelationID)

	moved := f.events.ofType(inventory.EventStockMoved)
	require.Len(t, moved, 1)
	assert.Equal(t, "PO-77", moved[0].AggregateID)
}

func TestReduceStock_StockInsuficienteNoCambiaElSaldo(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "3", decPtr("1"))
	lines := f.store.DetailCount()

	_, err := f.ledger.ReduceStock(context.Background(), inventory.MovementInput{
		BalanceKey:     keyMain,
		Quantity:       dec("5"),
		MovementType:   entity.MovementTypeSale,
		BusinessNumber: "SD-1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "INSUFFICIENT_STOCK", domain.ResultOf(err).Code)

	assert.True(t, f.balance(t, keyMain).CurrentQuantity.Equal(dec("3")))
	assert.Equal(t, lines, f.store.DetailCount(), "no debe escribirse ninguna línea")
}

func TestReduceStock_ClaveInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ReduceStock(context.Background(), inventory.MovementInput{
		BalanceKey:     keyOther,
		Quantity:       dec("1"),
		MovementType:   entity.MovementTypeSale,
		BusinessNumber: "SD-2",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestReduceStock_RegistraCostoPromedioYNoLoCambia(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", decPtr("4"))

	res, err := f.ledger.ReduceStock(context.Background(), inventory.MovementInput{
		BalanceKey:     keyMain,
		Quantity:       dec("4"),
		MovementType:   entity.MovementTypeMaterialIssue,
		BusinessNumber: "MI-9",
	})
	require.NoError(t, err)
	assert.True(t, res.Line.SignedQuantity.Equal(dec("-4")))
	require.NotNil(t, res.Line.UnitCost)
	assert.True(t, res.Line.UnitCost.Equal(dec("4")))
	assert.True(t, res.Balance.CurrentQuantity.Equal(dec("6")))
	assert.True(t, res.Balance.AverageUnitCost.Equal(dec("4")))
}

func TestReduceStock_NoConsumeStockReservado(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	_, err := f.reservations.Reserve(context.Background(), inventory.ReserveInput{
		BalanceKey: keyMain, Quantity: dec("7"), ReservationType: "SALES_ORDER", ReferenceNumber: "SO-1",
	})
	require.NoError(t, err)

	_, err = f.ledger.ReduceStock(context.Background(), inventory.MovementInput{
		BalanceKey: keyMain, Quantity: dec("4"), MovementType: entity.MovementTypeSale, BusinessNumber: "SD-3",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	bal := f.balance(t, keyMain)
	assert.True(t, bal.ReservedQuantity.LessThanOrEqual(bal.CurrentQuantity))
	assert.True(t, bal.CurrentQuantity.Equal(dec("10")))
}

func TestMovement_Validaciones(t *testing.T) {
	f := newFixture(t)
	valid := inventory.MovementInput{
		BalanceKey: keyMain, Quantity: dec("1"), MovementType: entity.MovementTypePurchase, BusinessNumber: "PO-1",
	}
	cases := []struct {
		name   string
		mutate func(in *inventory.MovementInput)
	}{
		{"cantidad cero", func(in *inventory.MovementInput) { in.Quantity = dec("0") }},
		{"cantidad negativa", func(in *inventory.MovementInput) { in.Quantity = dec("-2") }},
		{"sin bodega", func(in *inventory.MovementInput) { in.WarehouseID = "" }},
		{"sin documento", func(in *inventory.MovementInput) { in.BusinessNumber = " " }},
		{"tipo desconocido", func(in *inventory.MovementInput) { in.MovementType = "GIFT" }},
		{"etiqueta desconocida", func(in *inventory.MovementInput) { in.OperationTag = "UPSERT" }},
		{"costo negativo", func(in *inventory.MovementInput) { in.UnitCost = decPtr("-1") }},
		{"más de seis decimales", func(in *inventory.MovementInput) { in.Quantity = dec("0.0000001") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			_, err := f.ledger.AddStock(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, "VALIDATION", domain.ResultOf(err).Code)
		})
	}
	assert.Zero(t, f.store.DetailCount())
}

func TestEscala_TrasladoYAjusteRechazanMasDeSeisDecimales(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	ctx := context.Background()

	_, err := f.ledger.TransferStock(ctx, inventory.TransferInput{
		ProductID:       keyMain.ProductID,
		FromWarehouseID: keyMain.WarehouseID,
		ToWarehouseID:   keyNorth.WarehouseID,
		Quantity:        dec("1.0000001"),
		BusinessNumber:  "TR-9",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustInput{
		BalanceKey: keyMain, NewQuantity: dec("9.1234567"), BusinessNumber: "AJ-9",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Seis decimales sí caben.
	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustInput{
		BalanceKey: keyMain, NewQuantity: dec("9.123456"), BusinessNumber: "AJ-9",
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, keyMain).CurrentQuantity.Equal(dec("9.123456")))
}

// ──────────────────────────────────────────────────────────────────────────────
// TransferStock
// ──────────────────────────────────────────────────────────────────────────────

func TestTransferStock_LlevaElCostoDeOrigen(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", decPtr("8"))
	f.add(t, keyNorth, "10", decPtr("2"))

	res, err := f.ledger.TransferStock(context.Background(), inventory.TransferInput{
		ProductID:       keyMain.ProductID,
		FromWarehouseID: keyMain.WarehouseID,
		ToWarehouseID:   keyNorth.WarehouseID,
		Quantity:        dec("10"),
		BusinessNumber:  "TR-1",
	})
	require.NoError(t, err)
	assert.Equal(t, res.Out.Line.CorrelationID, res.In.Line.CorrelationID)

	assert.True(t, f.balance(t, keyMain).CurrentQuantity.IsZero())
	north := f.balance(t, keyNorth)
	assert.True(t, north.CurrentQuantity.Equal(dec("20")))
	assert.True(t, north.AverageUnitCost.Equal(dec("5")), "(10*2 + 10*8)/20 = 5, obtuvo %s", north.AverageUnitCost)
}

func TestTransferStock_FalloEnOrigenNoTocaElDestino(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "2", nil)
	lines := f.store.DetailCount()

	_, err := f.ledger.TransferStock(context.Background(), inventory.TransferInput{
		ProductID:       keyMain.ProductID,
		FromWarehouseID: keyMain.WarehouseID,
		ToWarehouseID:   keyNorth.WarehouseID,
		Quantity:        dec("5"),
		BusinessNumber:  "TR-2",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, lines, f.store.DetailCount())

	_, err = f.ledger.GetBalance(context.Background(), keyNorth)
	assert.ErrorIs(t, err, domain.ErrNotFound, "el destino no debe crearse")
}

func TestTransferStock_MismaClave(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.TransferStock(context.Background(), inventory.TransferInput{
		ProductID: "P-1", FromWarehouseID: "W", ToWarehouseID: "W", Quantity: dec("1"), BusinessNumber: "TR-3",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTransferStock_EntreUbicacionesDeLaMismaBodega(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "6", nil)

	_, err := f.ledger.TransferStock(context.Background(), inventory.TransferInput{
		ProductID:       keyMain.ProductID,
		FromWarehouseID: keyMain.WarehouseID,
		ToWarehouseID:   keyShelf.WarehouseID,
		ToLocationID:    keyShelf.LocationID,
		Quantity:        dec("6"),
		BusinessNumber:  "TR-4",
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, keyShelf).CurrentQuantity.Equal(dec("6")))
}

// ──────────────────────────────────────────────────────────────────────────────
// AdjustStock
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", decPtr("3"))
	ctx := context.Background()

	up, err := f.ledger.AdjustStock(ctx, inventory.AdjustInput{BalanceKey: keyMain, NewQuantity: dec("12"), BusinessNumber: "ST-1"})
	require.NoError(t, err)
	require.NotNil(t, up.Line)
	assert.True(t, up.Line.SignedQuantity.Equal(dec("2")))
	assert.Equal(t, entity.MovementTypeAdjustment, up.Line.MovementType)

	down, err := f.ledger.AdjustStock(ctx, inventory.AdjustInput{BalanceKey: keyMain, NewQuantity: dec("1"), BusinessNumber: "ST-2"})
	require.NoError(t, err)
	assert.True(t, down.Line.SignedQuantity.Equal(dec("-11")))

	lines := f.store.DetailCount()
	same, err := f.ledger.AdjustStock(ctx, inventory.AdjustInput{BalanceKey: keyMain, NewQuantity: dec("1"), BusinessNumber: "ST-3"})
	require.NoError(t, err)
	assert.Nil(t, same.Line, "sin diferencia no hay movimiento")
	assert.Equal(t, lines, f.store.DetailCount())

	_, err = f.ledger.AdjustStock(ctx, inventory.AdjustInput{BalanceKey: keyMain, NewQuantity: dec("-1"), BusinessNumber: "ST-4"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAdjustStock_NoPuedeBajarDeLoReservado(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyMain, "10", nil)
	_, err := f.reservations.Reserve(context.Background(), inventory.ReserveInput{
		BalanceKey: keyMain, Quantity: dec("6"), ReservationType: "SALES_ORDER", ReferenceNumber: "SO-2",
	})
	require.NoError(t, err)

	_, err = f.ledger.AdjustStock(context.Background(), inventory.AdjustInput{
		BalanceKey: keyMain, NewQuantity: dec("5"), MovementType: entity.MovementTypeStockTaking, BusinessNumber: "ST-5",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	qty, err := f.ledger.GetAvailableQuantity(ctx, keyOther)
	require.NoError(t, err)
	assert.True(t, qty.IsZero(), "clave desconocida tiene cero disponible")

	f.add(t, keyOther, "5", nil)
	_, err = f.reservations.Reserve(ctx, inventory.ReserveInput{
		BalanceKey: keyOther, Quantity: dec("2"), ReservationType: "SALES_ORDER", ReferenceNumber: "SO-3",
	})
	require.NoError(t, err)

	qty, err = f.ledger.GetAvailableQuantity(ctx, keyOther)
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("3")))

	ok, err := f.ledger.IsStockAvailable(ctx, keyOther, dec("3"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.ledger.IsStockAvailable(ctx, keyOther, dec("3.01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListBalancesByProduct(t *testing.T) {
	f := newFixture(t)
	f.add(t, keyShelf, "1", nil)
	f.add(t, keyMain, "1", nil)
	f.add(t, keyOther, "1", nil)

	list, err := f.ledger.ListBalancesByProduct(context.Background(), "P-100")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, keyMain, list[0].BalanceKey)
	assert.Equal(t, keyShelf, list[1].BalanceKey)
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores de infraestructura
// ──────────────────────────────────────────────────────────────────────────────

func TestInfraestructura_SeOcultaTrasMensajeGenerico(t *testing.T) {
	runner := new(mockTxRunner)
	runner.On("Run", mock.Anything).Return(errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	uc := inventory.NewStockLedgerUseCase(runner, logger.Nop())

	_, err := uc.AddStock(context.Background(), inventory.MovementInput{
		BalanceKey: keyMain, Quantity: dec("1"), MovementType: entity.MovementTypePurchase, BusinessNumber: "PO-9",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInfrastructure)

	res := domain.ResultOf(err)
	assert.False(t, res.Success)
	assert.Equal(t, "INTERNAL", res.Code)
	assert.NotContains(t, res.Message, "10.0.0.5", "la causa no debe llegar al llamador")
	runner.AssertExpectations(t)
}

func TestConflicto_SeReportaComoConcurrencia(t *testing.T) {
	runner := new(mockTxRunner)
	runner.On("Run", mock.Anything).Return(domain.Conflict(errors.New("deadlock detected")))
	uc := inventory.NewStockLedgerUseCase(runner, logger.Nop())

	_, err := uc.ReduceStock(context.Background(), inventory.MovementInput{
		BalanceKey: keyMain, Quantity: dec("1"), MovementType: entity.MovementTypeSale, BusinessNumber: "SD-9",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, "CONCURRENCY_CONFLICT", domain.ResultOf(err).Code)
}
