package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestPrometheus_Observer(t *testing.T) {
	p := NewPrometheus("stock-ledger")

	p.OperationFinished("add_stock", "", 3*time.Millisecond)
	p.OperationFinished("reduce_stock", domain.KindInsufficientStock, time.Millisecond)
	p.MovementApplied(entity.MovementTypePurchase, entity.OperationInsert, true)
	p.MovementApplied(entity.MovementTypePurchase, entity.OperationInsert, true)
	p.ReservationChanged(entity.ReservationReleased)
	p.ReservationsSwept(4)
	p.ReconciliationApplied(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("add_stock", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.operations.WithLabelValues("reduce_stock", "INSUFFICIENT_STOCK")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.movements.WithLabelValues("PURCHASE", "INSERT", "in")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.reservations.WithLabelValues("RELEASED")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.swept))
	assert.Equal(t, 1, testutil.CollectAndCount(p.adjustments))
}

func TestPrometheus_MiddlewareYHandler(t *testing.T) {
	p := NewPrometheus("stock-ledger")
	app := fiber.New()
	app.Use(p.Middleware())
	app.Get("/api/ledger/balances/:productId", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/metrics", p.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ledger/balances/P-100", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.httpRequests.WithLabelValues("GET", "/api/ledger/balances/:productId", "200")))

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "http_requests_total")
	assert.Contains(t, string(body), `service="stock-ledger"`)
}
