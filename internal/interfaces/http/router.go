package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger         inventory.StockLedger
	Documents      inventory.ReconciliationEngine
	Reservations   inventory.ReservationLedger
	Reports        MovementReporter
	JWTSecret      string
	JWTIssuer      string
	MetricsHandler fiber.Handler                   // nil = sin /metrics
	Health         func(ctx context.Context) error // nil = siempre ok
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", healthHandler(deps.Health))
	if deps.MetricsHandler != nil {
		app.Get("/metrics", deps.MetricsHandler)
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	read := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleAuditor)
	write := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)

	// Ledger de stock
	ledger := api.Group("/ledger")
	ledgerHandler := NewLedgerHandler(deps.Ledger)
	ledger.Post("/movements/in", write, ledgerHandler.AddStock)
	ledger.Post("/movements/out", write, ledgerHandler.ReduceStock)
	ledger.Post("/transfers", write, ledgerHandler.TransferStock)
	ledger.Post("/adjustments", write, ledgerHandler.AdjustStock)
	ledger.Get("/balances/:product_id", read, ledgerHandler.ListBalancesByProduct)
	ledger.Get("/balances/:product_id/:warehouse_id", read, ledgerHandler.GetBalance)
	ledger.Get("/availability/:product_id/:warehouse_id", read, ledgerHandler.GetAvailability)

	// Documentos (conciliación por diferencia)
	documents := ledger.Group("/documents")
	documentHandler := NewDocumentHandler(deps.Documents, deps.Reports)
	documents.Put("/:business_number", write, documentHandler.Reconcile)
	documents.Delete("/:business_number", write, documentHandler.Delete)
	documents.Post("/:business_number/preview", read, documentHandler.Preview)
	documents.Get("/:business_number/movements", read, documentHandler.Movements)
	documents.Get("/:business_number/report", read, documentHandler.Report)

	// Reservas
	reservations := api.Group("/reservations")
	reservationHandler := NewReservationHandler(deps.Reservations)
	reservations.Post("/", write, reservationHandler.Reserve)
	reservations.Get("/", read, reservationHandler.ListByReference)
	reservations.Post("/sweep", RequireRole(jwt.RoleAdmin), reservationHandler.Sweep)
	reservations.Get("/:id", read, reservationHandler.Get)
	reservations.Post("/:id/release", write, reservationHandler.Release)
	reservations.Post("/:id/cancel", write, reservationHandler.Cancel)
	reservations.Post("/:id/extend", write, reservationHandler.Extend)
}

func healthHandler(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			if err := check(c.Context()); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "UNAVAILABLE", Message: "base de datos no disponible"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
