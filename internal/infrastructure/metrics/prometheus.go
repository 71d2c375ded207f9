// Package metrics expone las métricas del ledger y del API en formato Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.Observer = (*Prometheus)(nil)

// Prometheus implementa inventory.Observer sobre un registro propio.
type Prometheus struct {
	registry *prometheus.Registry

	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	movements    *prometheus.CounterVec
	adjustments  prometheus.Histogram
	reservations *prometheus.CounterVec
	swept        prometheus.Counter

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewPrometheus registra las métricas del ledger y los colectores de proceso y runtime.
func NewPrometheus(service string) *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	constLabels := prometheus.Labels{"service": service}

	return &Prometheus{
		registry: reg,
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_operations_total",
			Help:        "Operaciones del ledger por resultado",
			ConstLabels: constLabels,
		}, []string{"operation", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "ledger_operation_duration_seconds",
			Help:        "Duración de las operaciones del ledger",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),
		movements: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_movements_total",
			Help:        "Líneas escritas en el log de movimientos",
			ConstLabels: constLabels,
		}, []string{"movement_type", "operation_tag", "direction"}),
		adjustments: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "ledger_reconciliation_adjustments",
			Help:        "Compensaciones emitidas por conciliación",
			ConstLabels: constLabels,
			Buckets:     []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		reservations: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "ledger_reservation_transitions_total",
			Help:        "Cambios de estado de reservas",
			ConstLabels: constLabels,
		}, []string{"status"}),
		swept: f.NewCounter(prometheus.CounterOpts{
			Name:        "ledger_reservations_swept_total",
			Help:        "Reservas vencidas liberadas por el barrido",
			ConstLabels: constLabels,
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total de requests HTTP",
			ConstLabels: constLabels,
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duración de los requests HTTP",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// Registry expone el registro (tests y handlers).
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// OperationFinished cuenta la operación por resultado y registra su duración.
func (p *Prometheus) OperationFinished(operation string, kind domain.ErrorKind, elapsed time.Duration) {
	result := "ok"
	if kind != "" {
		result = string(kind)
	}
	p.operations.WithLabelValues(operation, result).Inc()
	p.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// MovementApplied cuenta un movimiento confirmado por tipo, etiqueta y sentido.
func (p *Prometheus) MovementApplied(movementType entity.MovementType, tag entity.OperationTag, inbound bool) {
	direction := "out"
	if inbound {
		direction = "in"
	}
	p.movements.WithLabelValues(string(movementType), string(tag), direction).Inc()
}

// ReconciliationApplied registra cuántos ajustes emitió una conciliación.
func (p *Prometheus) ReconciliationApplied(adjustments int) {
	p.adjustments.Observe(float64(adjustments))
}

// ReservationChanged cuenta una transición de reserva por estado resultante.
func (p *Prometheus) ReservationChanged(status entity.ReservationStatus) {
	p.reservations.WithLabelValues(string(status)).Inc()
}

// ReservationsSwept suma las reservas vencidas liberadas por el barrido.
func (p *Prometheus) ReservationsSwept(count int) {
	p.swept.Add(float64(count))
}

// Middleware mide cada request con la ruta registrada (no la URL) para acotar la cardinalidad.
func (p *Prometheus) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := "unknown"
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}
		labels := []string{c.Method(), path, strconv.Itoa(status)}
		p.httpRequests.WithLabelValues(labels...).Inc()
		p.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler sirve /metrics.
func (p *Prometheus) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
}
