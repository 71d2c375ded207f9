package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Option configura los casos de uso del ledger.
type Option func(*options)

type options struct {
	publisher      EventPublisher
	observer       Observer
	now            func() time.Time
	reservationTTL time.Duration
	sweepBatch     int
}

func defaultOptions() options {
	return options{
		publisher:  nopPublisher{},
		observer:   nopObserver{},
		now:        time.Now,
		sweepBatch: 500,
	}
}

// WithPublisher publica eventos tras cada commit.
func WithPublisher(p EventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithObserver registra métricas de cada operación.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithReservationTTL vencimiento por defecto de las reservas sin fecha; 0 = sin vencimiento.
func WithReservationTTL(ttl time.Duration) Option {
	return func(o *options) { o.reservationTTL = ttl }
}

// WithSweepBatch máximo de reservas vencidas procesadas por barrido.
func WithSweepBatch(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sweepBatch = n
		}
	}
}

// base agrupa lo que comparten los casos de uso: transacciones, log, métricas y eventos.
type base struct {
	txRunner TxRunner
	log      *logger.Logger
	opts     options
}

func newBase(txRunner TxRunner, log *logger.Logger, component string, opts []Option) base {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if log == nil {
		log = logger.Nop()
	}
	return base{txRunner: txRunner, log: log.Component(component), opts: o}
}

func (b *base) now() time.Time { return b.opts.now().UTC() }

// finish cierra una operación: registra la métrica y convierte cualquier error no tipado
// en un error de infraestructura con mensaje genérico, dejando la causa en el log.
func (b *base) finish(op string, start time.Time, err error) error {
	if err == nil {
		b.opts.observer.OperationFinished(op, "", time.Since(start))
		return nil
	}
	var le *domain.LedgerError
	if !errors.As(err, &le) {
		le = domain.Infrastructure(err)
	}
	b.opts.observer.OperationFinished(op, le.Kind, time.Since(start))
	switch le.Kind {
	case domain.KindInfrastructure:
		b.log.Error().Err(le.Err).Str("operation", op).Msg("fallo de infraestructura en el ledger")
	case domain.KindConcurrencyConflict:
		b.log.Warn().Err(le.Err).Str("operation", op).Msg("conflicto de concurrencia")
	default:
		b.log.Warn().Str("operation", op).Str("kind", string(le.Kind)).Msg(le.Message)
	}
	return le
}

// publish entrega los eventos ya confirmados; un fallo solo se registra.
func (b *base) publish(ctx context.Context, events ...LedgerEvent) {
	if len(events) == 0 {
		return
	}
	if err := b.opts.publisher.Publish(ctx, events...); err != nil {
		b.log.Error().Err(err).Int("events", len(events)).Msg("publicar eventos del ledger")
	}
}
