package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Si la transacción choca con otra (serialización, deadlock, lock_timeout) la repite
// desde cero hasta maxAttempts veces.
type TxRunner struct {
	pool        Pool
	maxAttempts int
	log         *logger.Logger
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool Pool, maxAttempts int, log *logger.Logger) *TxRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &TxRunner{pool: pool, maxAttempts: maxAttempts, log: log.Component("tx_runner")}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// fn puede ejecutarse más de una vez; no debe tener efectos fuera de los repositorios.
func (r *TxRunner) Run(ctx context.Context, fn func(
	balanceRepo repository.BalanceRepository,
	movementRepo repository.MovementRepository,
	reservationRepo repository.ReservationRepository,
) error) error {
	for attempt := 1; ; attempt++ {
		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= r.maxAttempts || ctx.Err() != nil {
			return classify(err)
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", r.maxAttempts).Msg("transacción reintentada")
	}
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(
	repository.BalanceRepository,
	repository.MovementRepository,
	repository.ReservationRepository,
) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewBalanceRepository(tx), NewMovementRepository(tx), NewReservationRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
