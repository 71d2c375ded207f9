package main

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// runSweeper libera periódicamente las reservas vencidas hasta que ctx se cancela.
func runSweeper(ctx context.Context, reservations inventory.ReservationLedger, every time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	log.Info().Dur("interval", every).Msg("barrido de reservas vencidas activo")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := reservations.SweepExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("barrido de reservas")
				continue
			}
			if n > 0 {
				log.Info().Int("released", n).Msg("reservas vencidas liberadas")
			}
		}
	}
}
