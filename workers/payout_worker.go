// workers/payout_worker.go
package workers

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Settler settles pending prize payouts in one pass.
type Settler interface {
	Settle(ctx context.Context) (settled, failed int, err error)
}

// PollPayouts runs settler every interval until ctx is done.
func PollPayouts(ctx context.Context, clock clockwork.Clock, settler Settler, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("💸 Starting prize payout worker...")

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("⏹️ Prize payout worker stopped.")
			return
		case <-ticker.Chan():
			settled, failed, err := settler.Settle(ctx)
			if err != nil {
				log.Error().Err(err).Msg("❌ Error settling prize payouts")
				continue
			}
			if settled == 0 && failed == 0 {
				log.Debug().Msg("➡️ No pending prize payouts.")
				continue
			}
			log.Info().Int("settled", settled).Int("failed", failed).Msg("📤 Prize payout pass finished")
		}
	}
}
