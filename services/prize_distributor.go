package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"community-challenges/metrics"
	"community-challenges/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// PrizeDistributor owns payout records. Records are created pending and
// settled by Settle; failures stay failed until a caller retries them.
type PrizeDistributor struct {
	mu      sync.Mutex // serializes recording, settlement and retries
	repo    Repository
	gateway PayoutGateway
	events  Publisher
	clock   clockwork.Clock
}

func NewPrizeDistributor(repo Repository, gateway PayoutGateway, events Publisher, clock clockwork.Clock) *PrizeDistributor {
	if gateway == nil {
		gateway = LoggingPayoutGateway{}
	}
	return &PrizeDistributor{repo: repo, gateway: gateway, events: events, clock: clock}
}

// Distribute records the payouts owed for a completed challenge: one per
// placed winner with a configured tier, plus a participation reward for every
// participant who submitted at least once. A challenge that already has
// records keeps them and nothing new is written.
func (p *PrizeDistributor) Distribute(ctx context.Context, c *models.Challenge) ([]models.PrizeDistribution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, err := p.repo.ListDistributions(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list prize distributions: %w", err)
	}
	if len(existing) > 0 {
		log.Debug().Str("challenge_id", c.ID).Int("records", len(existing)).Msg("[PRIZES] distributions already recorded")
		return existing, nil
	}

	now := p.clock.Now()
	var records []models.PrizeDistribution

	if c.Results != nil {
		for _, w := range c.Results.Winners {
			prize, ok := c.Prizes.ForPosition(w.Position)
			if !ok {
				continue
			}
			records = append(records, models.PrizeDistribution{
				ID:           uuid.NewString(),
				ChallengeID:  c.ID,
				SubmissionID: w.SubmissionID,
				UserID:       w.UserID,
				Position:     strconv.Itoa(w.Position),
				Prize:        prize,
				Status:       models.DistributionPending,
				CreatedAt:    now,
				UpdatedAt:    now,
			})
		}
	}

	if reward := c.Prizes.ParticipationReward; reward != nil {
		for _, part := range c.Participants {
			if len(part.SubmissionIDs) == 0 {
				continue
			}
			records = append(records, models.PrizeDistribution{
				ID:          uuid.NewString(),
				ChallengeID: c.ID,
				UserID:      part.UserID,
				Position:    models.PositionParticipant,
				Prize:       *reward,
				Status:      models.DistributionPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}
	}

	if err := p.repo.SaveDistributions(ctx, records); err != nil {
		return nil, fmt.Errorf("record prize distributions: %w", err)
	}
	log.Info().Str("challenge_id", c.ID).Int("records", len(records)).Msg("🏆 [PRIZES] prize distributions recorded")
	return records, nil
}

// Settle pushes every pending record through the gateway once.
// It returns the number settled successfully and the number that failed.
func (p *PrizeDistributor) Settle(ctx context.Context) (settled, failed int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pending, err := p.repo.ListPendingDistributions(ctx)
	if err != nil {
		return 0, 0, err
	}

	for _, d := range pending {
		if ctx.Err() != nil {
			return settled, failed, ctx.Err()
		}
		d.Attempts++
		payErr := p.gateway.Pay(ctx, d)
		now := p.clock.Now()
		d.UpdatedAt = now
		if payErr != nil {
			d.Status = models.DistributionFailed
			d.FailureReason = payErr.Error()
		} else {
			d.Status = models.DistributionDistributed
			d.FailureReason = ""
			d.DistributedAt = &now
		}

		if err := p.repo.SaveDistributions(ctx, []models.PrizeDistribution{d}); err != nil {
			log.Error().Err(err).Str("distribution_id", d.ID).Msg("[PRIZES] ❌ failed to persist settlement")
			return settled, failed, err
		}

		metrics.Payouts.WithLabelValues(string(d.Status)).Inc()
		if payErr != nil {
			failed++
			log.Error().Err(payErr).
				Str("challenge_id", d.ChallengeID).
				Str("distribution_id", d.ID).
				Str("user_id", d.UserID).
				Msg("[PRIZES] ❌ prize payout failed")
			p.publish(ctx, EventPrizeDistributionFailed, d)
			continue
		}
		settled++
		log.Info().Str("challenge_id", d.ChallengeID).Str("distribution_id", d.ID).Msg("✅ [PRIZES] prize distributed")
		p.publish(ctx, EventPrizeDistributed, d)
	}
	return settled, failed, nil
}

// Retry moves a failed record back to pending so the next Settle picks it up.
func (p *PrizeDistributor) Retry(ctx context.Context, challengeID, distributionID string) (*models.PrizeDistribution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	records, err := p.repo.ListDistributions(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	for _, d := range records {
		if d.ID != distributionID {
			continue
		}
		if d.Status != models.DistributionFailed {
			return nil, newErr(ErrInvalidState, "retry distribution", "distribution %s is %s", d.ID, d.Status)
		}
		d.Status = models.DistributionPending
		d.UpdatedAt = p.clock.Now()
		if err := p.repo.SaveDistributions(ctx, []models.PrizeDistribution{d}); err != nil {
			return nil, err
		}
		return &d, nil
	}
	return nil, notFound("retry distribution", "distribution", distributionID)
}

// List returns every record for a challenge.
func (p *PrizeDistributor) List(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error) {
	return p.repo.ListDistributions(ctx, challengeID)
}

func (p *PrizeDistributor) publish(ctx context.Context, eventType string, d models.PrizeDistribution) {
	if p.events == nil {
		return
	}
	p.events.Publish(ctx, NewEvent(eventType, d.ChallengeID, p.clock.Now(), d))
}
