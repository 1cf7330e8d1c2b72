// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"community-challenges/metrics"
	"community-challenges/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TransitionSink receives due phase transitions.
type TransitionSink interface {
	ApplyTransition(ctx context.Context, challengeID string, from, to models.ChallengeStatus) error
}

// PhaseArmer is what the engine needs from the scheduler.
type PhaseArmer interface {
	Arm(c models.Challenge) error
	Disarm(challengeID string)
}

// PlanTransitions lists the time-triggered transitions still ahead of c, in
// timeline order. Explicit moves (complete, cancel) are never planned.
func PlanTransitions(c models.Challenge) []models.PhaseTransition {
	var plan []models.PhaseTransition
	status := c.Status
	if status == models.StatusUpcoming {
		plan = append(plan, models.PhaseTransition{From: models.StatusUpcoming, To: models.StatusActive, DueAt: c.Timeline.StartDate})
		status = models.StatusActive
	}
	if status == models.StatusActive {
		plan = append(plan, models.PhaseTransition{From: models.StatusActive, To: models.StatusSubmissionClosed, DueAt: c.Timeline.SubmissionDeadline})
		status = models.StatusSubmissionClosed
	}
	if status == models.StatusSubmissionClosed && c.Judging.Method.UsesCommunityVote() {
		plan = append(plan, models.PhaseTransition{From: models.StatusSubmissionClosed, To: models.StatusVoting, DueAt: c.Timeline.VotingStartDate})
	}
	return plan
}

// PhaseScheduler arms one gocron one-shot job per pending transition and runs
// a periodic sweep over persisted NextTransition values, so a transition
// missed while the process was down is still delivered.
type PhaseScheduler struct {
	sched      gocron.Scheduler
	clock      clockwork.Clock
	store      *Store
	sink       TransitionSink
	sweepEvery time.Duration
	ctx        context.Context
}

func NewPhaseScheduler(store *Store, clock clockwork.Clock, sweepEvery time.Duration) (*PhaseScheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	return &PhaseScheduler{
		sched:      sched,
		clock:      clock,
		store:      store,
		sweepEvery: sweepEvery,
		ctx:        context.Background(),
	}, nil
}

// Start registers the sweep job and begins firing jobs into sink.
func (p *PhaseScheduler) Start(ctx context.Context, sink TransitionSink) error {
	p.ctx = ctx
	p.sink = sink

	_, err := p.sched.NewJob(
		gocron.DurationJob(p.sweepEvery),
		gocron.NewTask(func() {
			p.Sweep(p.ctx)
		}),
		gocron.WithName("phase-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	p.sched.Start()
	log.Info().Dur("sweep_every", p.sweepEvery).Msg("⏱️ [SCHEDULER] phase scheduler started")
	return nil
}

// Arm registers the pending transitions of c, replacing any armed before.
func (p *PhaseScheduler) Arm(c models.Challenge) error {
	p.sched.RemoveByTags(c.ID)
	now := p.clock.Now()
	for _, t := range PlanTransitions(c) {
		start := gocron.OneTimeJobStartImmediately()
		if t.DueAt.After(now) {
			start = gocron.OneTimeJobStartDateTime(t.DueAt)
		}
		transition := t
		challengeID := c.ID
		_, err := p.sched.NewJob(
			gocron.OneTimeJob(start),
			gocron.NewTask(func() {
				p.deliver(p.ctx, challengeID, transition.From, transition.To)
			}),
			gocron.WithTags(challengeID),
			gocron.WithName(fmt.Sprintf("%s:%s->%s", challengeID, transition.From, transition.To)),
		)
		if err != nil {
			return fmt.Errorf("arm %s->%s for challenge %s: %w", t.From, t.To, c.ID, err)
		}
		log.Debug().
			Str("challenge_id", c.ID).
			Str("from", string(t.From)).
			Str("to", string(t.To)).
			Time("due_at", t.DueAt).
			Msg("[SCHEDULER] transition armed")
	}
	return nil
}

// Disarm drops every job armed for the challenge.
func (p *PhaseScheduler) Disarm(challengeID string) {
	p.sched.RemoveByTags(challengeID)
}

// Sweep delivers every persisted transition that is already due.
func (p *PhaseScheduler) Sweep(ctx context.Context) int {
	metrics.SweepRuns.Inc()
	due := p.store.DueTransitions(p.clock.Now())
	for _, d := range due {
		p.deliver(ctx, d.ChallengeID, d.From, d.To)
	}
	if len(due) > 0 {
		log.Info().Int("delivered", len(due)).Msg("[SCHEDULER] sweep delivered overdue transitions")
	}
	return len(due)
}

// Rearm arms every launched, non-terminal challenge from persisted state.
func (p *PhaseScheduler) Rearm(ctx context.Context) error {
	challenges := p.store.List(func(c *models.Challenge) bool {
		return c.Status != models.StatusDraft && !c.Status.IsTerminal()
	})
	for _, c := range challenges {
		if err := p.Arm(*c); err != nil {
			return err
		}
	}
	log.Info().Int("challenges", len(challenges)).Msg("🔁 [SCHEDULER] re-armed phase transitions")
	return nil
}

func (p *PhaseScheduler) deliver(ctx context.Context, challengeID string, from, to models.ChallengeStatus) {
	if p.sink == nil {
		return
	}
	if err := p.sink.ApplyTransition(ctx, challengeID, from, to); err != nil {
		log.Error().Err(err).
			Str("challenge_id", challengeID).
			Str("from", string(from)).
			Str("to", string(to)).
			Msg("[SCHEDULER] ❌ transition failed")
	}
}

func (p *PhaseScheduler) Shutdown() error {
	return p.sched.Shutdown()
}
