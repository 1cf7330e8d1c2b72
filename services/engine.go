package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"community-challenges/metrics"
	"community-challenges/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const maxWinners = 3

var errStaleTransition = errors.New("stale transition")

// ReportArchiver stores finalized reports somewhere durable.
type ReportArchiver interface {
	ArchiveReport(ctx context.Context, report *models.ChallengeReport) error
}

// ProfileSource resolves mirrored profiles by external user id.
type ProfileSource interface {
	FindProfile(ctx context.Context, externalUserID string) (*models.ProfileMirror, error)
}

// EngineDeps wires the engine. Scheduler, Events, Archive and Profiles may be nil.
type EngineDeps struct {
	Store     *Store
	Analytics *AnalyticsAggregator
	Prizes    *PrizeDistributor
	Scheduler PhaseArmer
	Events    Publisher
	Archive   ReportArchiver
	Profiles  ProfileSource
	Clock     clockwork.Clock
}

// Engine is the public face of the challenge system.
type Engine struct {
	store     *Store
	analytics *AnalyticsAggregator
	prizes    *PrizeDistributor
	armer     PhaseArmer
	events    Publisher
	archive   ReportArchiver
	profiles  ProfileSource
	clock     clockwork.Clock
}

func NewEngine(d EngineDeps) *Engine {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	return &Engine{
		store:     d.Store,
		analytics: d.Analytics,
		prizes:    d.Prizes,
		armer:     d.Scheduler,
		events:    d.Events,
		archive:   d.Archive,
		profiles:  d.Profiles,
		clock:     d.Clock,
	}
}

// Restore loads persisted state and rebuilds any analytics snapshot that is
// missing. Call before arming the scheduler.
func (e *Engine) Restore(ctx context.Context) error {
	if err := e.store.Load(ctx); err != nil {
		return fmt.Errorf("load challenges: %w", err)
	}
	if err := e.analytics.Load(ctx); err != nil {
		return fmt.Errorf("load analytics: %w", err)
	}
	for _, c := range e.store.List(nil) {
		if _, ok := e.analytics.Get(c.ID); ok {
			continue
		}
		_, subs, err := e.store.Snapshot(c.ID)
		if err != nil {
			return err
		}
		e.analytics.Rebuild(c, subs)
	}
	e.recoverPrizes(ctx)
	return nil
}

// recoverPrizes records payouts for completed challenges that ended without
// any, e.g. when the process stopped between completion and recording.
func (e *Engine) recoverPrizes(ctx context.Context) {
	if e.prizes == nil {
		return
	}
	completed := e.store.List(func(c *models.Challenge) bool { return c.Status == models.StatusCompleted })
	for _, c := range completed {
		if _, err := e.prizes.Distribute(ctx, c); err != nil {
			log.Error().Err(err).Str("challenge_id", c.ID).Msg("[ENGINE] ❌ prize recovery failed")
		}
	}
}

func (e *Engine) publish(ctx context.Context, eventType, challengeID string, data any) {
	if e.events == nil {
		return
	}
	e.events.Publish(ctx, NewEvent(eventType, challengeID, e.clock.Now(), data))
}

var transitionEvents = map[models.ChallengeStatus]string{
	models.StatusActive:           EventChallengeActivated,
	models.StatusSubmissionClosed: EventSubmissionPeriodEnded,
	models.StatusVoting:           EventVotingStarted,
}

func (e *Engine) publishTransitions(ctx context.Context, challengeID string, taken []models.PhaseTransition) {
	for _, t := range taken {
		metrics.PhaseTransitions.WithLabelValues(string(t.To)).Inc()
		if eventType, ok := transitionEvents[t.To]; ok {
			e.publish(ctx, eventType, challengeID, map[string]any{"from": t.From, "to": t.To})
		}
	}
}

// catchUp applies planned transitions that are already due and records the
// next pending one on the challenge.
func catchUp(c *models.Challenge, now time.Time) []models.PhaseTransition {
	var taken []models.PhaseTransition
	for {
		plan := PlanTransitions(*c)
		if len(plan) == 0 {
			c.NextTransition = nil
			return taken
		}
		next := plan[0]
		if next.DueAt.After(now) {
			c.NextTransition = &next
			return taken
		}
		c.Status = next.To
		taken = append(taken, next)
	}
}

// CreateChallenge validates input and stores a new draft challenge.
func (e *Engine) CreateChallenge(ctx context.Context, ownerID string, in ChallengeInput) (*models.Challenge, error) {
	if ownerID == "" {
		return nil, newErr(ErrAuthorization, "create challenge", "owner is required")
	}
	c, err := buildChallenge(in)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	c.ID = uuid.NewString()
	c.Slug = slug.Make(c.Title) + "-" + c.ID[:8]
	c.ArtistID = ownerID
	c.Status = models.StatusDraft
	c.Participants = []models.Participant{}
	c.SubmissionIDs = []string{}
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := e.store.Insert(ctx, c); err != nil {
		return nil, err
	}
	if _, err := e.analytics.Init(ctx, c); err != nil {
		log.Warn().Err(err).Str("challenge_id", c.ID).Msg("[ENGINE] ⚠️ failed to persist initial analytics")
	}

	log.Info().Str("challenge_id", c.ID).Str("artist_id", ownerID).Str("title", c.Title).Msg("🎵 [ENGINE] challenge created")
	e.publish(ctx, EventChallengeCreated, c.ID, c.Clone())
	return c.Clone(), nil
}

// LaunchChallenge opens a draft (or re-launches an upcoming) challenge and
// arms its phase timers.
func (e *Engine) LaunchChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	const op = "launch challenge"
	var (
		launched *models.Challenge
		taken    []models.PhaseTransition
	)
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Status != models.StatusDraft && c.Status != models.StatusUpcoming {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		now := e.clock.Now()
		target := models.StatusUpcoming
		if !now.Before(c.Timeline.StartDate) {
			target = models.StatusActive
		}
		if c.Status != target {
			if !models.CanTransition(c.Status, target) {
				return newErr(ErrInvalidState, op, "cannot move from %s to %s", c.Status, target)
			}
			taken = append(taken, models.PhaseTransition{From: c.Status, To: target, DueAt: now})
			c.Status = target
		}
		taken = append(taken, catchUp(c, now)...)
		c.LaunchedAt = &now
		c.UpdatedAt = now
		launched = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.armer != nil {
		if err := e.armer.Arm(*launched); err != nil {
			log.Error().Err(err).Str("challenge_id", id).Msg("[ENGINE] ❌ failed to arm phase timers, sweep will deliver them")
		}
	}

	log.Info().Str("challenge_id", id).Str("status", string(launched.Status)).Msg("🚀 [ENGINE] challenge launched")
	e.publish(ctx, EventChallengeLaunched, id, map[string]any{"status": launched.Status})
	e.publishTransitions(ctx, id, taken)
	return launched, nil
}

// ApplyTransition is the scheduler's entry point. It applies from→to only if
// the challenge is still in from; anything else is a stale delivery and is
// dropped without error.
func (e *Engine) ApplyTransition(ctx context.Context, id string, from, to models.ChallengeStatus) error {
	const op = "apply transition"
	var taken []models.PhaseTransition
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Status != from {
			return errStaleTransition
		}
		if !models.CanTransition(from, to) {
			return newErr(ErrInvalidState, op, "cannot move from %s to %s", from, to)
		}
		now := e.clock.Now()
		c.Status = to
		taken = append(taken, models.PhaseTransition{From: from, To: to, DueAt: now})
		taken = append(taken, catchUp(c, now)...)
		c.UpdatedAt = now
		return nil
	})
	if errors.Is(err, errStaleTransition) {
		metrics.StaleTransitions.Inc()
		log.Debug().Str("challenge_id", id).Str("from", string(from)).Str("to", string(to)).Msg("[ENGINE] stale transition ignored")
		return nil
	}
	if err != nil {
		return err
	}

	for _, t := range taken {
		log.Info().Str("challenge_id", id).Str("from", string(t.From)).Str("to", string(t.To)).Msg("⏩ [ENGINE] phase transition applied")
	}
	e.publishTransitions(ctx, id, taken)
	return nil
}

// JoinChallenge adds userID as a participant while the challenge is active.
func (e *Engine) JoinChallenge(ctx context.Context, id, userID string, profile models.Profile) (*models.Participant, error) {
	const op = "join challenge"
	if userID == "" {
		return nil, newErr(ErrAuthorization, op, "user is required")
	}
	var (
		joined  models.Participant
		updated *models.Challenge
	)
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Status != models.StatusActive {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		if c.Participant(userID) != nil {
			return &ChallengeError{Kind: ErrAlreadyJoined, Op: op, Msg: userID}
		}
		if c.MaxParticipants > 0 && len(c.Participants) >= c.MaxParticipants {
			return newErr(ErrChallengeFull, op, "limit of %d reached", c.MaxParticipants)
		}
		if !IsEligible(c.Requirements.Eligibility, profile) {
			return newErr(ErrEligibility, op, "requires %s", c.Requirements.Eligibility)
		}

		now := e.clock.Now()
		joined = models.Participant{
			UserID:        userID,
			Username:      profile.Username,
			JoinedAt:      now,
			SubmissionIDs: []string{},
			VoteIDs:       []string{},
			Profile:       profile.Summary(),
		}
		c.Participants = append(c.Participants, joined)
		c.Metrics.Participants++
		c.UpdatedAt = now
		updated = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Joins.Inc()
	e.analytics.RecordParticipant(ctx, updated, joined.Profile)
	log.Info().Str("challenge_id", id).Str("user_id", userID).Msg("👥 [ENGINE] participant joined")
	e.publish(ctx, EventParticipantJoined, id, joined)
	return &joined, nil
}

// ResolveProfile prefers the mirrored profile and falls back to the given one.
func (e *Engine) ResolveProfile(ctx context.Context, userID string, fallback models.Profile) models.Profile {
	fallback.UserID = userID
	if e.profiles == nil {
		return fallback
	}
	mirror, err := e.profiles.FindProfile(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("[ENGINE] ⚠️ profile lookup failed, using request profile")
		return fallback
	}
	if mirror == nil {
		return fallback
	}
	return mirror.ToProfile()
}

// SubmitEntry records a participant's entry while the challenge is active.
func (e *Engine) SubmitEntry(ctx context.Context, id, userID string, in SubmissionInput) (*models.Submission, error) {
	const op = "submit entry"
	var (
		created *models.Submission
		updated *models.Challenge
	)
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Status != models.StatusActive {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		participant := c.Participant(userID)
		if participant == nil {
			return newErr(ErrAuthorization, op, "user %s has not joined", userID)
		}
		if err := validateSubmission(c.Requirements, in); err != nil {
			return err
		}

		now := e.clock.Now()
		sub := &models.Submission{
			ID:          uuid.NewString(),
			ChallengeID: c.ID,
			UserID:      userID,
			Sequence:    tx.SubmissionCount() + 1,
			Title:       in.Title,
			Description: in.Description,
			Type:        in.Type,
			Files:       append([]string(nil), in.Files...),
			Metadata:    in.Metadata,
			SocialLinks: append([]string(nil), in.SocialLinks...),
			Tags:        append([]string(nil), in.Tags...),
			Status:      models.SubmissionSubmitted,
			Voting: models.VotingState{
				Votes:       []models.Vote{},
				PanelScores: map[string]models.PanelJudgment{},
			},
			SubmittedAt: now,
			UpdatedAt:   now,
		}
		tx.AddSubmission(sub)
		c.SubmissionIDs = append(c.SubmissionIDs, sub.ID)
		participant.SubmissionIDs = append(participant.SubmissionIDs, sub.ID)
		c.Metrics.Submissions++
		c.UpdatedAt = now
		created = sub.Clone()
		updated = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Submissions.Inc()
	e.analytics.RecordSubmission(ctx, updated, created.Type)
	log.Info().Str("challenge_id", id).Str("submission_id", created.ID).Str("user_id", userID).Msg("📥 [ENGINE] submission received")
	e.publish(ctx, EventSubmissionReceived, id, created)
	return created, nil
}

// VoteOnSubmission records a community vote. Votes are accepted for
// community_vote and hybrid challenges once submissions have closed.
func (e *Engine) VoteOnSubmission(ctx context.Context, challengeID, submissionID, voterID string, in VoteInput) (*models.Vote, error) {
	const op = "vote"
	if voterID == "" {
		return nil, newErr(ErrAuthorization, op, "voter is required")
	}
	var (
		vote models.Vote
		sub  *models.Submission
	)
	err := e.store.Mutate(ctx, challengeID, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if !c.Judging.Method.UsesCommunityVote() {
			return newErr(ErrInvalidState, op, "%s challenges do not take community votes", c.Judging.Method)
		}
		if !votingOpen(c) {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		if in.Score < minVoteScore || in.Score > maxVoteScore {
			return validationErr(op, "score must be between %d and %d", minVoteScore, maxVoteScore)
		}
		s := tx.Submission(submissionID)
		if s == nil {
			return notFound(op, "submission", submissionID)
		}
		if s.UserID == voterID {
			return &ChallengeError{Kind: ErrSelfVote, Op: op}
		}
		if s.HasVoteFrom(voterID) {
			return &ChallengeError{Kind: ErrDuplicateVote, Op: op, Msg: voterID}
		}

		now := e.clock.Now()
		vote = models.Vote{
			ID:       uuid.NewString(),
			VoterID:  voterID,
			Score:    in.Score,
			Criteria: in.Criteria,
			Comment:  in.Comment,
			VotedAt:  now,
		}
		s.Voting.Votes = append(s.Voting.Votes, vote)
		rescore(s, c.Judging)
		s.UpdatedAt = now
		c.Metrics.TotalVotes++
		if p := c.Participant(voterID); p != nil {
			p.VoteIDs = append(p.VoteIDs, vote.ID)
		}
		c.UpdatedAt = now
		sub = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Votes.Inc()
	e.publish(ctx, EventVoteReceived, challengeID, map[string]any{
		"submission_id":   submissionID,
		"voter_id":        voterID,
		"score":           vote.Score,
		"community_score": sub.Voting.CommunityScore,
	})
	return &vote, nil
}

func votingOpen(c *models.Challenge) bool {
	switch c.Judging.Method {
	case models.JudgingCommunityVote:
		return c.Status == models.StatusVoting
	case models.JudgingHybrid:
		return c.Status == models.StatusSubmissionClosed || c.Status == models.StatusVoting
	}
	return false
}

func judgingOpen(c *models.Challenge) bool {
	switch c.Status {
	case models.StatusActive, models.StatusSubmissionClosed, models.StatusVoting:
		return true
	}
	return false
}

func validJudgeScore(score float64) bool {
	return score >= minJudgeScore && score <= maxJudgeScore
}

// ArtistJudgeSubmission sets the owner's verdict on a submission.
func (e *Engine) ArtistJudgeSubmission(ctx context.Context, challengeID, submissionID, artistID string, in JudgmentInput) (*models.Submission, error) {
	const op = "artist judgment"
	var judged *models.Submission
	err := e.store.Mutate(ctx, challengeID, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.ArtistID != artistID {
			return newErr(ErrAuthorization, op, "only the challenge owner can judge")
		}
		if !judgingOpen(c) {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		if !validJudgeScore(in.OverallScore) {
			return validationErr(op, "score must be between %d and %d", minJudgeScore, maxJudgeScore)
		}
		s := tx.Submission(submissionID)
		if s == nil {
			return notFound(op, "submission", submissionID)
		}
		now := e.clock.Now()
		s.Voting.ArtistScore = &models.ArtistJudgment{
			OverallScore:   in.OverallScore,
			CriteriaScores: in.CriteriaScores,
			Feedback:       in.Feedback,
			Highlight:      in.Highlight,
			JudgedAt:       now,
		}
		rescore(s, c.Judging)
		s.UpdatedAt = now
		judged = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, EventArtistJudgment, challengeID, map[string]any{
		"submission_id": submissionID,
		"score":         in.OverallScore,
		"highlight":     in.Highlight,
	})
	return judged, nil
}

// PanelJudgeSubmission sets one named panel judge's verdict on a submission.
func (e *Engine) PanelJudgeSubmission(ctx context.Context, challengeID, submissionID, judgeID string, in JudgmentInput) (*models.Submission, error) {
	const op = "panel judgment"
	var judged *models.Submission
	err := e.store.Mutate(ctx, challengeID, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Judging.Method != models.JudgingPanel {
			return newErr(ErrInvalidState, op, "challenge is judged by %s", c.Judging.Method)
		}
		if !c.Judging.IsPanelJudge(judgeID) {
			return newErr(ErrAuthorization, op, "%s is not on the judging panel", judgeID)
		}
		if !judgingOpen(c) {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		if !validJudgeScore(in.OverallScore) {
			return validationErr(op, "score must be between %d and %d", minJudgeScore, maxJudgeScore)
		}
		s := tx.Submission(submissionID)
		if s == nil {
			return notFound(op, "submission", submissionID)
		}
		now := e.clock.Now()
		if s.Voting.PanelScores == nil {
			s.Voting.PanelScores = map[string]models.PanelJudgment{}
		}
		s.Voting.PanelScores[judgeID] = models.PanelJudgment{
			JudgeID:        judgeID,
			OverallScore:   in.OverallScore,
			CriteriaScores: in.CriteriaScores,
			Feedback:       in.Feedback,
			JudgedAt:       now,
		}
		rescore(s, c.Judging)
		s.UpdatedAt = now
		judged = s.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.publish(ctx, EventPanelJudgment, challengeID, map[string]any{
		"submission_id": submissionID,
		"judge_id":      judgeID,
		"score":         in.OverallScore,
	})
	return judged, nil
}

// CompleteChallenge scores and ranks every submission, records the winners,
// then hands off to the prize distributor and the report generator.
// If prize recording fails the challenge stays completed and the error is
// returned alongside it.
func (e *Engine) CompleteChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	const op = "complete challenge"
	var completed *models.Challenge
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.Status != models.StatusSubmissionClosed && c.Status != models.StatusVoting {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		if !models.CanTransition(c.Status, models.StatusCompleted) {
			return newErr(ErrInvalidState, op, "cannot complete from %s", c.Status)
		}

		subs := tx.Submissions()
		for _, s := range subs {
			if err := ctx.Err(); err != nil {
				return err
			}
			rescore(s, c.Judging)
		}
		ranked := RankSubmissions(subs)

		now := e.clock.Now()
		results := &models.Results{
			Winners:           []models.Winner{},
			TotalSubmissions:  len(subs),
			TotalParticipants: len(c.Participants),
			TotalVotes:        c.Metrics.TotalVotes,
			CompletedAt:       now,
		}
		for i := 0; i < len(ranked) && i < maxWinners; i++ {
			s := ranked[i]
			results.Winners = append(results.Winners, models.Winner{
				Position:     i + 1,
				SubmissionID: s.ID,
				UserID:       s.UserID,
				Title:        s.Title,
				FinalScore:   s.Voting.FinalScore,
			})
		}
		c.Results = results
		c.Status = models.StatusCompleted
		c.NextTransition = nil
		c.UpdatedAt = now
		completed = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.armer != nil {
		e.armer.Disarm(id)
	}
	metrics.PhaseTransitions.WithLabelValues(string(models.StatusCompleted)).Inc()
	log.Info().Str("challenge_id", id).Int("winners", len(completed.Results.Winners)).Msg("🏁 [ENGINE] challenge completed")
	e.publish(ctx, EventChallengeCompleted, id, completed.Results)

	var distErr error
	if e.prizes != nil {
		if _, err := e.prizes.Distribute(ctx, completed); err != nil {
			log.Error().Err(err).Str("challenge_id", id).Msg("[ENGINE] ❌ prize distribution failed")
			distErr = fmt.Errorf("challenge completed but prizes were not recorded: %w", err)
		}
	}

	report, err := e.analytics.GenerateReport(ctx, completed)
	if err != nil {
		log.Error().Err(err).Str("challenge_id", id).Msg("[ENGINE] ❌ report generation failed")
	} else {
		e.publish(ctx, EventReportGenerated, id, report)
		if e.archive != nil {
			if err := e.archive.ArchiveReport(ctx, report); err != nil {
				log.Warn().Err(err).Str("challenge_id", id).Msg("[ENGINE] ⚠️ report archive failed")
			}
		}
	}
	return completed, distErr
}

// CancelChallenge stops a challenge that has not finished. Owner only.
func (e *Engine) CancelChallenge(ctx context.Context, id, actorID, reason string) (*models.Challenge, error) {
	const op = "cancel challenge"
	var cancelled *models.Challenge
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		c := tx.Challenge
		if c.ArtistID != actorID {
			return newErr(ErrAuthorization, op, "only the challenge owner can cancel")
		}
		if !models.CanTransition(c.Status, models.StatusCancelled) {
			return newErr(ErrInvalidState, op, "challenge is %s", c.Status)
		}
		c.Status = models.StatusCancelled
		c.CancelReason = reason
		c.NextTransition = nil
		c.UpdatedAt = e.clock.Now()
		cancelled = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if e.armer != nil {
		e.armer.Disarm(id)
	}
	metrics.PhaseTransitions.WithLabelValues(string(models.StatusCancelled)).Inc()
	log.Info().Str("challenge_id", id).Str("reason", reason).Msg("🛑 [ENGINE] challenge cancelled")
	e.publish(ctx, EventChallengeCancelled, id, map[string]any{"reason": reason})
	return cancelled, nil
}

// RecordView counts a challenge page view.
func (e *Engine) RecordView(ctx context.Context, id string) (int64, error) {
	var (
		views   int64
		updated *models.Challenge
	)
	err := e.store.Mutate(ctx, id, func(tx *ChallengeTx) error {
		tx.Challenge.Metrics.Views++
		views = tx.Challenge.Metrics.Views
		updated = tx.Challenge.Clone()
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.analytics.RecordView(ctx, updated)
	return views, nil
}

// GetChallenge returns a copy of the challenge.
func (e *Engine) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	return e.store.Get(id)
}

// GetSubmission returns a copy of the submission.
func (e *Engine) GetSubmission(_ context.Context, id string) (*models.Submission, error) {
	return e.store.GetSubmission(id)
}

// ListSubmissions returns the challenge's submissions in arrival order.
func (e *Engine) ListSubmissions(_ context.Context, challengeID string) ([]*models.Submission, error) {
	_, subs, err := e.store.Snapshot(challengeID)
	return subs, err
}

var activeStatuses = map[models.ChallengeStatus]bool{
	models.StatusUpcoming: true,
	models.StatusActive:   true,
	models.StatusVoting:   true,
}

// GetActiveChallenges lists upcoming, active and voting challenges by start
// date, optionally for one artist.
func (e *Engine) GetActiveChallenges(_ context.Context, artistID string) []*models.Challenge {
	out := e.store.List(func(c *models.Challenge) bool {
		return activeStatuses[c.Status] && (artistID == "" || c.ArtistID == artistID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timeline.StartDate.Before(out[j].Timeline.StartDate)
	})
	return out
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank           int     `json:"rank"`
	SubmissionID   string  `json:"submission_id"`
	UserID         string  `json:"user_id"`
	Title          string  `json:"title"`
	FinalScore     float64 `json:"final_score"`
	CommunityVotes int     `json:"community_votes"`
}

// GetLeaderboard ranks submissions by their current score. limit <= 0 returns all.
func (e *Engine) GetLeaderboard(_ context.Context, challengeID string, limit int) ([]LeaderboardEntry, error) {
	c, subs, err := e.store.Snapshot(challengeID)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		rescore(s, c.Judging)
	}
	ranked := RankSubmissions(subs)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]LeaderboardEntry, len(ranked))
	for i, s := range ranked {
		out[i] = LeaderboardEntry{
			Rank:           i + 1,
			SubmissionID:   s.ID,
			UserID:         s.UserID,
			Title:          s.Title,
			FinalScore:     s.Voting.FinalScore,
			CommunityVotes: s.Voting.CommunityVotes,
		}
	}
	return out, nil
}

// ChallengeAnalytics pairs the live metrics with the analytics snapshot.
type ChallengeAnalytics struct {
	ChallengeID string                    `json:"challenge_id"`
	Status      models.ChallengeStatus    `json:"status"`
	Metrics     models.Metrics            `json:"metrics"`
	Analytics   *models.AnalyticsSnapshot `json:"analytics"`
}

func (e *Engine) GetChallengeAnalytics(_ context.Context, challengeID string) (*ChallengeAnalytics, error) {
	c, err := e.store.Get(challengeID)
	if err != nil {
		return nil, err
	}
	snap, ok := e.analytics.Get(challengeID)
	if !ok {
		return nil, notFound("analytics", "analytics", challengeID)
	}
	if !snap.Finalized {
		applyRates(snap, c)
	}
	return &ChallengeAnalytics{
		ChallengeID: c.ID,
		Status:      c.Status,
		Metrics:     c.Metrics,
		Analytics:   snap,
	}, nil
}

// GetReport returns the final report once the challenge has completed.
func (e *Engine) GetReport(_ context.Context, challengeID string) (*models.ChallengeReport, error) {
	if _, err := e.store.Get(challengeID); err != nil {
		return nil, err
	}
	snap, ok := e.analytics.Get(challengeID)
	if !ok || snap.Report == nil {
		return nil, notFound("report", "report", challengeID)
	}
	return snap.Report, nil
}

func (e *Engine) GetPrizeDistributions(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error) {
	if _, err := e.store.Get(challengeID); err != nil {
		return nil, err
	}
	return e.prizes.List(ctx, challengeID)
}

// RecordPrizes writes the payout records for a completed challenge whose
// completion could not record them. Existing records are returned unchanged.
func (e *Engine) RecordPrizes(ctx context.Context, challengeID string) ([]models.PrizeDistribution, error) {
	c, err := e.store.Get(challengeID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.StatusCompleted {
		return nil, newErr(ErrInvalidState, "record prizes", "challenge is %s", c.Status)
	}
	return e.prizes.Distribute(ctx, c)
}

// RetryDistribution puts a failed payout back in the queue.
func (e *Engine) RetryDistribution(ctx context.Context, challengeID, distributionID string) (*models.PrizeDistribution, error) {
	if _, err := e.store.Get(challengeID); err != nil {
		return nil, err
	}
	return e.prizes.Retry(ctx, challengeID, distributionID)
}
