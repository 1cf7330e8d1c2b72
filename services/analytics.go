package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"community-challenges/models"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Recommendation messages attached to final reports.
const (
	RecPromoteWidely   = "Consider promoting challenges more widely to increase participation"
	RecSimplifyRules   = "Simplify submission requirements to improve completion rates"
	RecVotingIncentive = "Add incentives for community voting to increase engagement"
	recFocusFormat     = "Focus future challenges on %s content as it's most popular"

	minHealthyParticipants = 50
	minSubmissionRatio     = 0.5
	minVotesPerSubmission  = 10
)

// AnalyticsAggregator keeps per-challenge counters derived from store events.
// A snapshot stops changing once its report is generated.
type AnalyticsAggregator struct {
	mu    sync.Mutex
	snaps map[string]*models.AnalyticsSnapshot
	repo  Repository
	clock clockwork.Clock
}

func NewAnalyticsAggregator(repo Repository, clock clockwork.Clock) *AnalyticsAggregator {
	return &AnalyticsAggregator{
		snaps: make(map[string]*models.AnalyticsSnapshot),
		repo:  repo,
		clock: clock,
	}
}

func newSnapshot(challengeID, artistID string) *models.AnalyticsSnapshot {
	return &models.AnalyticsSnapshot{
		ChallengeID: challengeID,
		ArtistID:    artistID,
		Demographics: models.Demographics{
			Countries:        map[string]int64{},
			ExperienceLevels: map[string]int64{},
			Genres:           map[string]int64{},
		},
		SubmissionTypes: map[string]int64{},
	}
}

// Init creates the empty snapshot for a new challenge.
func (a *AnalyticsAggregator) Init(ctx context.Context, c *models.Challenge) (*models.AnalyticsSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := newSnapshot(c.ID, c.ArtistID)
	snap.CreatedAt = a.clock.Now()
	snap.UpdatedAt = snap.CreatedAt
	a.snaps[c.ID] = snap
	if err := a.repo.SaveAnalytics(ctx, snap); err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// update applies fn to the live snapshot and persists it. Finalized snapshots
// are left alone.
func (a *AnalyticsAggregator) update(ctx context.Context, c *models.Challenge, fn func(s *models.AnalyticsSnapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.snaps[c.ID]
	if !ok {
		snap = newSnapshot(c.ID, c.ArtistID)
		snap.CreatedAt = a.clock.Now()
		a.snaps[c.ID] = snap
	}
	if snap.Finalized {
		log.Debug().Str("challenge_id", c.ID).Msg("[ANALYTICS] snapshot finalized, ignoring update")
		return
	}
	fn(snap)
	applyRates(snap, c)
	snap.UpdatedAt = a.clock.Now()
	if err := a.repo.SaveAnalytics(ctx, snap); err != nil {
		log.Warn().Err(err).Str("challenge_id", c.ID).Msg("[ANALYTICS] ⚠️ failed to persist snapshot")
	}
}

// RecordParticipant folds a joining participant's profile into the demographics.
func (a *AnalyticsAggregator) RecordParticipant(ctx context.Context, c *models.Challenge, profile models.ProfileSummary) {
	a.update(ctx, c, func(s *models.AnalyticsSnapshot) {
		addProfile(&s.Demographics, profile)
	})
}

// RecordSubmission counts a submission under its type.
func (a *AnalyticsAggregator) RecordSubmission(ctx context.Context, c *models.Challenge, submissionType string) {
	a.update(ctx, c, func(s *models.AnalyticsSnapshot) {
		s.SubmissionTypes[submissionType]++
	})
}

// RecordView refreshes view-driven counters.
func (a *AnalyticsAggregator) RecordView(ctx context.Context, c *models.Challenge) {
	a.update(ctx, c, func(*models.AnalyticsSnapshot) {})
}

// Get returns a copy of the snapshot.
func (a *AnalyticsAggregator) Get(challengeID string) (*models.AnalyticsSnapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.snaps[challengeID]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// GenerateReport builds the final report, attaches it to the snapshot and
// freezes the snapshot. Calling it again returns the existing report.
func (a *AnalyticsAggregator) GenerateReport(ctx context.Context, c *models.Challenge) (*models.ChallengeReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap, ok := a.snaps[c.ID]
	if !ok {
		return nil, notFound("report", "analytics", c.ID)
	}
	if snap.Finalized && snap.Report != nil {
		r := *snap.Report
		return &r, nil
	}
	applyRates(snap, c)

	participants := len(c.Participants)
	submissions := len(c.SubmissionIDs)
	report := &models.ChallengeReport{
		ChallengeID: c.ID,
		Summary: models.ReportSummary{
			Title:                 c.Title,
			Type:                  c.Type,
			DurationDays:          durationDays(c.Timeline),
			TotalParticipants:     participants,
			TotalSubmissions:      submissions,
			CompletionRate:        ratio(float64(submissions), float64(participants)) * 100,
			TotalVotes:            c.Metrics.TotalVotes,
			AvgVotesPerSubmission: ratio(float64(c.Metrics.TotalVotes), float64(submissions)),
		},
		Demographics: snap.Demographics,
		Engagement: models.ReportEngagement{
			MostPopularSubmissionType:    topSubmissionType(snap.SubmissionTypes),
			AvgSubmissionsPerParticipant: ratio(float64(submissions), float64(participants)),
		},
		Recommendations: Recommendations(c, snap.SubmissionTypes),
		GeneratedAt:     a.clock.Now(),
	}
	if c.Results != nil {
		report.Winners = append([]models.Winner(nil), c.Results.Winners...)
	}

	snap.Report = report
	snap.Finalized = true
	snap.UpdatedAt = report.GeneratedAt
	if err := a.repo.SaveAnalytics(ctx, snap); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}
	out := snap.Clone()
	return out.Report, nil
}

// Rebuild recomputes a snapshot from store state. Used after a restart when
// the persisted snapshot is missing.
func (a *AnalyticsAggregator) Rebuild(c *models.Challenge, subs []*models.Submission) {
	snap := newSnapshot(c.ID, c.ArtistID)
	snap.CreatedAt = c.CreatedAt
	for _, p := range c.Participants {
		addProfile(&snap.Demographics, p.Profile)
	}
	for _, s := range subs {
		snap.SubmissionTypes[s.Type]++
	}
	applyRates(snap, c)
	snap.UpdatedAt = a.clock.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.snaps[c.ID]; !exists {
		a.snaps[c.ID] = snap
	}
}

// Load restores persisted snapshots.
func (a *AnalyticsAggregator) Load(ctx context.Context) error {
	snaps, err := a.repo.ListAnalytics(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range snaps {
		s := snaps[i]
		a.snaps[s.ChallengeID] = &s
	}
	return nil
}

// Recommendations derives advisory suggestions from the final tallies.
func Recommendations(c *models.Challenge, submissionTypes map[string]int64) []string {
	participants := float64(len(c.Participants))
	submissions := float64(len(c.SubmissionIDs))

	var recs []string
	if participants < minHealthyParticipants {
		recs = append(recs, RecPromoteWidely)
	}
	if ratio(submissions, participants) < minSubmissionRatio {
		recs = append(recs, RecSimplifyRules)
	}
	if ratio(float64(c.Metrics.TotalVotes), submissions) < minVotesPerSubmission {
		recs = append(recs, RecVotingIncentive)
	}
	if top := topSubmissionType(submissionTypes); top != "" {
		recs = append(recs, fmt.Sprintf(recFocusFormat, top))
	}
	return recs
}

func addProfile(d *models.Demographics, p models.ProfileSummary) {
	if p.Location != "" {
		d.Countries[p.Location]++
	}
	if p.ExperienceLevel != "" {
		d.ExperienceLevels[p.ExperienceLevel]++
	}
	for _, g := range p.Genres {
		d.Genres[g]++
	}
}

// applyRates folds c's counters into the snapshot and recomputes the
// conversion rates. Challenge counters never decrease, so a copy of c taken
// before a concurrent update cannot roll the totals back.
func applyRates(s *models.AnalyticsSnapshot, c *models.Challenge) {
	e := &s.Engagement
	e.Views = max(e.Views, c.Metrics.Views)
	e.Shares = max(e.Shares, c.Metrics.SocialShares)
	e.Participants = max(e.Participants, int64(len(c.Participants)))
	e.Submissions = max(e.Submissions, int64(len(c.SubmissionIDs)))
	s.ConversionRates.ViewToParticipation = ratio(float64(e.Participants), float64(e.Views))
	s.ConversionRates.ParticipationToSubmission = ratio(float64(e.Submissions), float64(e.Participants))
}

// topSubmissionType picks the most frequent type; ties go to the
// alphabetically first so reports are reproducible.
func topSubmissionType(types map[string]int64) string {
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	top, best := "", int64(0)
	for _, k := range keys {
		if types[k] > best {
			top, best = k, types[k]
		}
	}
	return top
}

func durationDays(t models.Timeline) int {
	d := t.EndDate.Sub(t.StartDate).Hours() / 24
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d))
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
