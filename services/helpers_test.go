package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"community-challenges/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubArmer struct {
	mu       sync.Mutex
	armed    map[string]models.Challenge
	disarmed []string
}

func newStubArmer() *stubArmer {
	return &stubArmer{armed: map[string]models.Challenge{}}
}

func (s *stubArmer) Arm(c models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed[c.ID] = c
	return nil
}

func (s *stubArmer) Disarm(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.armed, id)
	s.disarmed = append(s.disarmed, id)
}

func (s *stubArmer) isArmed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.armed[id]
	return ok
}

// failingRepo wraps the memory repository and fails writes on demand.
type failingRepo struct {
	*MemoryRepository
	mu        sync.Mutex
	failSaves bool
	failDists bool
}

var errDiskFull = errors.New("disk full")

func (r *failingRepo) SaveAggregate(ctx context.Context, c *models.Challenge, subs []*models.Submission) error {
	r.mu.Lock()
	fail := r.failSaves
	r.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return r.MemoryRepository.SaveAggregate(ctx, c, subs)
}

func (r *failingRepo) SaveDistributions(ctx context.Context, records []models.PrizeDistribution) error {
	r.mu.Lock()
	fail := r.failDists
	r.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return r.MemoryRepository.SaveDistributions(ctx, records)
}

func (r *failingRepo) setFailSaves(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSaves = v
}

type stubGateway struct {
	mu    sync.Mutex
	fail  map[string]bool // user ids whose payouts fail
	calls []string
}

func (g *stubGateway) Pay(_ context.Context, d models.PrizeDistribution) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, d.ID)
	if g.fail[d.UserID] {
		return errors.New("payout rejected")
	}
	return nil
}

func (g *stubGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type testEnv struct {
	engine  *Engine
	clock   *clockwork.FakeClock
	repo    *failingRepo
	store   *Store
	events  *RecordingPublisher
	armer   *stubArmer
	gateway *stubGateway
	prizes  *PrizeDistributor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	repo := &failingRepo{MemoryRepository: NewMemoryRepository()}
	events := &RecordingPublisher{}
	armer := newStubArmer()
	gateway := &stubGateway{fail: map[string]bool{}}
	store := NewStore(repo)
	prizes := NewPrizeDistributor(repo, gateway, events, clock)
	engine := NewEngine(EngineDeps{
		Store:     store,
		Analytics: NewAnalyticsAggregator(repo, clock),
		Prizes:    prizes,
		Scheduler: armer,
		Events:    events,
		Profiles:  repo,
		Clock:     clock,
	})
	return &testEnv{
		engine:  engine,
		clock:   clock,
		repo:    repo,
		store:   store,
		events:  events,
		armer:   armer,
		gateway: gateway,
		prizes:  prizes,
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

// openInput starts an hour before t0, closes submissions a day after it and
// opens voting two days after it.
func openInput(method models.JudgingMethod) ChallengeInput {
	return ChallengeInput{
		Title:              "Cover This Song",
		Type:               models.ChallengeTypeMusicCreation,
		StartDate:          t0.Add(-time.Hour),
		EndDate:            t0.Add(72 * time.Hour),
		SubmissionDeadline: ptrTime(t0.Add(24 * time.Hour)),
		VotingStartDate:    ptrTime(t0.Add(48 * time.Hour)),
		JudgingMethod:      method,
	}
}

func audioEntry(title string) SubmissionInput {
	return SubmissionInput{
		Title:    title,
		Type:     models.MediaAudio,
		Files:    []string{"media://" + title},
		Metadata: models.SubmissionMetadata{Duration: 120, FileSizeMB: 8},
	}
}

// activeChallenge creates and launches an already-open challenge.
func (env *testEnv) activeChallenge(t *testing.T, in ChallengeInput) *models.Challenge {
	t.Helper()
	ctx := context.Background()
	c, err := env.engine.CreateChallenge(ctx, "artist-1", in)
	require.NoError(t, err)
	c, err = env.engine.LaunchChallenge(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusActive, c.Status)
	return c
}

// enter joins userID and submits one audio entry.
func (env *testEnv) enter(t *testing.T, challengeID, userID string) *models.Submission {
	t.Helper()
	ctx := context.Background()
	_, err := env.engine.JoinChallenge(ctx, challengeID, userID, models.Profile{Username: userID})
	require.NoError(t, err)
	sub, err := env.engine.SubmitEntry(ctx, challengeID, userID, audioEntry("entry by "+userID))
	require.NoError(t, err)
	return sub
}

// closeSubmissions moves an active challenge to submission_closed.
func (env *testEnv) closeSubmissions(t *testing.T, challengeID string) {
	t.Helper()
	require.NoError(t, env.engine.ApplyTransition(context.Background(), challengeID, models.StatusActive, models.StatusSubmissionClosed))
}
