package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"community-challenges/models"
)

// Store is the authoritative record of challenges and their submissions.
// Each challenge has its own lock; the store lock guards only the maps.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*challengeEntry
	subIndex map[string]string // submission id -> challenge id
	repo     Repository
}

type challengeEntry struct {
	mu          sync.Mutex
	challenge   *models.Challenge
	submissions map[string]*models.Submission
}

func NewStore(repo Repository) *Store {
	return &Store{
		entries:  make(map[string]*challengeEntry),
		subIndex: make(map[string]string),
		repo:     repo,
	}
}

// ChallengeTx is the working copy handed to a mutation. Changes become
// visible only if the mutation returns nil and persistence succeeds.
type ChallengeTx struct {
	Challenge *models.Challenge
	committed map[string]*models.Submission
	dirty     map[string]*models.Submission
	added     []string
}

// Submission returns a writable copy of the submission, or nil.
func (tx *ChallengeTx) Submission(id string) *models.Submission {
	if s, ok := tx.dirty[id]; ok {
		return s
	}
	s, ok := tx.committed[id]
	if !ok {
		return nil
	}
	c := s.Clone()
	tx.dirty[id] = c
	return c
}

// AddSubmission stages a new submission.
func (tx *ChallengeTx) AddSubmission(s *models.Submission) {
	tx.dirty[s.ID] = s
	tx.added = append(tx.added, s.ID)
}

// SubmissionCount includes staged submissions.
func (tx *ChallengeTx) SubmissionCount() int {
	return len(tx.committed) + len(tx.added)
}

// Submissions returns writable copies of every submission in arrival order.
func (tx *ChallengeTx) Submissions() []*models.Submission {
	out := make([]*models.Submission, 0, tx.SubmissionCount())
	for id := range tx.committed {
		out = append(out, tx.Submission(id))
	}
	for _, id := range tx.added {
		out = append(out, tx.dirty[id])
	}
	sortBySequence(out)
	return out
}

// Insert registers a new challenge. It fails if the id is taken.
func (s *Store) Insert(ctx context.Context, c *models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[c.ID]; exists {
		return newErr(ErrDuplicate, "insert", "challenge %s already exists", c.ID)
	}
	if err := s.repo.SaveAggregate(ctx, c, nil); err != nil {
		return fmt.Errorf("persist challenge: %w", err)
	}
	s.entries[c.ID] = &challengeEntry{
		challenge:   c.Clone(),
		submissions: make(map[string]*models.Submission),
	}
	return nil
}

func (s *Store) entry(id string) (*challengeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

// Mutate runs fn against a copy of the challenge under its lock, persists the
// result and then commits it. Any error leaves the stored state untouched.
func (s *Store) Mutate(ctx context.Context, id string, fn func(tx *ChallengeTx) error) error {
	e, ok := s.entry(id)
	if !ok {
		return notFound("mutate", "challenge", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &ChallengeTx{
		Challenge: e.challenge.Clone(),
		committed: e.submissions,
		dirty:     make(map[string]*models.Submission),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if from, to := e.challenge.Status, tx.Challenge.Status; !movesForward(from, to) {
		return newErr(ErrInvalidState, "mutate", "challenge %s cannot move from %s to %s", id, from, to)
	}

	dirty := make([]*models.Submission, 0, len(tx.dirty))
	for _, sub := range tx.dirty {
		dirty = append(dirty, sub)
	}
	sortBySequence(dirty)
	if err := s.repo.SaveAggregate(ctx, tx.Challenge, dirty); err != nil {
		return fmt.Errorf("persist challenge %s: %w", id, err)
	}

	e.challenge = tx.Challenge
	for subID, sub := range tx.dirty {
		e.submissions[subID] = sub
	}
	if len(tx.added) > 0 {
		s.mu.Lock()
		for _, subID := range tx.added {
			s.subIndex[subID] = id
		}
		s.mu.Unlock()
	}
	return nil
}

// movesForward allows a status to stay put, advance (possibly over several
// phases in one catch-up) or be cancelled while not yet terminal.
func movesForward(from, to models.ChallengeStatus) bool {
	switch {
	case from == to:
		return true
	case from.IsTerminal():
		return false
	case to == models.StatusCancelled:
		return true
	default:
		return from.Precedes(to)
	}
}

// Get returns a copy of the challenge.
func (s *Store) Get(id string) (*models.Challenge, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, notFound("get", "challenge", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.challenge.Clone(), nil
}

// Snapshot returns copies of the challenge and its submissions taken under one lock.
func (s *Store) Snapshot(id string) (*models.Challenge, []*models.Submission, error) {
	e, ok := s.entry(id)
	if !ok {
		return nil, nil, notFound("snapshot", "challenge", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	subs := make([]*models.Submission, 0, len(e.submissions))
	for _, sub := range e.submissions {
		subs = append(subs, sub.Clone())
	}
	sortBySequence(subs)
	return e.challenge.Clone(), subs, nil
}

// GetSubmission looks a submission up by id across all challenges.
func (s *Store) GetSubmission(id string) (*models.Submission, error) {
	s.mu.RLock()
	challengeID, ok := s.subIndex[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound("get", "submission", id)
	}
	e, ok := s.entry(challengeID)
	if !ok {
		return nil, notFound("get", "submission", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.submissions[id]
	if !ok {
		return nil, notFound("get", "submission", id)
	}
	return sub.Clone(), nil
}

// List returns copies of every challenge matching keep (nil keeps all).
func (s *Store) List(keep func(c *models.Challenge) bool) []*models.Challenge {
	s.mu.RLock()
	entries := make([]*challengeEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*models.Challenge
	for _, e := range entries {
		e.mu.Lock()
		if keep == nil || keep(e.challenge) {
			out = append(out, e.challenge.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// DueTransition is a persisted transition whose time has come.
type DueTransition struct {
	ChallengeID string
	models.PhaseTransition
}

// DueTransitions lists challenges whose NextTransition is due at or before now,
// oldest first.
func (s *Store) DueTransitions(now time.Time) []DueTransition {
	var due []DueTransition
	for _, c := range s.List(func(c *models.Challenge) bool {
		return c.NextTransition != nil && !c.Status.IsTerminal() && !c.NextTransition.DueAt.After(now)
	}) {
		due = append(due, DueTransition{ChallengeID: c.ID, PhaseTransition: *c.NextTransition})
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	return due
}

// Load hydrates the store from the repository. Call once before serving.
func (s *Store) Load(ctx context.Context) error {
	challenges, err := s.repo.ListChallenges(ctx)
	if err != nil {
		return err
	}
	subs, err := s.repo.ListSubmissions(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range challenges {
		c := challenges[i]
		s.entries[c.ID] = &challengeEntry{
			challenge:   &c,
			submissions: make(map[string]*models.Submission),
		}
	}
	for i := range subs {
		sub := subs[i]
		e, ok := s.entries[sub.ChallengeID]
		if !ok {
			continue
		}
		e.submissions[sub.ID] = &sub
		s.subIndex[sub.ID] = sub.ChallengeID
	}
	return nil
}

func sortBySequence(subs []*models.Submission) {
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].Sequence < subs[j].Sequence })
}
