package services

import (
	"context"
	"errors"
	"testing"

	"community-challenges/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FailedPersistLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	env.repo.setFailSaves(true)
	_, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	require.ErrorIs(t, err, errDiskFull)
	env.repo.setFailSaves(false)

	got, err := env.engine.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
	assert.Zero(t, got.Metrics.Participants)
}

func TestStore_MutationErrorDiscardsWorkingCopy(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "c-1", Title: "x", Status: models.StatusActive}))

	boom := errors.New("boom")
	err := store.Mutate(ctx, "c-1", func(tx *ChallengeTx) error {
		tx.Challenge.Title = "changed"
		tx.AddSubmission(&models.Submission{ID: "s-1", ChallengeID: "c-1", Sequence: 1})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	c, err := store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, "x", c.Title)
	_, err = store.GetSubmission("s-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_StatusNeverMovesBackwards(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "c-1", Status: models.StatusVoting}))

	setStatus := func(to models.ChallengeStatus) error {
		return store.Mutate(ctx, "c-1", func(tx *ChallengeTx) error {
			tx.Challenge.Status = to
			return nil
		})
	}

	assert.ErrorIs(t, setStatus(models.StatusActive), ErrInvalidState)
	assert.ErrorIs(t, setStatus(models.StatusDraft), ErrInvalidState)
	c, err := store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusVoting, c.Status)

	require.NoError(t, setStatus(models.StatusCompleted))
	assert.ErrorIs(t, setStatus(models.StatusCancelled), ErrInvalidState, "terminal states stay put")
}

func TestMovesForward(t *testing.T) {
	tests := []struct {
		from, to models.ChallengeStatus
		want     bool
	}{
		{models.StatusActive, models.StatusActive, true},
		{models.StatusDraft, models.StatusActive, true},
		{models.StatusActive, models.StatusVoting, true},
		{models.StatusVoting, models.StatusSubmissionClosed, false},
		{models.StatusUpcoming, models.StatusCancelled, true},
		{models.StatusCancelled, models.StatusActive, false},
		{models.StatusCompleted, models.StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, movesForward(tt.from, tt.to))
		})
	}
}

func TestStore_InsertRejectsDuplicateID(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "c-1"}))
	assert.ErrorIs(t, store.Insert(ctx, &models.Challenge{ID: "c-1"}), ErrDuplicate)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "c-1", Rules: []string{"be nice"}}))

	c, err := store.Get("c-1")
	require.NoError(t, err)
	c.Rules[0] = "be mean"
	c.Status = models.StatusCancelled

	again, _ := store.Get("c-1")
	assert.Equal(t, "be nice", again.Rules[0])
	assert.NotEqual(t, models.StatusCancelled, again.Status)
}

func TestStore_DueTransitionsOldestFirst(t *testing.T) {
	store := NewStore(NewMemoryRepository())
	ctx := context.Background()
	late := models.PhaseTransition{From: models.StatusActive, To: models.StatusSubmissionClosed, DueAt: t0.Add(-1)}
	early := models.PhaseTransition{From: models.StatusUpcoming, To: models.StatusActive, DueAt: t0.Add(-60)}
	future := models.PhaseTransition{From: models.StatusActive, To: models.StatusSubmissionClosed, DueAt: t0.Add(1)}

	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "late", Status: models.StatusActive, NextTransition: &late}))
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "early", Status: models.StatusUpcoming, NextTransition: &early}))
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "future", Status: models.StatusActive, NextTransition: &future}))
	require.NoError(t, store.Insert(ctx, &models.Challenge{ID: "gone", Status: models.StatusCancelled, NextTransition: &early}))

	due := store.DueTransitions(t0)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].ChallengeID)
	assert.Equal(t, "late", due[1].ChallengeID)
}
