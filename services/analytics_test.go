package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"community-challenges/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func challengeWith(participants, submissions int, votes int64) *models.Challenge {
	c := &models.Challenge{
		ID:       "c-1",
		ArtistID: "artist-1",
		Title:    "Report Me",
		Timeline: models.Timeline{StartDate: t0, EndDate: t0.Add(36 * time.Hour)},
		Metrics:  models.Metrics{TotalVotes: votes},
	}
	for i := 0; i < participants; i++ {
		c.Participants = append(c.Participants, models.Participant{UserID: fmt.Sprintf("u-%d", i)})
	}
	for i := 0; i < submissions; i++ {
		c.SubmissionIDs = append(c.SubmissionIDs, fmt.Sprintf("s-%d", i))
	}
	return c
}

func TestRecommendations(t *testing.T) {
	recs := Recommendations(challengeWith(10, 2, 5), map[string]int64{"audio": 2})
	assert.Equal(t, []string{
		RecPromoteWidely,
		RecSimplifyRules,
		RecVotingIncentive,
		"Focus future challenges on audio content as it's most popular",
	}, recs)

	healthy := Recommendations(challengeWith(60, 40, 800), nil)
	assert.Empty(t, healthy)
}

func TestRecommendations_EmptyChallenge(t *testing.T) {
	recs := Recommendations(challengeWith(0, 0, 0), nil)
	assert.Equal(t, []string{RecPromoteWidely, RecSimplifyRules, RecVotingIncentive}, recs)
}

func TestTopSubmissionType_TiesAreAlphabetical(t *testing.T) {
	assert.Equal(t, "audio", topSubmissionType(map[string]int64{"video": 3, "audio": 3, "text": 1}))
	assert.Equal(t, "", topSubmissionType(nil))
}

func TestGenerateReport_IdempotentAndFreezes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	agg := NewAnalyticsAggregator(NewMemoryRepository(), clock)
	ctx := context.Background()
	c := challengeWith(4, 2, 30)

	_, err := agg.GenerateReport(ctx, c)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = agg.Init(ctx, c)
	require.NoError(t, err)
	agg.RecordSubmission(ctx, c, models.MediaVideo)
	agg.RecordSubmission(ctx, c, models.MediaVideo)

	report, err := agg.GenerateReport(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Summary.DurationDays)
	assert.InDelta(t, 50.0, report.Summary.CompletionRate, 1e-9)
	assert.InDelta(t, 15.0, report.Summary.AvgVotesPerSubmission, 1e-9)
	assert.Equal(t, models.MediaVideo, report.Engagement.MostPopularSubmissionType)

	clock.Advance(time.Hour)
	agg.RecordSubmission(ctx, c, models.MediaAudio)
	again, err := agg.GenerateReport(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, report.GeneratedAt, again.GeneratedAt)

	snap, ok := agg.Get(c.ID)
	require.True(t, ok)
	assert.True(t, snap.Finalized)
	assert.Zero(t, snap.SubmissionTypes[models.MediaAudio], "finalized snapshots ignore updates")
}

func TestRecordView_StaleCopyDoesNotRollBackRates(t *testing.T) {
	agg := NewAnalyticsAggregator(NewMemoryRepository(), clockwork.NewFakeClockAt(t0))
	ctx := context.Background()

	older := challengeWith(1, 1, 0)
	older.Metrics.Views = 2
	newer := challengeWith(2, 1, 0)
	newer.Metrics.Views = 4

	agg.RecordView(ctx, newer)
	agg.RecordView(ctx, older) // applied late

	snap, ok := agg.Get("c-1")
	require.True(t, ok)
	assert.EqualValues(t, 4, snap.Engagement.Views)
	assert.EqualValues(t, 2, snap.Engagement.Participants)
	assert.InDelta(t, 0.5, snap.ConversionRates.ViewToParticipation, 1e-9)
	assert.InDelta(t, 0.5, snap.ConversionRates.ParticipationToSubmission, 1e-9)
}
