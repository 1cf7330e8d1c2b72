package services

import (
	"context"
	"testing"
	"time"

	"community-challenges/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChallenge_Defaults(t *testing.T) {
	env := newTestEnv(t)
	in := openInput("")
	in.SubmissionDeadline = nil
	in.VotingStartDate = nil

	c, err := env.engine.CreateChallenge(context.Background(), "artist-1", in)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, c.Status)
	assert.Equal(t, "artist-1", c.ArtistID)
	assert.Contains(t, c.Slug, "cover-this-song-")
	assert.Equal(t, models.JudgingHybrid, c.Judging.Method)
	assert.Equal(t, models.Weights{Community: 50, Artist: 50}, c.Judging.Weights)
	assert.Equal(t, in.EndDate, c.Timeline.SubmissionDeadline)
	assert.Equal(t, in.EndDate.Add(3*24*time.Hour), c.Timeline.VotingEndDate)
	assert.Equal(t, in.EndDate.Add(5*24*time.Hour), c.Timeline.AnnouncementDate)
	assert.Equal(t, models.EligibilityAll, c.Requirements.Eligibility)
	assert.Equal(t, float64(100), c.Requirements.MaxFileSizeMB)
	assert.Equal(t, float64(1750), c.TotalPrizePool)
	assert.Nil(t, c.NextTransition)

	_, ok := env.engine.analytics.Get(c.ID)
	assert.True(t, ok, "analytics snapshot is initialised on create")
	assert.Equal(t, []string{EventChallengeCreated}, env.events.Types())
}

func TestCreateChallenge_RequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.CreateChallenge(context.Background(), "", openInput(models.JudgingHybrid))
	assert.ErrorIs(t, err, ErrAuthorization)
}

func TestLaunchChallenge_PastStartGoesActive(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	require.NotNil(t, c.NextTransition)
	assert.Equal(t, models.StatusActive, c.NextTransition.From)
	assert.Equal(t, models.StatusSubmissionClosed, c.NextTransition.To)
	assert.Equal(t, t0.Add(24*time.Hour), c.NextTransition.DueAt)
	require.NotNil(t, c.LaunchedAt)
	assert.True(t, env.armer.isArmed(c.ID))
	assert.Equal(t, []string{EventChallengeCreated, EventChallengeLaunched, EventChallengeActivated}, env.events.Types())
}

func TestLaunchChallenge_FutureStartGoesUpcoming(t *testing.T) {
	env := newTestEnv(t)
	in := openInput(models.JudgingHybrid)
	in.StartDate = t0.Add(time.Hour)

	c, err := env.engine.CreateChallenge(context.Background(), "artist-1", in)
	require.NoError(t, err)
	c, err = env.engine.LaunchChallenge(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusUpcoming, c.Status)
	require.NotNil(t, c.NextTransition)
	assert.Equal(t, models.PhaseTransition{From: models.StatusUpcoming, To: models.StatusActive, DueAt: in.StartDate}, *c.NextTransition)
}

func TestLaunchChallenge_CatchesUpOverduePhases(t *testing.T) {
	env := newTestEnv(t)
	in := ChallengeInput{
		Title:         "Late Launch",
		StartDate:     t0.Add(-72 * time.Hour),
		EndDate:       t0.Add(-time.Hour),
		JudgingMethod: models.JudgingHybrid,
	}
	c, err := env.engine.CreateChallenge(context.Background(), "artist-1", in)
	require.NoError(t, err)

	c, err = env.engine.LaunchChallenge(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusVoting, c.Status)
	assert.Nil(t, c.NextTransition)
	assert.Subset(t, env.events.Types(), []string{EventChallengeActivated, EventSubmissionPeriodEnded, EventVotingStarted})
}

func TestLaunchChallenge_ArtistOnlySkipsVoting(t *testing.T) {
	env := newTestEnv(t)
	in := ChallengeInput{
		Title:         "Judged By Me",
		StartDate:     t0.Add(-72 * time.Hour),
		EndDate:       t0.Add(-time.Hour),
		JudgingMethod: models.JudgingArtistOnly,
	}
	c, err := env.engine.CreateChallenge(context.Background(), "artist-1", in)
	require.NoError(t, err)

	c, err = env.engine.LaunchChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmissionClosed, c.Status)
	assert.Nil(t, c.NextTransition)
}

func TestLaunchChallenge_RejectsRelaunch(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	_, err := env.engine.LaunchChallenge(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.engine.LaunchChallenge(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyTransition_StaleDeliveryIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	require.NoError(t, env.engine.ApplyTransition(ctx, c.ID, models.StatusUpcoming, models.StatusActive))
	got, err := env.engine.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)

	env.closeSubmissions(t, c.ID)
	require.NoError(t, env.engine.ApplyTransition(ctx, c.ID, models.StatusActive, models.StatusSubmissionClosed))

	got, err = env.engine.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmissionClosed, got.Status)
	require.NotNil(t, got.NextTransition)
	assert.Equal(t, models.StatusVoting, got.NextTransition.To)
}

func TestApplyTransition_RejectsIllegalMove(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	err := env.engine.ApplyTransition(context.Background(), c.ID, models.StatusActive, models.StatusVoting)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, _ := env.engine.GetChallenge(context.Background(), c.ID)
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestApplyTransition_IgnoredAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	_, err := env.engine.CancelChallenge(ctx, c.ID, "artist-1", "changed plans")
	require.NoError(t, err)

	require.NoError(t, env.engine.ApplyTransition(ctx, c.ID, models.StatusActive, models.StatusSubmissionClosed))
	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestJoinChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	p, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{
		Username: "alice",
		Location: "DE",
		Genres:   []string{"pop"},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, t0, p.JoinedAt)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Len(t, got.Participants, 1)
	assert.EqualValues(t, 1, got.Metrics.Participants)

	snap, ok := env.engine.analytics.Get(c.ID)
	require.True(t, ok)
	assert.EqualValues(t, 1, snap.Demographics.Countries["DE"])
	assert.EqualValues(t, 1, snap.Demographics.Genres["pop"])
}

func TestJoinChallenge_DuplicateLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	_, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	require.NoError(t, err)
	_, err = env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Len(t, got.Participants, 1)
	assert.EqualValues(t, 1, got.Metrics.Participants)
}

func TestJoinChallenge_Full(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := openInput(models.JudgingHybrid)
	in.MaxParticipants = 1
	c := env.activeChallenge(t, in)

	_, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	require.NoError(t, err)
	_, err = env.engine.JoinChallenge(ctx, c.ID, "user-b", models.Profile{})
	assert.ErrorIs(t, err, ErrChallengeFull)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Len(t, got.Participants, 1)
}

func TestJoinChallenge_VerifiedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := openInput(models.JudgingHybrid)
	in.Eligibility = models.EligibilityVerifiedArtists
	c := env.activeChallenge(t, in)

	_, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{Verified: false})
	assert.ErrorIs(t, err, ErrEligibility)

	_, err = env.engine.JoinChallenge(ctx, c.ID, "user-b", models.Profile{Verified: true})
	assert.NoError(t, err)
}

func TestJoinChallenge_NotActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c, err := env.engine.CreateChallenge(ctx, "artist-1", openInput(models.JudgingHybrid))
	require.NoError(t, err)

	_, err = env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestResolveProfile_PrefersMirror(t *testing.T) {
	env := newTestEnv(t)
	env.repo.PutProfile(models.ProfileMirror{
		ExternalUserID:   "user-m",
		Username:         "mirrored",
		Verified:         true,
		SubscriptionType: "pro",
	})

	p := env.engine.ResolveProfile(context.Background(), "user-m", models.Profile{Username: "claimed"})
	assert.Equal(t, "mirrored", p.Username)
	assert.True(t, p.Verified)
	assert.Equal(t, "user-m", p.UserID)

	p = env.engine.ResolveProfile(context.Background(), "user-x", models.Profile{Username: "claimed"})
	assert.Equal(t, "claimed", p.Username)
	assert.Equal(t, "user-x", p.UserID)
}

func TestSubmitEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	first := env.enter(t, c.ID, "user-a")
	second := env.enter(t, c.ID, "user-b")
	assert.Equal(t, 1, first.Sequence)
	assert.Equal(t, 2, second.Sequence)
	assert.Equal(t, models.SubmissionSubmitted, first.Status)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Equal(t, []string{first.ID, second.ID}, got.SubmissionIDs)
	assert.Equal(t, []string{first.ID}, got.Participant("user-a").SubmissionIDs)

	sub, err := env.engine.GetSubmission(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, sub.ChallengeID)
}

func TestSubmitEntry_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := openInput(models.JudgingHybrid)
	in.SubmissionTypes = []string{models.MediaAudio}
	in.MaxFileSizeMB = 10
	c := env.activeChallenge(t, in)

	_, err := env.engine.SubmitEntry(ctx, c.ID, "stranger", audioEntry("x"))
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	require.NoError(t, err)

	video := audioEntry("clip")
	video.Type = models.MediaVideo
	_, err = env.engine.SubmitEntry(ctx, c.ID, "user-a", video)
	assert.ErrorIs(t, err, ErrValidation)

	big := audioEntry("big")
	big.Metadata.FileSizeMB = 11
	_, err = env.engine.SubmitEntry(ctx, c.ID, "user-a", big)
	assert.ErrorIs(t, err, ErrValidation)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Empty(t, got.SubmissionIDs)

	env.closeSubmissions(t, c.ID)
	_, err = env.engine.SubmitEntry(ctx, c.ID, "user-a", audioEntry("late"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestVoteOnSubmission_Hybrid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))
	sub := env.enter(t, c.ID, "user-a")

	_, err := env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 8})
	assert.ErrorIs(t, err, ErrInvalidState, "no votes while submissions are open")

	env.closeSubmissions(t, c.ID)

	_, err = env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "user-a", VoteInput{Score: 8})
	assert.ErrorIs(t, err, ErrSelfVote)

	_, err = env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 11})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.engine.VoteOnSubmission(ctx, c.ID, "missing", "fan-1", VoteInput{Score: 8})
	assert.ErrorIs(t, err, ErrNotFound)

	vote, err := env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 8})
	require.NoError(t, err)
	assert.Equal(t, float64(8), vote.Score)

	_, err = env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 3})
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := env.engine.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Voting.CommunityVotes)
	assert.Equal(t, float64(8), got.Voting.CommunityScore)
	assert.Equal(t, float64(4), got.Voting.FinalScore)

	challenge, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.EqualValues(t, 1, challenge.Metrics.TotalVotes)
}

func TestVoteOnSubmission_CommunityWaitsForVoting(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingCommunityVote))
	sub := env.enter(t, c.ID, "user-a")
	env.closeSubmissions(t, c.ID)

	_, err := env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 5})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, env.engine.ApplyTransition(ctx, c.ID, models.StatusSubmissionClosed, models.StatusVoting))
	_, err = env.engine.VoteOnSubmission(ctx, c.ID, sub.ID, "fan-1", VoteInput{Score: 5})
	assert.NoError(t, err)
}

func TestVoteOnSubmission_ArtistOnlyRejectsVotes(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	sub := env.enter(t, c.ID, "user-a")
	env.closeSubmissions(t, c.ID)

	_, err := env.engine.VoteOnSubmission(context.Background(), c.ID, sub.ID, "fan-1", VoteInput{Score: 5})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestArtistJudgeSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	sub := env.enter(t, c.ID, "user-a")

	_, err := env.engine.ArtistJudgeSubmission(ctx, c.ID, sub.ID, "user-a", JudgmentInput{OverallScore: 9})
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = env.engine.ArtistJudgeSubmission(ctx, c.ID, sub.ID, "artist-1", JudgmentInput{OverallScore: 12})
	assert.ErrorIs(t, err, ErrValidation)

	judged, err := env.engine.ArtistJudgeSubmission(ctx, c.ID, sub.ID, "artist-1", JudgmentInput{OverallScore: 9, Highlight: true})
	require.NoError(t, err)
	require.NotNil(t, judged.Voting.ArtistScore)
	assert.True(t, judged.Voting.ArtistScore.Highlight)
	assert.Equal(t, float64(9), judged.Voting.FinalScore)
}

func TestPanelJudgeSubmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := openInput(models.JudgingPanel)
	in.PanelJudges = []string{"judge-1", "judge-2"}
	c := env.activeChallenge(t, in)
	sub := env.enter(t, c.ID, "user-a")

	_, err := env.engine.PanelJudgeSubmission(ctx, c.ID, sub.ID, "artist-1", JudgmentInput{OverallScore: 5})
	assert.ErrorIs(t, err, ErrAuthorization)

	_, err = env.engine.PanelJudgeSubmission(ctx, c.ID, sub.ID, "judge-1", JudgmentInput{OverallScore: 8})
	require.NoError(t, err)
	judged, err := env.engine.PanelJudgeSubmission(ctx, c.ID, sub.ID, "judge-2", JudgmentInput{OverallScore: 6})
	require.NoError(t, err)

	assert.Len(t, judged.Voting.PanelScores, 2)
	assert.Equal(t, float64(7), judged.Voting.FinalScore)
}

func TestPanelJudgeSubmission_WrongMethod(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))
	sub := env.enter(t, c.ID, "user-a")

	_, err := env.engine.PanelJudgeSubmission(context.Background(), c.ID, sub.ID, "judge-1", JudgmentInput{OverallScore: 5})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteChallenge_RanksAndRecordsWinners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	subs := []*models.Submission{
		env.enter(t, c.ID, "user-a"),
		env.enter(t, c.ID, "user-b"),
		env.enter(t, c.ID, "user-c"),
		env.enter(t, c.ID, "user-d"),
	}
	env.closeSubmissions(t, c.ID)
	for i, score := range []float64{6, 9, 9, 3} {
		_, err := env.engine.VoteOnSubmission(ctx, c.ID, subs[i].ID, "fan-1", VoteInput{Score: score})
		require.NoError(t, err)
	}

	done, err := env.engine.CompleteChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.Results)
	require.Len(t, done.Results.Winners, 3)

	// equal scores keep submission order
	assert.Equal(t, subs[1].ID, done.Results.Winners[0].SubmissionID)
	assert.Equal(t, subs[2].ID, done.Results.Winners[1].SubmissionID)
	assert.Equal(t, subs[0].ID, done.Results.Winners[2].SubmissionID)
	for i, w := range done.Results.Winners {
		assert.Equal(t, i+1, w.Position)
	}
	_, ok := done.Results.Winner(4)
	assert.False(t, ok)
	assert.Equal(t, 4, done.Results.TotalSubmissions)
	assert.EqualValues(t, 4, done.Results.TotalVotes)

	assert.Contains(t, env.armer.disarmed, c.ID)
	assert.Contains(t, env.events.Types(), EventChallengeCompleted)
	assert.Contains(t, env.events.Types(), EventReportGenerated)

	records, err := env.engine.GetPrizeDistributions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	amounts := map[string]float64{}
	for _, r := range records {
		assert.Equal(t, models.DistributionPending, r.Status)
		amounts[r.Position] = r.Prize.Amount
	}
	assert.Equal(t, map[string]float64{"1": 1000, "2": 500, "3": 250}, amounts)

	report, err := env.engine.GetReport(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Summary.TotalSubmissions)
	assert.Len(t, report.Winners, 3)

	_, err = env.engine.CompleteChallenge(ctx, c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteChallenge_FewerEntriesThanPlaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	env.enter(t, c.ID, "user-a")
	env.enter(t, c.ID, "user-b")
	env.closeSubmissions(t, c.ID)

	done, err := env.engine.CompleteChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, done.Results.Winners, 2)
	_, ok := done.Results.Winner(3)
	assert.False(t, ok)

	records, err := env.engine.GetPrizeDistributions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCompleteChallenge_NoEntries(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))
	env.closeSubmissions(t, c.ID)

	done, err := env.engine.CompleteChallenge(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, done.Results.Winners)
}

func TestCompleteChallenge_TooEarly(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	_, err := env.engine.CompleteChallenge(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteChallenge_PrizeRecordingFailureStillCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	env.enter(t, c.ID, "user-a")
	env.closeSubmissions(t, c.ID)

	env.repo.mu.Lock()
	env.repo.failDists = true
	env.repo.mu.Unlock()

	done, err := env.engine.CompleteChallenge(ctx, c.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDiskFull)
	require.NotNil(t, done)
	assert.Equal(t, models.StatusCompleted, done.Status)

	got, _ := env.engine.GetChallenge(ctx, c.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

func TestRecordPrizes_AfterFailedCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	env.enter(t, c.ID, "user-a")
	env.enter(t, c.ID, "user-b")
	env.closeSubmissions(t, c.ID)

	env.repo.mu.Lock()
	env.repo.failDists = true
	env.repo.mu.Unlock()
	_, err := env.engine.CompleteChallenge(ctx, c.ID)
	require.ErrorIs(t, err, errDiskFull)

	_, err = env.engine.RecordPrizes(ctx, c.ID)
	require.ErrorIs(t, err, errDiskFull)

	env.repo.mu.Lock()
	env.repo.failDists = false
	env.repo.mu.Unlock()
	records, err := env.engine.RecordPrizes(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	again, err := env.engine.RecordPrizes(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, records, again)
}

func TestRecordPrizes_RequiresCompleted(t *testing.T) {
	env := newTestEnv(t)
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	_, err := env.engine.RecordPrizes(context.Background(), c.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRestore_RecordsMissingPrizes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	env.enter(t, c.ID, "user-a")
	env.closeSubmissions(t, c.ID)

	env.repo.mu.Lock()
	env.repo.failDists = true
	env.repo.mu.Unlock()
	_, err := env.engine.CompleteChallenge(ctx, c.ID)
	require.ErrorIs(t, err, errDiskFull)
	none, err := env.prizes.List(ctx, c.ID)
	require.NoError(t, err)
	require.Empty(t, none)

	// restart against the now healthy repository
	env.repo.mu.Lock()
	env.repo.failDists = false
	env.repo.mu.Unlock()
	restored := NewEngine(EngineDeps{
		Store:     NewStore(env.repo),
		Analytics: NewAnalyticsAggregator(env.repo, env.clock),
		Prizes:    NewPrizeDistributor(env.repo, env.gateway, env.events, env.clock),
		Clock:     env.clock,
	})
	require.NoError(t, restored.Restore(ctx))

	records, err := restored.GetPrizeDistributions(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "user-a", records[0].UserID)
	assert.Equal(t, models.DistributionPending, records[0].Status)

	// a second restart does not duplicate them
	require.NoError(t, restored.Restore(ctx))
	records, err = restored.GetPrizeDistributions(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCompleteChallenge_ParticipationRewards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := openInput(models.JudgingArtistOnly)
	in.Prizes = &models.Prizes{
		Tiers:               []models.Prize{{Type: models.PrizeTypeCash, Amount: 100, Currency: "USD"}},
		ParticipationReward: &models.Prize{Type: models.PrizeTypeCredit, Amount: 5},
	}
	c := env.activeChallenge(t, in)
	env.enter(t, c.ID, "user-a")
	env.enter(t, c.ID, "user-b")
	_, err := env.engine.JoinChallenge(ctx, c.ID, "lurker", models.Profile{})
	require.NoError(t, err)
	env.closeSubmissions(t, c.ID)

	_, err = env.engine.CompleteChallenge(ctx, c.ID)
	require.NoError(t, err)

	records, err := env.engine.GetPrizeDistributions(ctx, c.ID)
	require.NoError(t, err)
	var placed, rewarded int
	for _, r := range records {
		if r.Position == models.PositionParticipant {
			rewarded++
			assert.NotEqual(t, "lurker", r.UserID)
		} else {
			placed++
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 2, rewarded)
}

func TestCancelChallenge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	_, err := env.engine.CancelChallenge(ctx, c.ID, "user-a", "nope")
	assert.ErrorIs(t, err, ErrAuthorization)

	cancelled, err := env.engine.CancelChallenge(ctx, c.ID, "artist-1", "licensing issue")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "licensing issue", cancelled.CancelReason)
	assert.Nil(t, cancelled.NextTransition)
	assert.False(t, env.armer.isArmed(c.ID))

	_, err = env.engine.CancelChallenge(ctx, c.ID, "artist-1", "again")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetActiveChallenges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	later := openInput(models.JudgingHybrid)
	later.Title = "Later"
	later.StartDate = t0.Add(-30 * time.Minute)
	first := env.activeChallenge(t, openInput(models.JudgingHybrid))
	second := env.activeChallenge(t, later)

	other, err := env.engine.CreateChallenge(ctx, "artist-2", openInput(models.JudgingHybrid))
	require.NoError(t, err)
	_, err = env.engine.LaunchChallenge(ctx, other.ID)
	require.NoError(t, err)

	_, err = env.engine.CreateChallenge(ctx, "artist-1", openInput(models.JudgingHybrid))
	require.NoError(t, err)

	mine := env.engine.GetActiveChallenges(ctx, "artist-1")
	require.Len(t, mine, 2)
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, second.ID, mine[1].ID)

	assert.Len(t, env.engine.GetActiveChallenges(ctx, ""), 3)
}

func TestGetLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingArtistOnly))
	a := env.enter(t, c.ID, "user-a")
	b := env.enter(t, c.ID, "user-b")

	_, err := env.engine.ArtistJudgeSubmission(ctx, c.ID, b.ID, "artist-1", JudgmentInput{OverallScore: 7})
	require.NoError(t, err)

	board, err := env.engine.GetLeaderboard(ctx, c.ID, 1)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, b.ID, board[0].SubmissionID)
	assert.Equal(t, 1, board[0].Rank)

	board, err = env.engine.GetLeaderboard(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, a.ID, board[1].SubmissionID)
}

func TestRecordView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))

	for i := 0; i < 4; i++ {
		_, err := env.engine.RecordView(ctx, c.ID)
		require.NoError(t, err)
	}
	_, err := env.engine.JoinChallenge(ctx, c.ID, "user-a", models.Profile{})
	require.NoError(t, err)

	out, err := env.engine.GetChallengeAnalytics(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, out.Metrics.Views)
	assert.EqualValues(t, 4, out.Analytics.Engagement.Views)
	assert.InDelta(t, 0.25, out.Analytics.ConversionRates.ViewToParticipation, 1e-9)
}

func TestCreateFromTemplate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.engine.CreateFromTemplate(ctx, "artist-1", "remix_contest", ChallengeInput{})
	require.NoError(t, err)
	assert.Equal(t, "Remix Contest", c.Title)
	assert.Equal(t, "remix_contest", c.TemplateID)
	assert.Equal(t, models.ChallengeTypeMusicProduction, c.Type)
	assert.Equal(t, 200, c.MaxParticipants)
	assert.Equal(t, []string{models.MediaAudio}, c.Requirements.SubmissionTypes)
	assert.Equal(t, t0, c.Timeline.StartDate)
	assert.Equal(t, t0.AddDate(0, 0, 21), c.Timeline.EndDate)

	c, err = env.engine.CreateFromTemplate(ctx, "artist-1", "lyrics_writing", ChallengeInput{Title: "Write To This"})
	require.NoError(t, err)
	assert.Equal(t, "Write To This", c.Title)
	assert.Equal(t, []string{"lyrical_content", "flow", "theme_relevance", "emotional_impact"}, c.Judging.Criteria)

	_, err = env.engine.CreateFromTemplate(ctx, "artist-1", "karaoke", ChallengeInput{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_RebuildsFromRepository(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	c := env.activeChallenge(t, openInput(models.JudgingHybrid))
	sub := env.enter(t, c.ID, "user-a")

	restored := NewEngine(EngineDeps{
		Store:     NewStore(env.repo),
		Analytics: NewAnalyticsAggregator(env.repo, env.clock),
		Prizes:    env.prizes,
		Clock:     env.clock,
	})
	require.NoError(t, restored.Restore(ctx))

	got, err := restored.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	require.NotNil(t, got.NextTransition)

	s, err := restored.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Sequence)

	snap, ok := restored.analytics.Get(c.ID)
	require.True(t, ok)
	assert.EqualValues(t, 1, snap.SubmissionTypes[models.MediaAudio])
}
