package services

import (
	"sort"

	"community-challenges/models"
)

// CommunityScore is the arithmetic mean of the vote scores, 0 with no votes.
func CommunityScore(votes []models.Vote) float64 {
	if len(votes) == 0 {
		return 0
	}
	var sum float64
	for _, v := range votes {
		sum += v.Score
	}
	return sum / float64(len(votes))
}

// FinalScore computes a submission's score under the challenge's judging config.
// It reads only its inputs and has no side effects.
func FinalScore(sub *models.Submission, judging models.Judging) float64 {
	switch judging.Method {
	case models.JudgingCommunityVote:
		return CommunityScore(sub.Voting.Votes)
	case models.JudgingArtistOnly:
		return artistScore(sub)
	case models.JudgingHybrid:
		community := CommunityScore(sub.Voting.Votes)
		return community*(judging.Weights.Community/100) + artistScore(sub)*(judging.Weights.Artist/100)
	case models.JudgingPanel:
		return panelScore(sub.Voting.PanelScores)
	default:
		return 0
	}
}

func artistScore(sub *models.Submission) float64 {
	if sub.Voting.ArtistScore == nil {
		return 0
	}
	return sub.Voting.ArtistScore.OverallScore
}

func panelScore(scores map[string]models.PanelJudgment) float64 {
	if len(scores) == 0 {
		return 0
	}
	// summed in judge order so the float result is stable
	judges := make([]string, 0, len(scores))
	for id := range scores {
		judges = append(judges, id)
	}
	sort.Strings(judges)
	var sum float64
	for _, id := range judges {
		sum += scores[id].OverallScore
	}
	return sum / float64(len(scores))
}

// rescore refreshes the derived voting fields in place.
func rescore(sub *models.Submission, judging models.Judging) {
	sub.Voting.CommunityVotes = len(sub.Voting.Votes)
	sub.Voting.CommunityScore = CommunityScore(sub.Voting.Votes)
	sub.Voting.FinalScore = FinalScore(sub, judging)
}

// RankSubmissions orders by final score descending; ties keep submission order.
// The input slice is not modified.
func RankSubmissions(subs []*models.Submission) []*models.Submission {
	ranked := make([]*models.Submission, len(subs))
	copy(ranked, subs)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Voting.FinalScore != ranked[j].Voting.FinalScore {
			return ranked[i].Voting.FinalScore > ranked[j].Voting.FinalScore
		}
		return ranked[i].Sequence < ranked[j].Sequence
	})
	return ranked
}
