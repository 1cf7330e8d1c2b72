package models

import "time"

// SubmissionStatus is the review state of an entry
type SubmissionStatus string

const (
	SubmissionSubmitted   SubmissionStatus = "submitted"
	SubmissionUnderReview SubmissionStatus = "under_review"
	SubmissionApproved    SubmissionStatus = "approved"
	SubmissionRejected    SubmissionStatus = "rejected"
)

// Submission is one entry into a challenge
type Submission struct {
	ID          string             `json:"id" gorm:"primaryKey"`
	ChallengeID string             `json:"challenge_id" gorm:"index;not null"`
	UserID      string             `json:"user_id" gorm:"index;not null"`
	Sequence    int                `json:"sequence"` // arrival order within the challenge, used for tie-breaks
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Type        string             `json:"type"`
	Files       []string           `json:"files" gorm:"serializer:json;type:text"` // opaque refs from the media service
	Metadata    SubmissionMetadata `json:"metadata" gorm:"serializer:json;type:text"`
	SocialLinks []string           `json:"social_links" gorm:"serializer:json;type:text"`
	Tags        []string           `json:"tags" gorm:"serializer:json;type:text"`
	Status      SubmissionStatus   `json:"status" gorm:"default:'submitted'"`
	Voting      VotingState        `json:"voting" gorm:"serializer:json;type:text"`
	Engagement  Engagement         `json:"engagement" gorm:"serializer:json;type:text"`
	SubmittedAt time.Time          `json:"submitted_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

type SubmissionMetadata struct {
	Duration      float64 `json:"duration,omitempty"`  // seconds
	FileSizeMB    float64 `json:"file_size_mb,omitempty"`
	Format        string  `json:"format,omitempty"`
	OriginalTrack string  `json:"original_track,omitempty"`
	Genre         string  `json:"genre,omitempty"`
	BPM           int     `json:"bpm,omitempty"`
	Key           string  `json:"key,omitempty"`
}

type VotingState struct {
	Votes          []Vote                   `json:"votes"`
	CommunityVotes int                      `json:"community_votes"`
	CommunityScore float64                  `json:"community_score"`
	ArtistScore    *ArtistJudgment          `json:"artist_score,omitempty"`
	PanelScores    map[string]PanelJudgment `json:"panel_scores"`
	FinalScore     float64                  `json:"final_score"`
}

type Engagement struct {
	Views     int64 `json:"views"`
	Likes     int64 `json:"likes"`
	Comments  int64 `json:"comments"`
	Shares    int64 `json:"shares"`
	Downloads int64 `json:"downloads"`
}

// Vote is a community member's score for a submission
type Vote struct {
	ID       string             `json:"id"`
	VoterID  string             `json:"voter_id"`
	Score    float64            `json:"score"` // 1-10
	Criteria map[string]float64 `json:"criteria,omitempty"`
	Comment  string             `json:"comment,omitempty"`
	VotedAt  time.Time          `json:"voted_at"`
}

// ArtistJudgment is the challenge owner's verdict on a submission
type ArtistJudgment struct {
	OverallScore   float64            `json:"overall_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	Feedback       string             `json:"feedback,omitempty"`
	Highlight      bool               `json:"highlight"`
	JudgedAt       time.Time          `json:"judged_at"`
}

// PanelJudgment is one named panel judge's verdict
type PanelJudgment struct {
	JudgeID        string             `json:"judge_id"`
	OverallScore   float64            `json:"overall_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	Feedback       string             `json:"feedback,omitempty"`
	JudgedAt       time.Time          `json:"judged_at"`
}

// HasVoteFrom reports whether voterID already voted on this submission.
func (s *Submission) HasVoteFrom(voterID string) bool {
	for _, v := range s.Voting.Votes {
		if v.VoterID == voterID {
			return true
		}
	}
	return false
}

// Clone deep-copies the submission.
func (s *Submission) Clone() *Submission {
	out := *s
	out.Files = append([]string(nil), s.Files...)
	out.SocialLinks = append([]string(nil), s.SocialLinks...)
	out.Tags = append([]string(nil), s.Tags...)
	out.Voting.Votes = make([]Vote, len(s.Voting.Votes))
	for i, v := range s.Voting.Votes {
		v.Criteria = copyScores(v.Criteria)
		out.Voting.Votes[i] = v
	}
	if s.Voting.ArtistScore != nil {
		a := *s.Voting.ArtistScore
		a.CriteriaScores = copyScores(a.CriteriaScores)
		out.Voting.ArtistScore = &a
	}
	out.Voting.PanelScores = make(map[string]PanelJudgment, len(s.Voting.PanelScores))
	for k, p := range s.Voting.PanelScores {
		p.CriteriaScores = copyScores(p.CriteriaScores)
		out.Voting.PanelScores[k] = p
	}
	return &out
}

func copyScores(in map[string]float64) map[string]float64 {
	if in == nil {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
