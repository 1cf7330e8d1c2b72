package models

import "time"

// AnalyticsSnapshot is the derived per-challenge view kept by the aggregator.
// It can always be rebuilt from the challenge and its submissions.
type AnalyticsSnapshot struct {
	ChallengeID     string           `json:"challenge_id" gorm:"primaryKey"`
	ArtistID        string           `json:"artist_id" gorm:"index"`
	Demographics    Demographics     `json:"participant_demographics" gorm:"serializer:json;type:text"`
	SubmissionTypes map[string]int64 `json:"submission_types" gorm:"serializer:json;type:text"`
	Engagement      EngagementTotals `json:"engagement_metrics" gorm:"serializer:json;type:text"`
	ConversionRates ConversionRates  `json:"conversion_rates" gorm:"serializer:json;type:text"`
	Finalized       bool             `json:"finalized"`
	Report          *ChallengeReport `json:"report,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type Demographics struct {
	Countries        map[string]int64 `json:"countries"`
	ExperienceLevels map[string]int64 `json:"experience_levels"`
	Genres           map[string]int64 `json:"genres"`
}

// EngagementTotals only ever grow; the aggregator keeps the largest value seen.
type EngagementTotals struct {
	Views        int64 `json:"views"`
	Likes        int64 `json:"likes"`
	Shares       int64 `json:"shares"`
	Comments     int64 `json:"comments"`
	Participants int64 `json:"participants"`
	Submissions  int64 `json:"submissions"`
}

type ConversionRates struct {
	ViewToParticipation       float64 `json:"view_to_participation"`
	ParticipationToSubmission float64 `json:"participation_to_submission"`
}

// ChallengeReport is generated once when a challenge completes
type ChallengeReport struct {
	ChallengeID     string           `json:"challenge_id"`
	Summary         ReportSummary    `json:"summary"`
	Demographics    Demographics     `json:"demographics"`
	Engagement      ReportEngagement `json:"engagement"`
	Winners         []Winner         `json:"winners"`
	Recommendations []string         `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type ReportSummary struct {
	Title                 string  `json:"title"`
	Type                  string  `json:"type"`
	DurationDays          int     `json:"duration"`
	TotalParticipants     int     `json:"total_participants"`
	TotalSubmissions      int     `json:"total_submissions"`
	CompletionRate        float64 `json:"completion_rate"`
	TotalVotes            int64   `json:"total_votes"`
	AvgVotesPerSubmission float64 `json:"avg_votes_per_submission"`
}

type ReportEngagement struct {
	MostPopularSubmissionType    string  `json:"most_popular_submission_type"`
	AvgSubmissionsPerParticipant float64 `json:"avg_submissions_per_participant"`
}

// Clone deep-copies the snapshot for read-only callers.
func (a *AnalyticsSnapshot) Clone() *AnalyticsSnapshot {
	out := *a
	out.Demographics = a.Demographics.clone()
	out.SubmissionTypes = copyCounts(a.SubmissionTypes)
	if a.Report != nil {
		r := *a.Report
		r.Demographics = a.Report.Demographics.clone()
		r.Winners = append([]Winner(nil), a.Report.Winners...)
		r.Recommendations = append([]string(nil), a.Report.Recommendations...)
		out.Report = &r
	}
	return &out
}

func (d Demographics) clone() Demographics {
	return Demographics{
		Countries:        copyCounts(d.Countries),
		ExperienceLevels: copyCounts(d.ExperienceLevels),
		Genres:           copyCounts(d.Genres),
	}
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
