// models/challenge.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// ChallengeStatus is the lifecycle phase of a challenge
type ChallengeStatus string

const (
	StatusDraft            ChallengeStatus = "draft"
	StatusUpcoming         ChallengeStatus = "upcoming"
	StatusActive           ChallengeStatus = "active"
	StatusSubmissionClosed ChallengeStatus = "submission_closed"
	StatusVoting           ChallengeStatus = "voting"
	StatusCompleted        ChallengeStatus = "completed"
	StatusCancelled        ChallengeStatus = "cancelled"
)

// phaseOrder ranks the forward phases; cancelled sits outside the sequence.
var phaseOrder = map[ChallengeStatus]int{
	StatusDraft:            0,
	StatusUpcoming:         1,
	StatusActive:           2,
	StatusSubmissionClosed: 3,
	StatusVoting:           4,
	StatusCompleted:        5,
}

// allowedTransitions is the complete state machine. Anything not listed is rejected.
var allowedTransitions = map[ChallengeStatus][]ChallengeStatus{
	StatusDraft:            {StatusUpcoming, StatusActive, StatusCancelled},
	StatusUpcoming:         {StatusActive, StatusCancelled},
	StatusActive:           {StatusSubmissionClosed, StatusCancelled},
	StatusSubmissionClosed: {StatusVoting, StatusCompleted, StatusCancelled},
	StatusVoting:           {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to ChallengeStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can never change again.
func (s ChallengeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Precedes reports whether s comes strictly before other in the forward sequence.
func (s ChallengeStatus) Precedes(other ChallengeStatus) bool {
	a, okA := phaseOrder[s]
	b, okB := phaseOrder[other]
	return okA && okB && a < b
}

const (
	ChallengeTypeMusicCreation   = "music_creation"
	ChallengeTypeMusicProduction = "music_production"
	ChallengeTypeVisualContent   = "visual_content"
	ChallengeTypeSongwriting     = "songwriting"
	ChallengeTypeSocialMedia     = "social_media"
)

// JudgingMethod governs how a submission's final score is computed
type JudgingMethod string

const (
	JudgingArtistOnly    JudgingMethod = "artist_only"
	JudgingCommunityVote JudgingMethod = "community_vote"
	JudgingHybrid        JudgingMethod = "hybrid"
	JudgingPanel         JudgingMethod = "panel"
)

// UsesCommunityVote is true for methods that open a community voting phase.
func (m JudgingMethod) UsesCommunityVote() bool {
	return m == JudgingCommunityVote || m == JudgingHybrid
}

// Valid reports whether m is a known judging method.
func (m JudgingMethod) Valid() bool {
	switch m {
	case JudgingArtistOnly, JudgingCommunityVote, JudgingHybrid, JudgingPanel:
		return true
	}
	return false
}

// Eligibility restricts who may join a challenge
type Eligibility string

const (
	EligibilityAll             Eligibility = "all"
	EligibilityVerifiedArtists Eligibility = "verified_artists"
	EligibilityPremiumMembers  Eligibility = "premium_members"
)

const (
	MediaAudio = "audio"
	MediaVideo = "video"
	MediaImage = "image"
	MediaText  = "text"
)

// AllMediaKinds is the default set of accepted submission kinds.
var AllMediaKinds = []string{MediaAudio, MediaVideo, MediaImage, MediaText}

// Challenge is a time-boxed contest owned by an artist
type Challenge struct {
	ID              string          `json:"id" gorm:"primaryKey"`
	Slug            string          `json:"slug" gorm:"index"`
	ArtistID        string          `json:"artist_id" gorm:"index;not null"`
	Title           string          `json:"title" gorm:"not null"`
	Description     string          `json:"description"`
	Type            string          `json:"type"`
	Category        string          `json:"category" gorm:"default:'general'"`
	TemplateID      string          `json:"template_id,omitempty"`
	Timeline        Timeline        `json:"timeline" gorm:"serializer:json;type:text"`
	Rules           []string        `json:"rules" gorm:"serializer:json;type:text"`
	Requirements    Requirements    `json:"requirements" gorm:"serializer:json;type:text"`
	Prizes          Prizes          `json:"prizes" gorm:"serializer:json;type:text"`
	Judging         Judging         `json:"judging" gorm:"serializer:json;type:text"`
	Featured        Featured        `json:"featured" gorm:"serializer:json;type:text"`
	MaxParticipants int             `json:"max_participants" gorm:"default:0"` // 0 = unlimited
	Status          ChallengeStatus `json:"status" gorm:"index;default:'draft'"`
	Participants    []Participant   `json:"participants" gorm:"serializer:json;type:text"`
	SubmissionIDs   []string        `json:"submissions" gorm:"serializer:json;type:text"`
	TotalPrizePool  float64         `json:"total_prize_pool"`
	Metrics         Metrics         `json:"metrics" gorm:"serializer:json;type:text"`
	Results         *Results        `json:"results,omitempty" gorm:"serializer:json;type:text"`

	// NextTransition is what the scheduler re-arms from after a restart
	NextTransition *PhaseTransition `json:"next_transition,omitempty" gorm:"serializer:json;type:text"`
	LaunchedAt     *time.Time       `json:"launched_at,omitempty"`
	CancelReason   string           `json:"cancel_reason,omitempty"`

	Timestamps
}

type Timeline struct {
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	SubmissionDeadline time.Time `json:"submission_deadline"`
	VotingStartDate    time.Time `json:"voting_start_date"`
	VotingEndDate      time.Time `json:"voting_end_date"`
	AnnouncementDate   time.Time `json:"announcement_date"`
}

type Requirements struct {
	SubmissionTypes []string    `json:"submission_types"`
	MaxFileSizeMB   float64     `json:"max_file_size_mb"`
	MinDuration     *float64    `json:"min_duration,omitempty"` // seconds
	MaxDuration     *float64    `json:"max_duration,omitempty"` // seconds
	Eligibility     Eligibility `json:"eligibility"`
}

// AcceptsType reports whether kind is one of the allowed submission types.
func (r Requirements) AcceptsType(kind string) bool {
	for _, t := range r.SubmissionTypes {
		if t == kind {
			return true
		}
	}
	return false
}

type Judging struct {
	Method      JudgingMethod `json:"method"`
	Criteria    []string      `json:"criteria"`
	Weights     Weights       `json:"weights"`
	PanelJudges []string      `json:"panel_judges"`
}

// IsPanelJudge reports whether userID is one of the named panel judges.
func (j Judging) IsPanelJudge(userID string) bool {
	for _, id := range j.PanelJudges {
		if id == userID {
			return true
		}
	}
	return false
}

// Weights split a hybrid score, in percent. They are not normalized.
type Weights struct {
	Community float64 `json:"community"`
	Artist    float64 `json:"artist"`
}

type Featured struct {
	Track      string   `json:"track,omitempty"`
	Stems      []string `json:"stems"`
	Assets     []string `json:"assets"`
	Guidelines string   `json:"guidelines,omitempty"`
}

type Metrics struct {
	Views          int64 `json:"views"`
	Participants   int64 `json:"participants"`
	Submissions    int64 `json:"submissions"`
	TotalVotes     int64 `json:"total_votes"`
	SocialShares   int64 `json:"social_shares"`
	MediaGenerated int64 `json:"media_generated"`
}

// Results is populated once, at completion
type Results struct {
	Winners           []Winner  `json:"winners"`
	TotalSubmissions  int       `json:"total_submissions"`
	TotalParticipants int       `json:"total_participants"`
	TotalVotes        int64     `json:"total_votes"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Winner returns the entry for position (1-based); ok is false when nobody placed there.
func (r Results) Winner(position int) (Winner, bool) {
	for _, w := range r.Winners {
		if w.Position == position {
			return w, true
		}
	}
	return Winner{}, false
}

type Winner struct {
	Position     int     `json:"position"`
	SubmissionID string  `json:"submission_id"`
	UserID       string  `json:"user_id"`
	Title        string  `json:"title"`
	FinalScore   float64 `json:"final_score"`
}

// PhaseTransition is a deferred, one-shot status change
type PhaseTransition struct {
	From  ChallengeStatus `json:"from"`
	To    ChallengeStatus `json:"to"`
	DueAt time.Time       `json:"due_at"`
}

// Participant is a user who joined a challenge
type Participant struct {
	UserID        string         `json:"user_id"`
	Username      string         `json:"username"`
	JoinedAt      time.Time      `json:"joined_at"`
	SubmissionIDs []string       `json:"submissions"`
	VoteIDs       []string       `json:"votes"`
	Profile       ProfileSummary `json:"profile"`
}

// ProfileSummary is the part of a profile captured at join time
type ProfileSummary struct {
	Location        string   `json:"location,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
	Genres          []string `json:"genres"`
}

// Participant returns a pointer into c.Participants for userID, or nil.
func (c *Challenge) Participant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// Clone deep-copies the challenge so a mutation can be discarded on failure.
func (c *Challenge) Clone() *Challenge {
	out := *c
	out.Rules = append([]string(nil), c.Rules...)
	out.Requirements.SubmissionTypes = append([]string(nil), c.Requirements.SubmissionTypes...)
	out.Prizes.Tiers = append([]Prize(nil), c.Prizes.Tiers...)
	if c.Prizes.ParticipationReward != nil {
		p := *c.Prizes.ParticipationReward
		out.Prizes.ParticipationReward = &p
	}
	out.Judging.Criteria = append([]string(nil), c.Judging.Criteria...)
	out.Judging.PanelJudges = append([]string(nil), c.Judging.PanelJudges...)
	out.Featured.Stems = append([]string(nil), c.Featured.Stems...)
	out.Featured.Assets = append([]string(nil), c.Featured.Assets...)
	out.SubmissionIDs = append([]string(nil), c.SubmissionIDs...)
	out.Participants = make([]Participant, len(c.Participants))
	for i, p := range c.Participants {
		p.SubmissionIDs = append([]string(nil), p.SubmissionIDs...)
		p.VoteIDs = append([]string(nil), p.VoteIDs...)
		p.Profile.Genres = append([]string(nil), p.Profile.Genres...)
		out.Participants[i] = p
	}
	if c.Results != nil {
		r := *c.Results
		r.Winners = append([]Winner(nil), c.Results.Winners...)
		out.Results = &r
	}
	if c.NextTransition != nil {
		t := *c.NextTransition
		out.NextTransition = &t
	}
	if c.LaunchedAt != nil {
		t := *c.LaunchedAt
		out.LaunchedAt = &t
	}
	return &out
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
