package services

import (
	"strconv"
	"strings"
	"time"

	"community-challenges/models"
)

const (
	defaultMaxFileSizeMB = 100
	votingWindow         = 3 * 24 * time.Hour
	announcementDelay    = 5 * 24 * time.Hour

	minVoteScore  = 1
	maxVoteScore  = 10
	minJudgeScore = 0
	maxJudgeScore = 10
)

var (
	defaultCriteria = []string{"creativity", "technical_skill", "originality"}

	knownChallengeTypes = map[string]bool{
		models.ChallengeTypeMusicCreation:   true,
		models.ChallengeTypeMusicProduction: true,
		models.ChallengeTypeVisualContent:   true,
		models.ChallengeTypeSongwriting:     true,
		models.ChallengeTypeSocialMedia:     true,
	}

	knownMedia = map[string]bool{
		models.MediaAudio: true,
		models.MediaVideo: true,
		models.MediaImage: true,
		models.MediaText:  true,
	}

	knownPrizeTypes = map[models.PrizeType]bool{
		models.PrizeTypeCash:   true,
		models.PrizeTypeItem:   true,
		models.PrizeTypeCredit: true,
	}
)

// ChallengeInput is the caller-supplied shape of a new challenge. Zero values
// pick up defaults.
type ChallengeInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	TemplateID  string `json:"template_id,omitempty"`

	StartDate          time.Time  `json:"start_date"`
	EndDate            time.Time  `json:"end_date"`
	SubmissionDeadline *time.Time `json:"submission_deadline,omitempty"`
	VotingStartDate    *time.Time `json:"voting_start_date,omitempty"`
	VotingEndDate      *time.Time `json:"voting_end_date,omitempty"`
	AnnouncementDate   *time.Time `json:"announcement_date,omitempty"`

	Rules           []string           `json:"rules"`
	SubmissionTypes []string           `json:"submission_types"`
	MaxFileSizeMB   float64            `json:"max_file_size_mb"`
	MinDuration     *float64           `json:"min_duration,omitempty"`
	MaxDuration     *float64           `json:"max_duration,omitempty"`
	Eligibility     models.Eligibility `json:"eligibility"`

	Prizes        *models.Prizes       `json:"prizes,omitempty"`
	JudgingMethod models.JudgingMethod `json:"judging_method"`
	Criteria      []string             `json:"criteria"`
	Weights       *models.Weights      `json:"weights,omitempty"`
	PanelJudges   []string             `json:"panel_judges"`

	Featured        models.Featured `json:"featured"`
	MaxParticipants int             `json:"max_participants"`
}

// SubmissionInput describes an entry being submitted.
type SubmissionInput struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Type        string                    `json:"type"`
	Files       []string                  `json:"files"`
	Metadata    models.SubmissionMetadata `json:"metadata"`
	SocialLinks []string                  `json:"social_links"`
	Tags        []string                  `json:"tags"`
}

// VoteInput is a community vote.
type VoteInput struct {
	Score    float64            `json:"score"`
	Criteria map[string]float64 `json:"criteria,omitempty"`
	Comment  string             `json:"comment,omitempty"`
}

// JudgmentInput is an artist or panel verdict.
type JudgmentInput struct {
	OverallScore   float64            `json:"overall_score"`
	CriteriaScores map[string]float64 `json:"criteria_scores,omitempty"`
	Feedback       string             `json:"feedback,omitempty"`
	Highlight      bool               `json:"highlight"`
}

// buildChallenge applies defaults and validates. The returned challenge has
// no id, owner or status yet.
func buildChallenge(in ChallengeInput) (*models.Challenge, error) {
	const op = "create challenge"

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationErr(op, "title is required")
	}
	if in.Type != "" && !knownChallengeTypes[in.Type] {
		return nil, validationErr(op, "unknown challenge type %q", in.Type)
	}

	timeline, err := buildTimeline(in)
	if err != nil {
		return nil, err
	}

	req := models.Requirements{
		SubmissionTypes: in.SubmissionTypes,
		MaxFileSizeMB:   in.MaxFileSizeMB,
		MinDuration:     in.MinDuration,
		MaxDuration:     in.MaxDuration,
		Eligibility:     in.Eligibility,
	}
	if len(req.SubmissionTypes) == 0 {
		req.SubmissionTypes = append([]string(nil), models.AllMediaKinds...)
	}
	for _, t := range req.SubmissionTypes {
		if !knownMedia[t] {
			return nil, validationErr(op, "unknown submission type %q", t)
		}
	}
	if req.MaxFileSizeMB < 0 {
		return nil, validationErr(op, "max file size must not be negative")
	}
	if req.MaxFileSizeMB == 0 {
		req.MaxFileSizeMB = defaultMaxFileSizeMB
	}
	if req.MinDuration != nil && *req.MinDuration < 0 || req.MaxDuration != nil && *req.MaxDuration < 0 {
		return nil, validationErr(op, "durations must not be negative")
	}
	if req.MinDuration != nil && req.MaxDuration != nil && *req.MinDuration > *req.MaxDuration {
		return nil, validationErr(op, "min duration exceeds max duration")
	}
	if req.Eligibility == "" {
		req.Eligibility = models.EligibilityAll
	}
	if !knownEligibility(req.Eligibility) {
		return nil, validationErr(op, "unknown eligibility %q", req.Eligibility)
	}

	prizes := models.Prizes{Tiers: models.DefaultPrizeTiers()}
	if in.Prizes != nil {
		prizes = *in.Prizes
	}
	if err := validatePrizes(op, prizes); err != nil {
		return nil, err
	}

	judging, err := buildJudging(op, in)
	if err != nil {
		return nil, err
	}

	if in.MaxParticipants < 0 {
		return nil, validationErr(op, "max participants must not be negative")
	}

	category := in.Category
	if category == "" {
		category = "general"
	}

	return &models.Challenge{
		Title:           title,
		Description:     in.Description,
		Type:            in.Type,
		Category:        category,
		TemplateID:      in.TemplateID,
		Timeline:        timeline,
		Rules:           append([]string(nil), in.Rules...),
		Requirements:    req,
		Prizes:          prizes,
		Judging:         judging,
		Featured:        in.Featured,
		MaxParticipants: in.MaxParticipants,
		TotalPrizePool:  prizePool(prizes),
	}, nil
}

func buildTimeline(in ChallengeInput) (models.Timeline, error) {
	const op = "create challenge"
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return models.Timeline{}, validationErr(op, "start and end dates are required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return models.Timeline{}, validationErr(op, "start date must be before end date")
	}

	t := models.Timeline{
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		SubmissionDeadline: orDefault(in.SubmissionDeadline, in.EndDate),
		VotingStartDate:    orDefault(in.VotingStartDate, in.EndDate),
		VotingEndDate:      orDefault(in.VotingEndDate, in.EndDate.Add(votingWindow)),
		AnnouncementDate:   orDefault(in.AnnouncementDate, in.EndDate.Add(announcementDelay)),
	}

	switch {
	case t.SubmissionDeadline.Before(t.StartDate):
		return t, validationErr(op, "submission deadline is before start date")
	case t.VotingStartDate.Before(t.SubmissionDeadline):
		return t, validationErr(op, "voting starts before the submission deadline")
	case t.VotingEndDate.Before(t.VotingStartDate):
		return t, validationErr(op, "voting ends before it starts")
	}
	return t, nil
}

func buildJudging(op string, in ChallengeInput) (models.Judging, error) {
	j := models.Judging{
		Method:      in.JudgingMethod,
		Criteria:    append([]string(nil), in.Criteria...),
		PanelJudges: append([]string(nil), in.PanelJudges...),
	}
	if j.Method == "" {
		j.Method = models.JudgingHybrid
	}
	if !j.Method.Valid() {
		return j, validationErr(op, "unknown judging method %q", j.Method)
	}
	if len(j.Criteria) == 0 {
		j.Criteria = append([]string(nil), defaultCriteria...)
	}
	if in.Weights != nil {
		j.Weights = *in.Weights
	} else {
		j.Weights = models.Weights{Community: 50, Artist: 50}
	}
	if j.Weights.Community < 0 || j.Weights.Artist < 0 {
		return j, validationErr(op, "judging weights must not be negative")
	}
	if j.Method == models.JudgingPanel && len(j.PanelJudges) == 0 {
		return j, validationErr(op, "panel judging needs at least one judge")
	}
	return j, nil
}

func validatePrizes(op string, p models.Prizes) error {
	check := func(label string, prize models.Prize) error {
		if prize.Amount < 0 {
			return validationErr(op, "%s amount must not be negative", label)
		}
		if prize.Type != "" && !knownPrizeTypes[prize.Type] {
			return validationErr(op, "%s has unknown prize type %q", label, prize.Type)
		}
		return nil
	}
	for i, tier := range p.Tiers {
		if err := check("prize tier "+positionLabel(i+1), tier); err != nil {
			return err
		}
	}
	if p.ParticipationReward != nil {
		return check("participation reward", *p.ParticipationReward)
	}
	return nil
}

func prizePool(p models.Prizes) float64 {
	var total float64
	for _, tier := range p.Tiers {
		total += tier.Amount
	}
	return total
}

func validateSubmission(req models.Requirements, in SubmissionInput) error {
	const op = "submit entry"
	if strings.TrimSpace(in.Title) == "" {
		return validationErr(op, "title is required")
	}
	if !req.AcceptsType(in.Type) {
		return validationErr(op, "submission type %q is not accepted", in.Type)
	}
	if in.Metadata.FileSizeMB < 0 {
		return validationErr(op, "file size must not be negative")
	}
	if req.MaxFileSizeMB > 0 && in.Metadata.FileSizeMB > req.MaxFileSizeMB {
		return validationErr(op, "file size %.1fMB exceeds limit of %.1fMB", in.Metadata.FileSizeMB, req.MaxFileSizeMB)
	}
	if d := in.Metadata.Duration; d > 0 {
		if req.MinDuration != nil && d < *req.MinDuration {
			return validationErr(op, "duration %.0fs is below minimum %.0fs", d, *req.MinDuration)
		}
		if req.MaxDuration != nil && d > *req.MaxDuration {
			return validationErr(op, "duration %.0fs exceeds maximum %.0fs", d, *req.MaxDuration)
		}
	}
	return nil
}

func orDefault(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}

func positionLabel(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return "#" + strconv.Itoa(n)
}
