package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"community-challenges/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template is a reusable starting point for a challenge.
type Template struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	Rules           []string `json:"rules"`
	DurationDays    int      `json:"duration"`
	MaxParticipants int      `json:"max_participants"`
	SubmissionTypes []string `json:"submission_types"`
	Criteria        []string `json:"judging_criteria"`
}

var builtinTemplates = map[string]Template{
	"cover_song_challenge": {
		Type:        models.ChallengeTypeMusicCreation,
		Description: "Create your own cover version of the featured song",
		Rules: []string{
			"Must be your original recording/performance",
			"Minimum 30 seconds, maximum 3 minutes",
			"Any genre/style interpretation allowed",
			"Credit original artist in submission",
		},
		DurationDays:    14,
		MaxParticipants: 500,
		SubmissionTypes: []string{models.MediaAudio, models.MediaVideo},
		Criteria:        []string{"creativity", "technical_skill", "originality", "audience_appeal"},
	},
	"remix_contest": {
		Type:        models.ChallengeTypeMusicProduction,
		Description: "Create an official remix using provided stems",
		Rules: []string{
			"Use only provided stems and samples",
			"Final track must be 2-6 minutes long",
			"Submit high-quality WAV or FLAC",
			"Include production notes",
		},
		DurationDays:    21,
		MaxParticipants: 200,
		SubmissionTypes: []string{models.MediaAudio},
		Criteria:        []string{"production_quality", "creativity", "danceability", "originality"},
	},
	"music_video_challenge": {
		Type:        models.ChallengeTypeVisualContent,
		Description: "Create a music video for the featured track",
		Rules: []string{
			"Use the original track audio",
			"Video must be 30 seconds to full song length",
			"HD quality minimum (1080p)",
			"Original content only",
		},
		DurationDays:    28,
		MaxParticipants: 100,
		SubmissionTypes: []string{models.MediaVideo},
		Criteria:        []string{"visual_creativity", "storytelling", "technical_quality", "concept_execution"},
	},
	"lyrics_writing": {
		Name:        "Lyrics Writing Challenge",
		Type:        models.ChallengeTypeSongwriting,
		Description: "Write original lyrics to the provided instrumental",
		Rules: []string{
			"Original lyrics only",
			"Must fit the provided instrumental",
			"Include a demo recording if possible",
			"Explain your creative process",
		},
		DurationDays:    10,
		MaxParticipants: 1000,
		SubmissionTypes: []string{models.MediaText, models.MediaAudio},
		Criteria:        []string{"lyrical_content", "flow", "theme_relevance", "emotional_impact"},
	},
}

// templateName turns "remix_contest" into "Remix Contest".
func templateName(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

// Templates lists the built-in templates sorted by id.
func Templates() []Template {
	out := make([]Template, 0, len(builtinTemplates))
	for id := range builtinTemplates {
		t, _ := LookupTemplate(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupTemplate returns a copy of the template with id.
func LookupTemplate(id string) (Template, bool) {
	t, ok := builtinTemplates[id]
	if !ok {
		return Template{}, false
	}
	t.ID = id
	if t.Name == "" {
		t.Name = templateName(id)
	}
	t.Rules = append([]string(nil), t.Rules...)
	t.SubmissionTypes = append([]string(nil), t.SubmissionTypes...)
	t.Criteria = append([]string(nil), t.Criteria...)
	return t, true
}

// fromTemplate seeds input fields the caller left empty.
func fromTemplate(t Template, in ChallengeInput, now time.Time) ChallengeInput {
	in.TemplateID = t.ID
	if in.Title == "" {
		in.Title = t.Name
	}
	if in.Description == "" {
		in.Description = t.Description
	}
	if in.Type == "" {
		in.Type = t.Type
	}
	if len(in.Rules) == 0 {
		in.Rules = t.Rules
	}
	if len(in.SubmissionTypes) == 0 {
		in.SubmissionTypes = t.SubmissionTypes
	}
	if len(in.Criteria) == 0 {
		in.Criteria = t.Criteria
	}
	if in.MaxParticipants == 0 {
		in.MaxParticipants = t.MaxParticipants
	}
	if in.StartDate.IsZero() {
		in.StartDate = now
	}
	if in.EndDate.IsZero() {
		in.EndDate = in.StartDate.AddDate(0, 0, t.DurationDays)
	}
	return in
}

// CreateFromTemplate creates a draft challenge seeded from a built-in template.
func (e *Engine) CreateFromTemplate(ctx context.Context, ownerID, templateID string, overrides ChallengeInput) (*models.Challenge, error) {
	t, ok := LookupTemplate(templateID)
	if !ok {
		return nil, notFound("create from template", "template", templateID)
	}
	return e.CreateChallenge(ctx, ownerID, fromTemplate(t, overrides, e.clock.Now()))
}
