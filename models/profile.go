// models/profile.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// ProfileMirror is a local snapshot of the profile fields challenges need.
// Populated by the profile sync worker from the Profile Service.
type ProfileMirror struct {
	ID               string    `gorm:"primaryKey" json:"id"`
	ExternalUserID   string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username         string    `gorm:"index;not null" json:"username"`
	Verified         bool      `gorm:"default:false" json:"verified"`
	SubscriptionType string    `gorm:"default:'free'" json:"subscription_type"` // free | premium | pro
	Location         string    `json:"location,omitempty"`
	ExperienceLevel  string    `json:"experience_level,omitempty"`
	Genres           []string  `gorm:"serializer:json;type:text" json:"genres"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Profile is what the engine sees of a joining user
type Profile struct {
	UserID           string   `json:"user_id"`
	Username         string   `json:"username"`
	Verified         bool     `json:"verified"`
	SubscriptionType string   `json:"subscription_type"`
	Location         string   `json:"location,omitempty"`
	ExperienceLevel  string   `json:"experience_level,omitempty"`
	Genres           []string `json:"genres"`
}

// ToProfile converts the mirror row into the engine's profile view.
func (m ProfileMirror) ToProfile() Profile {
	return Profile{
		UserID:           m.ExternalUserID,
		Username:         m.Username,
		Verified:         m.Verified,
		SubscriptionType: m.SubscriptionType,
		Location:         m.Location,
		ExperienceLevel:  m.ExperienceLevel,
		Genres:           append([]string(nil), m.Genres...),
	}
}

// Summary is the snapshot stored on the participant entry.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		Location:        p.Location,
		ExperienceLevel: p.ExperienceLevel,
		Genres:          append([]string(nil), p.Genres...),
	}
}
