package models

import (
	"time"
)

// PrizeType indicates how a prize is paid out
type PrizeType string

const (
	PrizeTypeCash   PrizeType = "cash"
	PrizeTypeItem   PrizeType = "item"
	PrizeTypeCredit PrizeType = "credit"
)

// Prize is a single typed reward
type Prize struct {
	Type        PrizeType `json:"type"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Description string    `json:"description"`
}

// Prizes holds the ranked tiers (index 0 = first place) and an optional
// reward for everyone who submitted.
type Prizes struct {
	Tiers               []Prize `json:"tiers"`
	ParticipationReward *Prize  `json:"participation_reward,omitempty"`
}

// ForPosition returns the tier for a 1-based position.
func (p Prizes) ForPosition(position int) (Prize, bool) {
	if position < 1 || position > len(p.Tiers) {
		return Prize{}, false
	}
	return p.Tiers[position-1], true
}

// DefaultPrizeTiers mirrors the stock 1st/2nd/3rd cash prizes
func DefaultPrizeTiers() []Prize {
	return []Prize{
		{Type: PrizeTypeCash, Amount: 1000, Currency: "USD", Description: "First Place Winner"},
		{Type: PrizeTypeCash, Amount: 500, Currency: "USD", Description: "Second Place"},
		{Type: PrizeTypeCash, Amount: 250, Currency: "USD", Description: "Third Place"},
	}
}

// DistributionStatus tracks an intended payout
type DistributionStatus string

const (
	DistributionPending     DistributionStatus = "pending"
	DistributionDistributed DistributionStatus = "distributed"
	DistributionFailed      DistributionStatus = "failed"
)

// PositionParticipant marks participation rewards
const PositionParticipant = "participant"

// PrizeDistribution records a payout owed to a winner or participant.
// Once distributed it is never modified again.
type PrizeDistribution struct {
	ID            string             `json:"id" gorm:"primaryKey"`
	ChallengeID   string             `json:"challenge_id" gorm:"index;not null"`
	SubmissionID  string             `json:"submission_id,omitempty"`
	UserID        string             `json:"user_id" gorm:"index;not null"`
	Position      string             `json:"position"` // "1", "2", "3" or "participant"
	Prize         Prize              `json:"prize" gorm:"serializer:json;type:text"`
	Status        DistributionStatus `json:"status" gorm:"index;default:'pending'"`
	FailureReason string             `json:"failure_reason,omitempty"`
	Attempts      int                `json:"attempts" gorm:"default:0"`
	DistributedAt *time.Time         `json:"distributed_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}
