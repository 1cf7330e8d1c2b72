package services

import (
	"testing"

	"community-challenges/models"

	"github.com/stretchr/testify/assert"
)

func TestIsEligible(t *testing.T) {
	tests := []struct {
		name        string
		requirement models.Eligibility
		profile     models.Profile
		want        bool
	}{
		{"all admits anyone", models.EligibilityAll, models.Profile{}, true},
		{"empty admits anyone", "", models.Profile{}, true},
		{"verified admits verified", models.EligibilityVerifiedArtists, models.Profile{Verified: true}, true},
		{"verified rejects unverified", models.EligibilityVerifiedArtists, models.Profile{SubscriptionType: "pro"}, false},
		{"premium admits premium", models.EligibilityPremiumMembers, models.Profile{SubscriptionType: "premium"}, true},
		{"premium admits pro", models.EligibilityPremiumMembers, models.Profile{SubscriptionType: "pro"}, true},
		{"premium rejects free", models.EligibilityPremiumMembers, models.Profile{SubscriptionType: "free", Verified: true}, false},
		{"unknown rejects", models.Eligibility("staff_only"), models.Profile{Verified: true, SubscriptionType: "pro"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEligible(tt.requirement, tt.profile))
		})
	}
}
