package services

import "community-challenges/models"

var premiumTiers = map[string]bool{"premium": true, "pro": true}

// IsEligible decides whether profile satisfies the requirement.
// Unknown requirement values deny.
func IsEligible(requirement models.Eligibility, profile models.Profile) bool {
	switch requirement {
	case models.EligibilityAll, "":
		return true
	case models.EligibilityVerifiedArtists:
		return profile.Verified
	case models.EligibilityPremiumMembers:
		return premiumTiers[profile.SubscriptionType]
	default:
		return false
	}
}

func knownEligibility(e models.Eligibility) bool {
	switch e {
	case models.EligibilityAll, models.EligibilityVerifiedArtists, models.EligibilityPremiumMembers:
		return true
	}
	return false
}
