package validation

import (
	"regexp"

	"herdbook-backend/internal/pkg/apperr"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValidEmail gates login before any user lookup happens.
func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// BirthCounts holds the offspring tallies reported with a birth.
type BirthCounts struct {
	TotalOffspring  int
	LiveBirths      int
	Stillbirths     int
	WeakOffspring   int
	MaleOffspring   int
	FemaleOffspring int
}

// ValidateBirthCounts enforces the litter count invariants.
func ValidateBirthCounts(c BirthCounts) error {
	if c.TotalOffspring < 0 {
		return apperr.Validation("total_offspring must be >= 0")
	}
	if c.LiveBirths < 0 || c.Stillbirths < 0 || c.WeakOffspring < 0 || c.MaleOffspring < 0 || c.FemaleOffspring < 0 {
		return apperr.Validation("offspring counts must be >= 0")
	}
	if c.LiveBirths > c.TotalOffspring {
		return apperr.Validation("live_births cannot exceed total_offspring")
	}
	if c.Stillbirths > c.TotalOffspring {
		return apperr.Validation("stillbirths cannot exceed total_offspring")
	}
	if c.LiveBirths+c.Stillbirths > c.TotalOffspring {
		return apperr.Validation("live_births + stillbirths cannot exceed total_offspring")
	}
	if c.WeakOffspring > c.LiveBirths {
		return apperr.Validation("weak_offspring cannot exceed live_births")
	}
	if c.MaleOffspring+c.FemaleOffspring > c.LiveBirths {
		return apperr.Validation("male_offspring + female_offspring cannot exceed live_births")
	}
	return nil
}
