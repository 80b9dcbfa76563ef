package validation

import (
	"testing"

	"herdbook-backend/internal/pkg/apperr"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("farmer@example.com"))
	assert.False(t, IsValidEmail("farmer@example"))
	assert.False(t, IsValidEmail("not an email"))
}

func TestValidateBirthCounts(t *testing.T) {
	ok := BirthCounts{TotalOffspring: 4, LiveBirths: 3, Stillbirths: 1, WeakOffspring: 1, MaleOffspring: 1, FemaleOffspring: 2}
	assert.NoError(t, ValidateBirthCounts(ok))

	cases := []struct {
		name   string
		counts BirthCounts
	}{
		{"negative total", BirthCounts{TotalOffspring: -1}},
		{"negative tally", BirthCounts{TotalOffspring: 2, LiveBirths: -1}},
		{"live exceeds total", BirthCounts{TotalOffspring: 2, LiveBirths: 3}},
		{"still exceeds total", BirthCounts{TotalOffspring: 2, Stillbirths: 3}},
		{"live plus still exceeds total", BirthCounts{TotalOffspring: 3, LiveBirths: 2, Stillbirths: 2}},
		{"weak exceeds live", BirthCounts{TotalOffspring: 3, LiveBirths: 2, WeakOffspring: 3}},
		{"sexed exceeds live", BirthCounts{TotalOffspring: 4, LiveBirths: 3, MaleOffspring: 2, FemaleOffspring: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBirthCounts(tc.counts)
			assert.True(t, apperr.IsKind(err, apperr.KindValidation))
		})
	}
}
