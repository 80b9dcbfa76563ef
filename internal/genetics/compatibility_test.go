package genetics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func breederProfile(id uuid.UUID) *Profile {
	return &Profile{
		AnimalID:        id,
		BreedingProfile: BreedingProfile{IsBreeder: true, Eligibility: EligibilityEligible},
		Traits:          Traits{GrowthRate: 5, Fertility: 5, LitterSizePotential: 5, OffspringViability: 5},
	}
}

func TestCanBreedWith_BlocksCloseRelatives(t *testing.T) {
	idB := uuid.New()
	for _, relationship := range []string{RelationParent, RelationOffspring, RelationFullSibling} {
		a := breederProfile(uuid.New())
		a.KnownCloseRelatives = []Relative{{AnimalID: idB, Relationship: relationship, Coefficient: 0.5}}
		b := breederProfile(idB)

		result := CanBreedWith(a, b)
		assert.False(t, result.CanBreed, relationship)
		assert.Equal(t, RiskHigh, result.RiskLevel, relationship)
	}
}

func TestCanBreedWith_WarnsOnDistantRelatives(t *testing.T) {
	idB := uuid.New()
	for _, relationship := range []string{RelationHalfSibling, RelationGrandparent, RelationGrandchild} {
		a := breederProfile(uuid.New())
		a.KnownCloseRelatives = []Relative{{AnimalID: idB, Relationship: relationship, Coefficient: 0.25}}
		b := breederProfile(idB)

		result := CanBreedWith(a, b)
		assert.True(t, result.CanBreed, relationship)
		assert.Equal(t, RiskMedium, result.RiskLevel, relationship)
	}
}

func TestCanBreedWith_UnrelatedBreedersAreLowRisk(t *testing.T) {
	result := CanBreedWith(breederProfile(uuid.New()), breederProfile(uuid.New()))
	assert.True(t, result.CanBreed)
	assert.Equal(t, RiskLow, result.RiskLevel)
}

func TestCanBreedWith_BlocksNonBreeders(t *testing.T) {
	a := breederProfile(uuid.New())
	b := breederProfile(uuid.New())
	b.BreedingProfile.IsBreeder = false

	result := CanBreedWith(a, b)
	assert.False(t, result.CanBreed)
	assert.Equal(t, RiskHigh, result.RiskLevel)
}

func TestCompatibilityScore_Baseline(t *testing.T) {
	a := breederProfile(uuid.New())
	b := breederProfile(uuid.New())
	// 50 − 30×0 + 2×(10−0) + 0/2 = 70.
	assert.Equal(t, 70.0, CompatibilityScore(a, b))
}

func TestCompatibilityScore_PenalizesInbreedingAndRewardsSurvival(t *testing.T) {
	a := breederProfile(uuid.New())
	b := breederProfile(uuid.New())
	a.InbreedingCoefficient = 0.5
	b.InbreedingCoefficient = 0.5
	a.PerformanceMetrics.OffspringSurvivalRate = 90
	b.PerformanceMetrics.OffspringSurvivalRate = 70

	// 50 − 30×0.5 + 2×(10−0) + 80/2 = 95.
	assert.Equal(t, 95.0, CompatibilityScore(a, b))
}

func TestCompatibilityScore_ClampsToRange(t *testing.T) {
	a := breederProfile(uuid.New())
	b := breederProfile(uuid.New())
	a.PerformanceMetrics.OffspringSurvivalRate = 100
	b.PerformanceMetrics.OffspringSurvivalRate = 100

	// 50 + 20 + 50 would be 120; clamped to 100.
	assert.Equal(t, 100.0, CompatibilityScore(a, b))

	a.InbreedingCoefficient = 1
	b.InbreedingCoefficient = 1
	a.PerformanceMetrics.OffspringSurvivalRate = 0
	b.PerformanceMetrics.OffspringSurvivalRate = 0
	a.Traits.GrowthRate = 1
	b.Traits.GrowthRate = 10

	score := CompatibilityScore(a, b)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestIsStale(t *testing.T) {
	now := time.Now()
	assert.False(t, IsStale(now.Add(-time.Hour), now))
	assert.False(t, IsStale(now.Add(-23*time.Hour), now))
	assert.True(t, IsStale(now.Add(-24*time.Hour), now))
	assert.True(t, IsStale(now.Add(-48*time.Hour), now))
}
