package genetics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Risk levels for a proposed pairing.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// Assessment is the verdict on a proposed pairing.
type Assessment struct {
	CanBreed  bool   `json:"can_breed"`
	RiskLevel string `json:"risk_level"`
	Reason    string `json:"reason,omitempty"`
}

// CanBreedWith checks b against a's known close relatives. Parent,
// offspring and full-sibling relationships block the pairing; half-sibling,
// grandparent and grandchild relationships warn but allow it. A pairing is
// also blocked when either side is not a breeder.
func CanBreedWith(a, b *Profile) Assessment {
	if !a.BreedingProfile.IsBreeder {
		return Assessment{CanBreed: false, RiskLevel: RiskHigh,
			Reason: fmt.Sprintf("%s is not a breeder", a.TagNumber)}
	}
	if !b.BreedingProfile.IsBreeder {
		return Assessment{CanBreed: false, RiskLevel: RiskHigh,
			Reason: fmt.Sprintf("%s is not a breeder", b.TagNumber)}
	}

	if relative, ok := a.relativeOf(b.AnimalID); ok {
		switch relative.Relationship {
		case RelationParent, RelationOffspring, RelationFullSibling:
			return Assessment{CanBreed: false, RiskLevel: RiskHigh,
				Reason: fmt.Sprintf("%s is a close relative (%s)", b.TagNumber, relative.Relationship)}
		case RelationHalfSibling, RelationGrandparent, RelationGrandchild:
			return Assessment{CanBreed: true, RiskLevel: RiskMedium,
				Reason: fmt.Sprintf("%s is a known relative (%s)", b.TagNumber, relative.Relationship)}
		}
	}
	return Assessment{CanBreed: true, RiskLevel: RiskLow}
}

// CompatibilityScore is the 0-100 pairing heuristic: a 50 baseline,
// penalized by the pair's average inbreeding coefficient, rewarded for
// growth-rate diversity and offspring survival.
func CompatibilityScore(a, b *Profile) float64 {
	score := 50.0

	avgInbreeding := (a.InbreedingCoefficient + b.InbreedingCoefficient) / 2
	score -= 30 * avgInbreeding

	growthDiff := a.Traits.GrowthRate - b.Traits.GrowthRate
	if growthDiff < 0 {
		growthDiff = -growthDiff
	}
	score += 2 * (10 - growthDiff)

	avgSurvival := (a.PerformanceMetrics.OffspringSurvivalRate + b.PerformanceMetrics.OffspringSurvivalRate) / 2
	score += avgSurvival / 2

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CompatibilityResult is the standalone assessment of two animals.
type CompatibilityResult struct {
	AnimalA    uuid.UUID  `json:"animal_a"`
	AnimalB    uuid.UUID  `json:"animal_b"`
	Assessment Assessment `json:"assessment"`
	Score      float64    `json:"score"`
}

// CheckCompatibility computes (or reuses) both profiles and assesses the
// pairing both ways: a relationship recorded on either side blocks or
// warns the same.
func (e *Engine) CheckCompatibility(ctx context.Context, idA, idB uuid.UUID) (*CompatibilityResult, error) {
	rowA, err := e.ComputeProfile(ctx, idA, false)
	if err != nil {
		return nil, err
	}
	rowB, err := e.ComputeProfile(ctx, idB, false)
	if err != nil {
		return nil, err
	}
	a, err := DecodeProfile(rowA)
	if err != nil {
		return nil, err
	}
	b, err := DecodeProfile(rowB)
	if err != nil {
		return nil, err
	}

	assessment := CanBreedWith(a, b)
	if assessment.CanBreed {
		if reverse := CanBreedWith(b, a); !reverse.CanBreed || reverse.RiskLevel == RiskMedium {
			assessment = reverse
		}
	}
	return &CompatibilityResult{
		AnimalA:    idA,
		AnimalB:    idB,
		Assessment: assessment,
		Score:      CompatibilityScore(a, b),
	}, nil
}
