package genetics

import (
	"time"

	"github.com/google/uuid"
)

// Eligibility buckets.
const (
	EligibilityEligible   = "eligible"
	EligibilityRestricted = "restricted"
	EligibilityIneligible = "ineligible"
)

// Relationship labels used in the close-relative map and by the
// compatibility assessment.
const (
	RelationParent      = "parent"
	RelationOffspring   = "offspring"
	RelationFullSibling = "full_sibling"
	RelationHalfSibling = "half_sibling"
	RelationGrandparent = "grandparent"
	RelationGrandchild  = "grandchild"
)

// BreedingProfile is pass one: whether the animal is usable as a breeder
// and how restricted it is.
type BreedingProfile struct {
	IsBreeder   bool   `json:"is_breeder"`
	Eligibility string `json:"eligibility"`
	Season      string `json:"season,omitempty"`
}

// PerformanceMetrics aggregates the reproduction history. Male animals fill
// the mating side, females the pregnancy side; both fill offspring survival.
type PerformanceMetrics struct {
	TotalMatings          int     `json:"total_matings"`
	SuccessfulMatings     int     `json:"successful_matings"`
	MatingSuccessRate     float64 `json:"mating_success_rate"`
	TotalPregnancies      int     `json:"total_pregnancies"`
	DeliveredPregnancies  int     `json:"delivered_pregnancies"`
	PregnancySuccessRate  float64 `json:"pregnancy_success_rate"`
	AvgLitterSize         float64 `json:"avg_litter_size"`
	AvgGestationDays      float64 `json:"avg_gestation_days"`
	TotalOffspring        int     `json:"total_offspring"`
	LiveOffspring         int     `json:"live_offspring"`
	OffspringSurvivalRate float64 `json:"offspring_survival_rate"`
}

// Traits are heuristic scores, each clamped to [1,10] with 5 as the
// no-data default.
type Traits struct {
	GrowthRate          float64 `json:"growth_rate"`
	Fertility           float64 `json:"fertility"`
	LitterSizePotential float64 `json:"litter_size_potential"`
	OffspringViability  float64 `json:"offspring_viability"`
}

// Relative is one entry in the known-close-relatives list.
type Relative struct {
	AnimalID     uuid.UUID `json:"animal_id"`
	TagNumber    string    `json:"tag_number,omitempty"`
	Relationship string    `json:"relationship"`
	Coefficient  float64   `json:"coefficient"`
}

// PedigreeEntry is one ancestor in the bounded trace.
type PedigreeEntry struct {
	AnimalID   uuid.UUID `json:"animal_id"`
	TagNumber  string    `json:"tag_number,omitempty"`
	Name       string    `json:"name,omitempty"`
	Gender     string    `json:"gender,omitempty"`
	Generation int       `json:"generation"`
}

// PairSuggestion is one scored candidate in the recommendations.
type PairSuggestion struct {
	AnimalID  uuid.UUID `json:"animal_id"`
	TagNumber string    `json:"tag_number,omitempty"`
	Score     float64   `json:"score"`
	RiskLevel string    `json:"risk_level"`
	Reason    string    `json:"reason,omitempty"`
}

// Recommendations split scan results into the two top-10 buckets.
type Recommendations struct {
	RecommendedPairs []PairSuggestion `json:"recommended_pairs"`
	AvoidPairs       []PairSuggestion `json:"avoid_pairs"`
}

// Profile is the full computed payload stored as the cache row's JSON body.
// It is derived entirely from the registry and the reproduction chain and
// can be rebuilt at any time.
type Profile struct {
	AnimalID              uuid.UUID          `json:"animal_id"`
	FarmID                uuid.UUID          `json:"farm_id"`
	TagNumber             string             `json:"tag_number"`
	Gender                string             `json:"gender"`
	BreedingProfile       BreedingProfile    `json:"breeding_profile"`
	PerformanceMetrics    PerformanceMetrics `json:"performance_metrics"`
	Traits                Traits             `json:"traits"`
	InbreedingCoefficient float64            `json:"inbreeding_coefficient"`
	KnownCloseRelatives   []Relative         `json:"known_close_relatives"`
	Pedigree              []PedigreeEntry    `json:"pedigree"`
	Recommendations       Recommendations    `json:"breeding_recommendations"`
	ComputedAt            time.Time          `json:"computed_at"`
}

// relativeOf returns the relative entry for the given animal, if known.
func (p *Profile) relativeOf(animalID uuid.UUID) (Relative, bool) {
	for _, r := range p.KnownCloseRelatives {
		if r.AnimalID == animalID {
			return r, true
		}
	}
	return Relative{}, false
}

func clampTrait(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
