package genetics

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// profileTTL is the cache freshness window.
	profileTTL = 24 * time.Hour

	pedigreeDepth = 3
	pedigreeCap   = 50

	recommendationCap = 10
)

// IsStale reports whether a profile computed at computedAt needs a rebuild.
func IsStale(computedAt, now time.Time) bool {
	return now.Sub(computedAt) >= profileTTL
}

// Engine computes and caches genetic profiles. It only reads the registry
// and the reproduction chain; the cache row is the single thing it writes.
// Concurrent refreshes of the same animal collapse into one computation.
type Engine struct {
	DB       *gorm.DB
	Registry *registry.Service

	group singleflight.Group
}

// ComputeProfile returns the animal's profile row, rebuilding it when the
// cache is missing, stale, or forceRefresh is set. The cached payload is
// returned byte-for-byte while it is fresh.
func (e *Engine) ComputeProfile(ctx context.Context, animalID uuid.UUID, forceRefresh bool) (*models.GeneticProfile, error) {
	animal, err := e.Registry.GetAnimal(ctx, animalID)
	if err != nil {
		return nil, err
	}
	animalType, err := e.Registry.GetAnimalType(ctx, animal.AnimalTypeID)
	if err != nil {
		return nil, err
	}
	if !animalType.EnableGenetics {
		return nil, apperr.FeatureDisabled("Genetics is not enabled for animal type %s", animalType.Name)
	}

	if !forceRefresh {
		if cached, err := e.cachedRow(ctx, animalID); err != nil {
			return nil, err
		} else if cached != nil && !IsStale(cached.ComputedAt, time.Now()) {
			return cached, nil
		}
	}

	row, err, _ := e.group.Do(animalID.String(), func() (interface{}, error) {
		// A concurrent caller may have refreshed while we waited.
		if !forceRefresh {
			if cached, err := e.cachedRow(ctx, animalID); err != nil {
				return nil, err
			} else if cached != nil && !IsStale(cached.ComputedAt, time.Now()) {
				return cached, nil
			}
		}
		profile, err := e.buildProfile(ctx, animal, animalType, true)
		if err != nil {
			return nil, err
		}
		return e.store(ctx, profile)
	})
	if err != nil {
		return nil, err
	}
	return row.(*models.GeneticProfile), nil
}

// DecodeProfile unpacks the cached payload.
func DecodeProfile(row *models.GeneticProfile) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(row.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (e *Engine) cachedRow(ctx context.Context, animalID uuid.UUID) (*models.GeneticProfile, error) {
	var row models.GeneticProfile
	err := e.DB.WithContext(ctx).Where("animal_id = ?", animalID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// store upserts the single cache row for the animal.
func (e *Engine) store(ctx context.Context, p *Profile) (*models.GeneticProfile, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	existing, err := e.cachedRow(ctx, p.AnimalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		updates := map[string]interface{}{
			"is_breeder":             p.BreedingProfile.IsBreeder,
			"eligibility":            p.BreedingProfile.Eligibility,
			"inbreeding_coefficient": p.InbreedingCoefficient,
			"payload":                datatypes.JSON(payload),
			"computed_at":            p.ComputedAt,
		}
		if err := e.DB.WithContext(ctx).Model(&models.GeneticProfile{}).
			Where("profile_id = ?", existing.ProfileID).Updates(updates).Error; err != nil {
			return nil, err
		}
		return e.cachedRow(ctx, p.AnimalID)
	}

	row := &models.GeneticProfile{
		AnimalID:              p.AnimalID,
		FarmID:                p.FarmID,
		IsBreeder:             p.BreedingProfile.IsBreeder,
		Eligibility:           p.BreedingProfile.Eligibility,
		InbreedingCoefficient: p.InbreedingCoefficient,
		Payload:               datatypes.JSON(payload),
		ComputedAt:            p.ComputedAt,
	}
	if err := e.DB.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// buildProfile runs the passes in order. withRecommendations is false for
// candidate profiles built during the recommendation scan, which keeps the
// scan from recursing.
func (e *Engine) buildProfile(ctx context.Context, animal *models.Animal, animalType *models.AnimalType, withRecommendations bool) (*Profile, error) {
	now := time.Now()
	p := &Profile{
		AnimalID:   animal.AnimalID,
		FarmID:     animal.FarmID,
		TagNumber:  animal.TagNumber,
		Gender:     animal.Gender,
		ComputedAt: now,
	}

	p.BreedingProfile = e.breedingProfile(animal, animalType, now)

	metrics, err := e.performanceMetrics(ctx, animal)
	if err != nil {
		return nil, err
	}
	p.PerformanceMetrics = metrics

	traits, err := e.traits(ctx, animal, metrics, now)
	if err != nil {
		return nil, err
	}
	p.Traits = traits

	relatives, err := e.closeRelatives(ctx, animal)
	if err != nil {
		return nil, err
	}
	p.KnownCloseRelatives = relatives

	coefficient, err := e.inbreedingCoefficient(ctx, animal)
	if err != nil {
		return nil, err
	}
	p.InbreedingCoefficient = coefficient

	pedigree, err := e.pedigree(ctx, animal)
	if err != nil {
		return nil, err
	}
	p.Pedigree = pedigree

	if withRecommendations && p.BreedingProfile.IsBreeder && p.BreedingProfile.Eligibility == EligibilityEligible {
		recs, err := e.recommendations(ctx, animal, p)
		if err != nil {
			return nil, err
		}
		p.Recommendations = recs
	} else {
		p.Recommendations = Recommendations{
			RecommendedPairs: []PairSuggestion{},
			AvoidPairs:       []PairSuggestion{},
		}
	}
	return p, nil
}

// breedingProfile is pass one.
func (e *Engine) breedingProfile(animal *models.Animal, animalType *models.AnimalType, now time.Time) BreedingProfile {
	bp := BreedingProfile{Season: animalType.BreedingSeason}

	sexed := animal.Gender == "male" || animal.Gender == "female"
	alive := animal.Status == models.AnimalStatusAlive && animal.IsActive

	statusOK := false
	switch animal.Gender {
	case "female":
		statusOK = animal.ReproductiveStatus == nil ||
			*animal.ReproductiveStatus == models.ReproStatusOpen ||
			*animal.ReproductiveStatus == models.ReproStatusDry
	case "male":
		statusOK = animal.BreedingStatus == nil ||
			*animal.BreedingStatus == models.BreedingStatusActive
	}
	bp.IsBreeder = sexed && animalType.EnableGenetics && alive && statusOK

	switch {
	case !sexed, !alive,
		animal.AgeDays(now) < animalType.MinBreedingAgeDays,
		animal.IsInfertile:
		bp.Eligibility = EligibilityIneligible
	case animal.HealthStatus == "poor" || animal.HealthStatus == "critical":
		bp.Eligibility = EligibilityRestricted
	default:
		bp.Eligibility = EligibilityEligible
	}
	return bp
}

// performanceMetrics is pass two: aggregate the reproduction history.
func (e *Engine) performanceMetrics(ctx context.Context, animal *models.Animal) (PerformanceMetrics, error) {
	var m PerformanceMetrics
	db := e.DB.WithContext(ctx)

	if animal.Gender == "male" {
		var total, successful int64
		if err := db.Model(&models.MatingEvent{}).Where("sire_id = ?", animal.AnimalID).Count(&total).Error; err != nil {
			return m, err
		}
		if err := db.Model(&models.MatingEvent{}).
			Where("sire_id = ? AND outcome = ?", animal.AnimalID, models.MatingOutcomeSuccessful).
			Count(&successful).Error; err != nil {
			return m, err
		}
		m.TotalMatings = int(total)
		m.SuccessfulMatings = int(successful)
		if total > 0 {
			m.MatingSuccessRate = float64(successful) / float64(total) * 100
		}
	}

	if animal.Gender == "female" {
		var pregnancies []models.Pregnancy
		if err := db.Where("dam_id = ?", animal.AnimalID).Find(&pregnancies).Error; err != nil {
			return m, err
		}
		m.TotalPregnancies = len(pregnancies)

		gestationSum, gestationN := 0.0, 0
		for _, p := range pregnancies {
			if p.Status == models.PregnancyStatusDelivered {
				m.DeliveredPregnancies++
			}
			if p.ActualDeliveryDate != nil {
				gestationSum += p.ActualDeliveryDate.Sub(p.ConceptionDate).Hours() / 24
				gestationN++
			}
		}
		if m.TotalPregnancies > 0 {
			m.PregnancySuccessRate = float64(m.DeliveredPregnancies) / float64(m.TotalPregnancies) * 100
		}
		if gestationN > 0 {
			m.AvgGestationDays = gestationSum / float64(gestationN)
		}

		var births []models.BirthEvent
		if err := db.Where("dam_id = ?", animal.AnimalID).Find(&births).Error; err != nil {
			return m, err
		}
		if len(births) > 0 {
			litterSum := 0
			for _, b := range births {
				litterSum += b.TotalOffspring
			}
			m.AvgLitterSize = float64(litterSum) / float64(len(births))
		}
	}

	var children []models.Animal
	if err := db.Where("sire_id = ? OR dam_id = ?", animal.AnimalID, animal.AnimalID).Find(&children).Error; err != nil {
		return m, err
	}
	m.TotalOffspring = len(children)
	for _, c := range children {
		if c.Status != models.AnimalStatusDied {
			m.LiveOffspring++
		}
	}
	if m.TotalOffspring > 0 {
		m.OffspringSurvivalRate = float64(m.LiveOffspring) / float64(m.TotalOffspring) * 100
	}
	return m, nil
}

// traits is pass three. Each trait falls back to 5 when the history carries
// no signal for it.
func (e *Engine) traits(ctx context.Context, animal *models.Animal, m PerformanceMetrics, now time.Time) (Traits, error) {
	t := Traits{GrowthRate: 5, Fertility: 5, LitterSizePotential: 5, OffspringViability: 5}

	// Growth: daily weight gain since birth, scaled.
	if animal.Weight != nil {
		var tracking models.OffspringTracking
		err := e.DB.WithContext(ctx).Where("offspring_id = ?", animal.AnimalID).First(&tracking).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return t, err
		}
		if err == nil && tracking.BirthWeight != nil {
			if age := animal.AgeDays(now); age > 0 {
				gain := (*animal.Weight - *tracking.BirthWeight) / float64(age)
				t.GrowthRate = clampTrait(gain * 100)
			}
		}
	}

	switch animal.Gender {
	case "male":
		if m.TotalMatings > 0 {
			t.Fertility = clampTrait(m.MatingSuccessRate / 10)
		}
	case "female":
		if m.TotalPregnancies > 0 {
			t.Fertility = clampTrait(m.PregnancySuccessRate / 10)
		}
	}

	if m.AvgLitterSize > 0 {
		t.LitterSizePotential = clampTrait(m.AvgLitterSize)
	}
	if m.TotalOffspring > 0 {
		t.OffspringViability = clampTrait(m.OffspringSurvivalRate / 10)
	}
	return t, nil
}

// closeRelatives is pass four's relative map: parents at 0.5, grandparents
// at 0.25, full siblings at 0.5, half siblings at 0.25, own offspring at
// 0.5 and grandchildren at 0.25.
func (e *Engine) closeRelatives(ctx context.Context, animal *models.Animal) ([]Relative, error) {
	relatives := []Relative{}
	seen := map[uuid.UUID]bool{animal.AnimalID: true}

	add := func(id uuid.UUID, relationship string, coefficient float64) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		r := Relative{AnimalID: id, Relationship: relationship, Coefficient: coefficient}
		if a, err := e.Registry.GetAnimal(ctx, id); err == nil {
			r.TagNumber = a.TagNumber
		}
		relatives = append(relatives, r)
		return nil
	}

	// Parents, and their parents re-labelled one generation back.
	for _, parentID := range []*uuid.UUID{animal.SireID, animal.DamID} {
		if parentID == nil {
			continue
		}
		if err := add(*parentID, RelationParent, 0.5); err != nil {
			return nil, err
		}
		parent, err := e.Registry.GetAnimal(ctx, *parentID)
		if err != nil {
			continue
		}
		for _, gpID := range []*uuid.UUID{parent.SireID, parent.DamID} {
			if gpID == nil {
				continue
			}
			if err := add(*gpID, RelationGrandparent, 0.25); err != nil {
				return nil, err
			}
		}
	}

	// Siblings: full share both parents, half share exactly one.
	if animal.SireID != nil || animal.DamID != nil {
		var siblings []models.Animal
		query := e.DB.WithContext(ctx).Where("animal_id <> ?", animal.AnimalID)
		switch {
		case animal.SireID != nil && animal.DamID != nil:
			query = query.Where("sire_id = ? OR dam_id = ?", *animal.SireID, *animal.DamID)
		case animal.SireID != nil:
			query = query.Where("sire_id = ?", *animal.SireID)
		default:
			query = query.Where("dam_id = ?", *animal.DamID)
		}
		if err := query.Find(&siblings).Error; err != nil {
			return nil, err
		}
		for _, s := range siblings {
			full := animal.SireID != nil && animal.DamID != nil &&
				s.SireID != nil && s.DamID != nil &&
				*s.SireID == *animal.SireID && *s.DamID == *animal.DamID
			if full {
				relatives = appendRelative(relatives, seen, s, RelationFullSibling, 0.5)
			} else {
				relatives = appendRelative(relatives, seen, s, RelationHalfSibling, 0.25)
			}
		}
	}

	// Own offspring, and their offspring.
	var children []models.Animal
	if err := e.DB.WithContext(ctx).
		Where("sire_id = ? OR dam_id = ?", animal.AnimalID, animal.AnimalID).
		Find(&children).Error; err != nil {
		return nil, err
	}
	for _, c := range children {
		relatives = appendRelative(relatives, seen, c, RelationOffspring, 0.5)

		var grandchildren []models.Animal
		if err := e.DB.WithContext(ctx).
			Where("sire_id = ? OR dam_id = ?", c.AnimalID, c.AnimalID).
			Find(&grandchildren).Error; err != nil {
			return nil, err
		}
		for _, gc := range grandchildren {
			relatives = appendRelative(relatives, seen, gc, RelationGrandchild, 0.25)
		}
	}
	return relatives, nil
}

func appendRelative(list []Relative, seen map[uuid.UUID]bool, a models.Animal, relationship string, coefficient float64) []Relative {
	if seen[a.AnimalID] {
		return list
	}
	seen[a.AnimalID] = true
	return append(list, Relative{
		AnimalID:     a.AnimalID,
		TagNumber:    a.TagNumber,
		Relationship: relationship,
		Coefficient:  coefficient,
	})
}

// inbreedingCoefficient detects common ancestry between the two parent
// lines: any animal appearing in both the sire's and the dam's relative
// sets contributes both coefficients; the result is their average, clamped
// to [0,1]. No parents, or no overlap, means 0.
func (e *Engine) inbreedingCoefficient(ctx context.Context, animal *models.Animal) (float64, error) {
	if animal.SireID == nil || animal.DamID == nil {
		return 0, nil
	}
	sire, err := e.Registry.GetAnimal(ctx, *animal.SireID)
	if err != nil {
		return 0, nil
	}
	dam, err := e.Registry.GetAnimal(ctx, *animal.DamID)
	if err != nil {
		return 0, nil
	}

	sireRelatives, err := e.closeRelatives(ctx, sire)
	if err != nil {
		return 0, err
	}
	damRelatives, err := e.closeRelatives(ctx, dam)
	if err != nil {
		return 0, err
	}

	damByID := make(map[uuid.UUID]float64, len(damRelatives))
	for _, r := range damRelatives {
		damByID[r.AnimalID] = r.Coefficient
	}

	sum, n := 0.0, 0
	for _, r := range sireRelatives {
		if r.AnimalID == animal.AnimalID {
			continue
		}
		if damCoef, ok := damByID[r.AnimalID]; ok {
			sum += r.Coefficient
			sum += damCoef
			n += 2
		}
	}
	// The parents being directly related (dam in sire's set) counts too.
	if coef, ok := damByID[sire.AnimalID]; ok {
		sum += coef
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return clamp01(sum / float64(n)), nil
}

// pedigree is pass five: a depth-first ancestor trace bounded by depth and
// a hard entry cap, with a visited set guarding against malformed cyclic
// parent links.
func (e *Engine) pedigree(ctx context.Context, animal *models.Animal) ([]PedigreeEntry, error) {
	entries := []PedigreeEntry{}
	visited := map[uuid.UUID]bool{animal.AnimalID: true}

	var trace func(id uuid.UUID, generation int) error
	trace = func(id uuid.UUID, generation int) error {
		if generation > pedigreeDepth || len(entries) >= pedigreeCap || visited[id] {
			return nil
		}
		visited[id] = true

		ancestor, err := e.Registry.GetAnimal(ctx, id)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return nil
			}
			return err
		}
		entries = append(entries, PedigreeEntry{
			AnimalID:   ancestor.AnimalID,
			TagNumber:  ancestor.TagNumber,
			Name:       ancestor.Name,
			Gender:     ancestor.Gender,
			Generation: generation,
		})

		if ancestor.SireID != nil {
			if err := trace(*ancestor.SireID, generation+1); err != nil {
				return err
			}
		}
		if ancestor.DamID != nil {
			if err := trace(*ancestor.DamID, generation+1); err != nil {
				return err
			}
		}
		return nil
	}

	if animal.SireID != nil {
		if err := trace(*animal.SireID, 1); err != nil {
			return nil, err
		}
	}
	if animal.DamID != nil {
		if err := trace(*animal.DamID, 1); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// recommendations is pass six: scan the farm's opposite-gender breeders of
// the same type, score each pair, and keep the top ten on each side.
func (e *Engine) recommendations(ctx context.Context, animal *models.Animal, own *Profile) (Recommendations, error) {
	recs := Recommendations{
		RecommendedPairs: []PairSuggestion{},
		AvoidPairs:       []PairSuggestion{},
	}

	opposite := "female"
	if animal.Gender == "female" {
		opposite = "male"
	}
	candidates, err := e.Registry.ListFarmBreeders(ctx, animal.FarmID, animal.AnimalTypeID, opposite)
	if err != nil {
		return recs, err
	}

	animalType, err := e.Registry.GetAnimalType(ctx, animal.AnimalTypeID)
	if err != nil {
		return recs, err
	}

	for i := range candidates {
		candidate := &candidates[i]
		candidateProfile, err := e.buildProfile(ctx, candidate, animalType, false)
		if err != nil {
			continue
		}
		assessment := CanBreedWith(own, candidateProfile)
		score := CompatibilityScore(own, candidateProfile)
		suggestion := PairSuggestion{
			AnimalID:  candidate.AnimalID,
			TagNumber: candidate.TagNumber,
			Score:     score,
			RiskLevel: assessment.RiskLevel,
			Reason:    assessment.Reason,
		}
		if assessment.CanBreed {
			recs.RecommendedPairs = append(recs.RecommendedPairs, suggestion)
		} else {
			recs.AvoidPairs = append(recs.AvoidPairs, suggestion)
		}
	}

	sort.SliceStable(recs.RecommendedPairs, func(i, j int) bool {
		return recs.RecommendedPairs[i].Score > recs.RecommendedPairs[j].Score
	})
	sort.SliceStable(recs.AvoidPairs, func(i, j int) bool {
		return recs.AvoidPairs[i].Score > recs.AvoidPairs[j].Score
	})
	if len(recs.RecommendedPairs) > recommendationCap {
		recs.RecommendedPairs = recs.RecommendedPairs[:recommendationCap]
	}
	if len(recs.AvoidPairs) > recommendationCap {
		recs.AvoidPairs = recs.AvoidPairs[:recommendationCap]
	}
	return recs, nil
}

// FarmPairSuggestion pairs one dam with one scored sire candidate.
type FarmPairSuggestion struct {
	DamID        uuid.UUID `json:"dam_id"`
	DamTagNumber string    `json:"dam_tag_number"`
	SireID       uuid.UUID `json:"sire_id"`
	SireTag      string    `json:"sire_tag_number"`
	Score        float64   `json:"score"`
	RiskLevel    string    `json:"risk_level"`
}

// FarmPairSuggestions walks the farm's eligible dams and flattens their
// recommended pairs into one list, best score first.
func (e *Engine) FarmPairSuggestions(ctx context.Context, farmID uuid.UUID) ([]FarmPairSuggestion, error) {
	animals, err := e.Registry.ListFarmAnimals(ctx, farmID)
	if err != nil {
		return nil, err
	}

	suggestions := []FarmPairSuggestion{}
	for i := range animals {
		a := &animals[i]
		if a.Gender != "female" || a.Status != models.AnimalStatusAlive || !a.IsActive {
			continue
		}
		row, err := e.ComputeProfile(ctx, a.AnimalID, false)
		if err != nil {
			// Genetics may be off for this animal's type; skip, don't abort.
			if apperr.IsKind(err, apperr.KindFeatureDisabled) {
				continue
			}
			return nil, err
		}
		profile, err := DecodeProfile(row)
		if err != nil {
			return nil, err
		}
		for _, pair := range profile.Recommendations.RecommendedPairs {
			suggestions = append(suggestions, FarmPairSuggestion{
				DamID:        a.AnimalID,
				DamTagNumber: a.TagNumber,
				SireID:       pair.AnimalID,
				SireTag:      pair.TagNumber,
				Score:        pair.Score,
				RiskLevel:    pair.RiskLevel,
			})
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	return suggestions, nil
}

// BatchResult reports a farm-wide recomputation. Failures are collected
// per animal; one bad animal never aborts the batch.
type BatchResult struct {
	Computed int               `json:"computed"`
	Failed   int               `json:"failed"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// BatchCompute force-refreshes every profile on the farm, best effort.
func (e *Engine) BatchCompute(ctx context.Context, farmID uuid.UUID) (*BatchResult, error) {
	animals, err := e.Registry.ListFarmAnimals(ctx, farmID)
	if err != nil {
		return nil, err
	}
	result := &BatchResult{Errors: map[string]string{}}
	for i := range animals {
		if _, err := e.ComputeProfile(ctx, animals[i].AnimalID, true); err != nil {
			log.Warn().Err(err).Str("animal_id", animals[i].AnimalID.String()).Msg("batch profile compute failed")
			result.Failed++
			result.Errors[animals[i].AnimalID.String()] = err.Error()
			continue
		}
		result.Computed++
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}
