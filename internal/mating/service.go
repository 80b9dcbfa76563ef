package mating

import (
	"context"
	"encoding/json"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/pregnancy"
	"herdbook-backend/internal/registry"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service records breeding attempts and fans successful outcomes out into
// pregnancies. The fan-out is the single point where mating→pregnancy
// happens and runs inside one transaction.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
}

var validMatingTypes = map[string]bool{
	models.MatingTypeNatural:    true,
	models.MatingTypeAI:         true,
	models.MatingTypeHandMating: true,
	models.MatingTypePasture:    true,
}

type RecordMatingInput struct {
	FarmID     uuid.UUID
	SireID     uuid.UUID
	DamIDs     []uuid.UUID
	MatingDate time.Time
	MatingType string
	Notes      string
	Metadata   map[string]interface{}
}

// RecordMating validates eligibility of the sire and every dam, then
// persists a planned MatingEvent with its dam links.
func (s *Service) RecordMating(ctx context.Context, in RecordMatingInput) (*models.MatingEvent, error) {
	if len(in.DamIDs) == 0 {
		return nil, apperr.Validation("At least one dam is required")
	}
	if !validMatingTypes[in.MatingType] {
		return nil, apperr.Validation("Invalid mating type %q", in.MatingType)
	}
	if in.MatingDate.IsZero() {
		return nil, apperr.Validation("mating_date is required")
	}

	sire, err := s.Registry.GetAnimalInFarm(ctx, in.SireID, in.FarmID)
	if err != nil {
		return nil, err
	}
	if sire.Gender != "male" {
		return nil, apperr.InvalidSex("Sire %s is not male", sire.TagNumber)
	}
	if err := s.requireReproduction(ctx, sire.AnimalTypeID); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(in.DamIDs))
	for _, damID := range in.DamIDs {
		if seen[damID] {
			return nil, apperr.Validation("Duplicate dam %s", damID)
		}
		seen[damID] = true

		dam, err := s.Registry.GetAnimalInFarm(ctx, damID, in.FarmID)
		if err != nil {
			return nil, err
		}
		if dam.Gender != "female" {
			return nil, apperr.InvalidSex("Dam %s is not female", dam.TagNumber)
		}
		if err := s.requireReproduction(ctx, dam.AnimalTypeID); err != nil {
			return nil, err
		}
		active, err := s.activePregnancyExists(s.DB.WithContext(ctx), damID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, apperr.Conflict("Dam %s already has an active pregnancy", dam.TagNumber)
		}
	}

	var metadata datatypes.JSON
	if in.Metadata != nil {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, apperr.Validation("Invalid metadata")
		}
		metadata = datatypes.JSON(b)
	}

	event := &models.MatingEvent{
		FarmID:     in.FarmID,
		SireID:     in.SireID,
		MatingType: in.MatingType,
		MatingDate: in.MatingDate,
		Status:     models.MatingStatusPlanned,
		Notes:      in.Notes,
		Metadata:   metadata,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		for _, damID := range in.DamIDs {
			if err := tx.Create(&models.MatingDam{MatingID: event.MatingID, DamID: damID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetMating(ctx, event.MatingID)
}

// GetMating resolves a mating event with its dam links.
func (s *Service) GetMating(ctx context.Context, matingID uuid.UUID) (*models.MatingEvent, error) {
	var event models.MatingEvent
	err := s.DB.WithContext(ctx).Preload("Dams").Where("mating_id = ?", matingID).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Mating event not found")
		}
		return nil, err
	}
	return &event, nil
}

// ListFarmMatings returns a farm's mating events, newest first.
func (s *Service) ListFarmMatings(ctx context.Context, farmID uuid.UUID) ([]models.MatingEvent, error) {
	var events []models.MatingEvent
	err := s.DB.WithContext(ctx).Preload("Dams").
		Where("farm_id = ?", farmID).
		Order("mating_date DESC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// RecordOutcome records the mating outcome once. A successful outcome
// creates one pregnancy per dam inside a single transaction; re-invoking on
// an already-successful event is a no-op for dams that already have their
// pregnancy (idempotent fan-out).
func (s *Service) RecordOutcome(ctx context.Context, matingID uuid.UUID, outcome, notes string) (*models.MatingEvent, []models.Pregnancy, error) {
	switch outcome {
	case models.MatingOutcomeSuccessful, models.MatingOutcomeUnsuccessful, models.MatingOutcomeUnknown:
	default:
		return nil, nil, apperr.Validation("Invalid outcome %q", outcome)
	}

	event, err := s.GetMating(ctx, matingID)
	if err != nil {
		return nil, nil, err
	}
	if event.Status == models.MatingStatusCancelled || event.Status == models.MatingStatusFailed {
		return nil, nil, apperr.InvalidTransition("Mating event is %s; outcome cannot be recorded", event.Status)
	}
	if event.Outcome != nil && *event.Outcome != outcome {
		return nil, nil, apperr.InvalidTransition("Outcome already recorded as %s", *event.Outcome)
	}

	sire, err := s.Registry.GetAnimal(ctx, event.SireID)
	if err != nil {
		return nil, nil, err
	}

	// Resolve gestation per dam before opening the transaction.
	type damPlan struct {
		dam           *models.Animal
		gestationDays int
	}
	var plans []damPlan
	if outcome == models.MatingOutcomeSuccessful {
		for _, link := range event.Dams {
			dam, err := s.Registry.GetAnimal(ctx, link.DamID)
			if err != nil {
				return nil, nil, err
			}
			plans = append(plans, damPlan{dam: dam, gestationDays: s.Registry.GestationDaysFor(ctx, dam, sire)})
		}
	}

	var created []models.Pregnancy
	now := time.Now()

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":  models.MatingStatusCompleted,
			"outcome": outcome,
		}
		if notes != "" {
			updates["notes"] = notes
		}
		if outcome == models.MatingOutcomeUnsuccessful {
			updates["status"] = models.MatingStatusFailed
		}
		if err := tx.Model(&models.MatingEvent{}).Where("mating_id = ?", matingID).Updates(updates).Error; err != nil {
			return err
		}

		for _, plan := range plans {
			// Idempotency: skip dams whose pregnancy for this event exists.
			var existing int64
			if err := tx.Model(&models.Pregnancy{}).
				Where("mating_event_id = ? AND dam_id = ?", matingID, plan.dam.AnimalID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				continue
			}

			// One active pregnancy per dam. The guard read catches the
			// sequential case; the partial unique index behind
			// pregnancy.Insert catches the concurrent one.
			active, err := s.activePregnancyExists(tx, plan.dam.AnimalID)
			if err != nil {
				return err
			}
			if active {
				return apperr.Conflict("Dam %s already has an active pregnancy", plan.dam.TagNumber)
			}

			conception := event.MatingDate
			preg := models.Pregnancy{
				FarmID:                event.FarmID,
				DamID:                 plan.dam.AnimalID,
				SireID:                event.SireID,
				MatingEventID:         matingID,
				ConceptionDate:        conception,
				ConfirmedDate:         &now,
				ExpectedGestationDays: plan.gestationDays,
				ExpectedDeliveryDate:  conception.AddDate(0, 0, plan.gestationDays),
				Status:                models.PregnancyStatusConfirmed,
			}
			if err := pregnancy.Insert(tx, &preg, plan.dam.TagNumber); err != nil {
				return err
			}
			if err := s.Registry.SetReproductiveStatus(tx, plan.dam.AnimalID, models.ReproStatusPregnant); err != nil {
				return err
			}
			created = append(created, preg)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	updated, err := s.GetMating(ctx, matingID)
	if err != nil {
		return nil, nil, err
	}
	return updated, created, nil
}

type UpdateMatingInput struct {
	MatingID   uuid.UUID
	MatingDate *time.Time
	MatingType *string
	Notes      *string
}

// UpdateMating changes mutable fields of a planned event. Sire, dams and
// farm are immutable once recorded; the handler rejects attempts to rebind
// them before reaching here.
func (s *Service) UpdateMating(ctx context.Context, in UpdateMatingInput) (*models.MatingEvent, error) {
	event, err := s.GetMating(ctx, in.MatingID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.MatingStatusPlanned {
		return nil, apperr.InvalidTransition("Only planned mating events can be edited")
	}

	updates := map[string]interface{}{}
	if in.MatingDate != nil {
		updates["mating_date"] = *in.MatingDate
	}
	if in.MatingType != nil {
		if !validMatingTypes[*in.MatingType] {
			return nil, apperr.Validation("Invalid mating type %q", *in.MatingType)
		}
		updates["mating_type"] = *in.MatingType
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("No valid changes provided")
	}
	if err := s.DB.WithContext(ctx).Model(&models.MatingEvent{}).Where("mating_id = ?", in.MatingID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetMating(ctx, in.MatingID)
}

// CancelMating cancels a planned mating event.
func (s *Service) CancelMating(ctx context.Context, matingID uuid.UUID) (*models.MatingEvent, error) {
	event, err := s.GetMating(ctx, matingID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.MatingStatusPlanned {
		return nil, apperr.InvalidTransition("Only planned mating events can be cancelled")
	}
	if err := s.DB.WithContext(ctx).Model(&models.MatingEvent{}).
		Where("mating_id = ?", matingID).
		Update("status", models.MatingStatusCancelled).Error; err != nil {
		return nil, err
	}
	return s.GetMating(ctx, matingID)
}

func (s *Service) requireReproduction(ctx context.Context, typeID uuid.UUID) error {
	enabled, err := s.Registry.ReproductionEnabled(ctx, typeID)
	if err != nil {
		return err
	}
	if !enabled {
		return apperr.FeatureDisabled("Reproduction is not enabled for this animal type")
	}
	return nil
}

func (s *Service) activePregnancyExists(db *gorm.DB, damID uuid.UUID) (bool, error) {
	var count int64
	err := db.Model(&models.Pregnancy{}).
		Where("dam_id = ? AND status IN ?", damID, []string{models.PregnancyStatusConfirmed, models.PregnancyStatusProgressing}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
