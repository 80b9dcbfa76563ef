package birth

import (
	"context"
	"encoding/json"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/offspring"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/pkg/validation"
	"herdbook-backend/internal/registry"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service records deliveries. Recording a birth closes the pregnancy and
// materializes live offspring in one transaction; a partial failure rolls
// everything back and is logged, never swallowed.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
	Factory  *offspring.Factory
}

type RecordBirthInput struct {
	PregnancyID     uuid.UUID
	DamID           uuid.UUID
	SireID          uuid.UUID
	BirthDate       time.Time
	TotalOffspring  int
	LiveBirths      int
	Stillbirths     int
	WeakOffspring   int
	MaleOffspring   int
	FemaleOffspring int
	Notes           string
}

// RecordBirth validates the pregnancy state and count invariants, then runs
// the delivery transaction: birth event → pregnancy delivered → one factory
// call per live birth → offspring ids appended to the event.
func (s *Service) RecordBirth(ctx context.Context, in RecordBirthInput) (*models.BirthEvent, []models.Animal, error) {
	var p models.Pregnancy
	if err := s.DB.WithContext(ctx).Where("pregnancy_id = ?", in.PregnancyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperr.NotFound("Pregnancy not found")
		}
		return nil, nil, err
	}
	if !p.IsActive() {
		return nil, nil, apperr.InvalidTransition("Pregnancy is %s; a birth cannot be recorded", p.Status)
	}
	if p.DamID != in.DamID {
		return nil, nil, apperr.Validation("dam_id does not match the pregnancy's dam")
	}
	if p.SireID != in.SireID {
		return nil, nil, apperr.Validation("sire_id does not match the pregnancy's sire")
	}

	dam, err := s.Registry.GetAnimal(ctx, in.DamID)
	if err != nil {
		return nil, nil, err
	}
	if dam.Gender != "female" {
		return nil, nil, apperr.InvalidSex("Dam %s is not female", dam.TagNumber)
	}
	sire, err := s.Registry.GetAnimal(ctx, in.SireID)
	if err != nil {
		return nil, nil, err
	}
	if sire.Gender != "male" {
		return nil, nil, apperr.InvalidSex("Sire %s is not male", sire.TagNumber)
	}

	if err := validation.ValidateBirthCounts(validation.BirthCounts{
		TotalOffspring:  in.TotalOffspring,
		LiveBirths:      in.LiveBirths,
		Stillbirths:     in.Stillbirths,
		WeakOffspring:   in.WeakOffspring,
		MaleOffspring:   in.MaleOffspring,
		FemaleOffspring: in.FemaleOffspring,
	}); err != nil {
		return nil, nil, err
	}
	if in.BirthDate.IsZero() {
		return nil, nil, apperr.Validation("birth_date is required")
	}

	var existing int64
	if err := s.DB.WithContext(ctx).Model(&models.BirthEvent{}).
		Where("pregnancy_id = ?", in.PregnancyID).Count(&existing).Error; err != nil {
		return nil, nil, err
	}
	if existing > 0 {
		return nil, nil, apperr.Conflict("A birth is already recorded for this pregnancy")
	}

	// Offspring type: dam's animal type, falling back to the sire's.
	animalType, err := s.Registry.GetAnimalType(ctx, dam.AnimalTypeID)
	if err != nil {
		animalType, err = s.Registry.GetAnimalType(ctx, sire.AnimalTypeID)
		if err != nil {
			return nil, nil, err
		}
	}

	event := &models.BirthEvent{
		FarmID:          p.FarmID,
		PregnancyID:     in.PregnancyID,
		DamID:           in.DamID,
		SireID:          in.SireID,
		BirthDate:       in.BirthDate,
		TotalOffspring:  in.TotalOffspring,
		LiveBirths:      in.LiveBirths,
		Stillbirths:     in.Stillbirths,
		WeakOffspring:   in.WeakOffspring,
		MaleOffspring:   in.MaleOffspring,
		FemaleOffspring: in.FemaleOffspring,
		Notes:           in.Notes,
	}

	var created []models.Animal
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Pregnancy{}).Where("pregnancy_id = ?", in.PregnancyID).Updates(map[string]interface{}{
			"status":               models.PregnancyStatusDelivered,
			"actual_delivery_date": in.BirthDate,
		}).Error; err != nil {
			return err
		}

		if event.LiveBirths > 0 {
			animals, _, err := s.Factory.CreateLitter(tx, event, dam, sire, animalType)
			if err != nil {
				return err
			}
			created = animals

			ids := make([]string, 0, len(animals))
			for _, a := range animals {
				ids = append(ids, a.AnimalID.String())
			}
			b, err := json.Marshal(ids)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.BirthEvent{}).Where("birth_id = ?", event.BirthID).
				Update("offspring_ids", datatypes.JSON(b)).Error; err != nil {
				return err
			}
			event.OffspringIDs = datatypes.JSON(b)
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).
			Str("pregnancy_id", in.PregnancyID.String()).
			Msg("birth transaction rolled back")
		return nil, nil, err
	}
	return event, created, nil
}

// PregnancyFarm returns the owning farm of a pregnancy (ownership checks).
func (s *Service) PregnancyFarm(ctx context.Context, pregnancyID uuid.UUID) (uuid.UUID, error) {
	var p models.Pregnancy
	if err := s.DB.WithContext(ctx).Select("farm_id").Where("pregnancy_id = ?", pregnancyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, apperr.NotFound("Pregnancy not found")
		}
		return uuid.Nil, err
	}
	return p.FarmID, nil
}

// GetBirth resolves a birth event by id.
func (s *Service) GetBirth(ctx context.Context, birthID uuid.UUID) (*models.BirthEvent, error) {
	var event models.BirthEvent
	if err := s.DB.WithContext(ctx).Where("birth_id = ?", birthID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Birth event not found")
		}
		return nil, err
	}
	return &event, nil
}

// ListFarmBirths returns a farm's birth events, newest first.
func (s *Service) ListFarmBirths(ctx context.Context, farmID uuid.UUID) ([]models.BirthEvent, error) {
	var events []models.BirthEvent
	if err := s.DB.WithContext(ctx).Where("farm_id = ?", farmID).Order("birth_date DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// RecordNeonatalDeath marks a live-born offspring of this birth as dead
// shortly after delivery. Birth-time tallies are immutable; the death lands
// on the tracking record and the registry entry.
func (s *Service) RecordNeonatalDeath(ctx context.Context, birthID, offspringID uuid.UUID, date time.Time, cause string) (*models.OffspringTracking, error) {
	if _, err := s.GetBirth(ctx, birthID); err != nil {
		return nil, err
	}
	var tracking models.OffspringTracking
	if err := s.DB.WithContext(ctx).Where("offspring_id = ?", offspringID).First(&tracking).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Offspring tracking not found")
		}
		return nil, err
	}
	if tracking.BirthEventID != birthID {
		return nil, apperr.Validation("Offspring does not belong to this birth event")
	}
	if tracking.Status == models.OffspringStatusDied {
		return nil, apperr.Conflict("Offspring is already recorded as died")
	}
	if date.IsZero() {
		date = time.Now()
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).Where("tracking_id = ?", tracking.TrackingID).Updates(map[string]interface{}{
			"status":      models.OffspringStatusDied,
			"death_date":  date,
			"death_cause": cause,
		}).Error; err != nil {
			return err
		}
		return s.Registry.MarkDead(tx, offspringID, date)
	})
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Where("tracking_id = ?", tracking.TrackingID).First(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}
