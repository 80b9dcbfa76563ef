package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the Animal Registry boundary. The reproduction chain reads
// identity, sex, status and type capabilities through it, and writes back
// only the narrow side effects (reproductive status, terminal status).
type Service struct {
	DB *gorm.DB
}

// GetAnimal resolves an animal by id.
func (s *Service) GetAnimal(ctx context.Context, animalID uuid.UUID) (*models.Animal, error) {
	return getAnimal(s.DB.WithContext(ctx), animalID)
}

func getAnimal(db *gorm.DB, animalID uuid.UUID) (*models.Animal, error) {
	var a models.Animal
	if err := db.Where("animal_id = ?", animalID).First(&a).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Animal %s not found", animalID)
		}
		return nil, err
	}
	return &a, nil
}

// GetAnimalInFarm resolves an animal and checks it belongs to the farm.
func (s *Service) GetAnimalInFarm(ctx context.Context, animalID, farmID uuid.UUID) (*models.Animal, error) {
	a, err := s.GetAnimal(ctx, animalID)
	if err != nil {
		return nil, err
	}
	if a.FarmID != farmID {
		return nil, apperr.NotFound("Animal %s not found", animalID)
	}
	return a, nil
}

// GetAnimalType resolves an animal type by id.
func (s *Service) GetAnimalType(ctx context.Context, typeID uuid.UUID) (*models.AnimalType, error) {
	var t models.AnimalType
	if err := s.DB.WithContext(ctx).Where("animal_type_id = ?", typeID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Animal type %s not found", typeID)
		}
		return nil, err
	}
	return &t, nil
}

// ReproductionEnabled reports the reproduction feature flag for an animal type.
func (s *Service) ReproductionEnabled(ctx context.Context, typeID uuid.UUID) (bool, error) {
	t, err := s.GetAnimalType(ctx, typeID)
	if err != nil {
		return false, err
	}
	return t.EnableReproduction, nil
}

// GeneticsSettings returns the animal type carrying the genetics configuration.
func (s *Service) GeneticsSettings(ctx context.Context, typeID uuid.UUID) (*models.AnimalType, error) {
	return s.GetAnimalType(ctx, typeID)
}

// GestationDaysFor resolves the expected gestation: dam's type, then sire's
// type, then the hard default.
func (s *Service) GestationDaysFor(ctx context.Context, dam, sire *models.Animal) int {
	if dam != nil {
		if t, err := s.GetAnimalType(ctx, dam.AnimalTypeID); err == nil && t.GestationPeriodDays > 0 {
			return t.GestationPeriodDays
		}
	}
	if sire != nil {
		if t, err := s.GetAnimalType(ctx, sire.AnimalTypeID); err == nil && t.GestationPeriodDays > 0 {
			return t.GestationPeriodDays
		}
	}
	return models.DefaultGestationDays
}

// CreateAnimalType persists a species configuration for a farm.
func (s *Service) CreateAnimalType(ctx context.Context, t *models.AnimalType) (*models.AnimalType, error) {
	if t.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// CreateAnimal registers an animal. Tag numbers are unique within a farm.
func (s *Service) CreateAnimal(ctx context.Context, a *models.Animal) (*models.Animal, error) {
	if a.TagNumber == "" {
		return nil, apperr.Validation("tag_number is required")
	}
	if a.Gender != "male" && a.Gender != "female" && a.Gender != "unknown" {
		return nil, apperr.Validation("gender must be male, female or unknown")
	}
	if _, err := s.GetAnimalType(ctx, a.AnimalTypeID); err != nil {
		return nil, err
	}
	var dup int64
	if err := s.DB.WithContext(ctx).Model(&models.Animal{}).
		Where("farm_id = ? AND tag_number = ?", a.FarmID, a.TagNumber).
		Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, apperr.Conflict("Tag number %s already in use on this farm", a.TagNumber)
	}
	if a.Status == "" {
		a.Status = models.AnimalStatusAlive
	}
	a.IsActive = a.Status == models.AnimalStatusAlive
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// SetReproductiveStatus writes the dam-side lifecycle side effect.
// Pass tx when the caller is inside a transaction, else s.DB.
func (s *Service) SetReproductiveStatus(db *gorm.DB, animalID uuid.UUID, status string) error {
	return db.Model(&models.Animal{}).
		Where("animal_id = ?", animalID).
		Update("reproductive_status", status).Error
}

// MarkDead mirrors a death onto the registry entry.
func (s *Service) MarkDead(db *gorm.DB, animalID uuid.UUID, date time.Time) error {
	return db.Model(&models.Animal{}).
		Where("animal_id = ?", animalID).
		Updates(map[string]interface{}{
			"status":        models.AnimalStatusDied,
			"is_active":     false,
			"date_of_death": date,
		}).Error
}

// MarkStatus mirrors a non-death terminal transition (sold, transferred, culled).
func (s *Service) MarkStatus(db *gorm.DB, animalID uuid.UUID, status string) error {
	return db.Model(&models.Animal{}).
		Where("animal_id = ?", animalID).
		Updates(map[string]interface{}{
			"status":    status,
			"is_active": false,
		}).Error
}

// speciesCodes maps species names to their 3-letter tag codes where the
// code differs from the first-3-letters fallback.
var speciesCodes = map[string]string{
	"rabbit":     "RAB",
	"sheep":      "SHP",
	"cattle":     "CTL",
	"chicken":    "CHK",
	"horse":      "HRS",
	"guinea pig": "GPG",
	"duck":       "DCK",
}

// SpeciesCode returns the 3-letter code for a species name, falling back to
// the first 3 letters uppercased.
func SpeciesCode(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := speciesCodes[key]; ok {
		return code
	}
	up := strings.ToUpper(key)
	up = strings.ReplaceAll(up, " ", "")
	if len(up) >= 3 {
		return up[:3]
	}
	return up
}

// GenerateOffspringTagNumber builds {CODE}{YY}{seq:03d}. seq is the count of
// the farm's animals born in birthDate's year whose tag matches the prefix,
// plus one. Runs on db so multiple births inside one transaction see each
// other's tags.
func GenerateOffspringTagNumber(db *gorm.DB, farmID uuid.UUID, speciesName string, birthDate time.Time) (string, error) {
	code := SpeciesCode(speciesName)
	yy := birthDate.Year() % 100
	prefix := fmt.Sprintf("%s%02d", code, yy)

	yearStart := time.Date(birthDate.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	var count int64
	err := db.Model(&models.Animal{}).
		Where("farm_id = ?", farmID).
		Where("tag_number LIKE ?", prefix+"%").
		Where("date_of_birth >= ? AND date_of_birth < ?", yearStart, yearEnd).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}

// ListFarmBreeders returns alive, active animals of the farm with the given
// gender and animal type (used by the pair recommendation scan).
func (s *Service) ListFarmBreeders(ctx context.Context, farmID, animalTypeID uuid.UUID, gender string) ([]models.Animal, error) {
	var animals []models.Animal
	err := s.DB.WithContext(ctx).
		Where("farm_id = ? AND animal_type_id = ? AND gender = ?", farmID, animalTypeID, gender).
		Where("status = ? AND is_active = ?", models.AnimalStatusAlive, true).
		Find(&animals).Error
	if err != nil {
		return nil, err
	}
	return animals, nil
}

// ListFarmAnimals returns every animal of a farm (batch profile computation).
func (s *Service) ListFarmAnimals(ctx context.Context, farmID uuid.UUID) ([]models.Animal, error) {
	var animals []models.Animal
	if err := s.DB.WithContext(ctx).Where("farm_id = ?", farmID).Find(&animals).Error; err != nil {
		return nil, err
	}
	return animals, nil
}
