package offspring

import (
	"herdbook-backend/internal/models"
	"herdbook-backend/internal/registry"

	"gorm.io/gorm"
)

// Factory materializes registry entries and tracking records for live
// births. It always runs on the caller's transaction so a failed litter
// rolls back the whole birth.
type Factory struct {
	Registry *registry.Service
}

// CreateLitter creates one Animal and one OffspringTracking per live birth
// index. Gender is assigned positionally: the first MaleOffspring are male,
// the rest female. This mirrors the recorded tallies rather than a
// per-individual gender capture; documented behavior, not a guarantee per
// animal.
func (f *Factory) CreateLitter(tx *gorm.DB, event *models.BirthEvent, dam, sire *models.Animal, animalType *models.AnimalType) ([]models.Animal, []models.OffspringTracking, error) {
	animals := make([]models.Animal, 0, event.LiveBirths)
	trackings := make([]models.OffspringTracking, 0, event.LiveBirths)

	for i := 0; i < event.LiveBirths; i++ {
		gender := "female"
		if i < event.MaleOffspring {
			gender = "male"
		}

		tag, err := registry.GenerateOffspringTagNumber(tx, event.FarmID, animalType.Name, event.BirthDate)
		if err != nil {
			return nil, nil, err
		}

		birthDate := event.BirthDate
		immature := models.ReproStatusImmature
		animal := models.Animal{
			FarmID:             event.FarmID,
			AnimalTypeID:       animalType.AnimalTypeID,
			TagNumber:          tag,
			Gender:             gender,
			Breed:              dam.Breed,
			DateOfBirth:        &birthDate,
			Status:             models.AnimalStatusAlive,
			IsActive:           true,
			ReproductiveStatus: &immature,
			HealthStatus:       "good",
			SireID:             &sire.AnimalID,
			DamID:              &dam.AnimalID,
			BirthEventID:       &event.BirthID,
		}
		if err := tx.Create(&animal).Error; err != nil {
			return nil, nil, err
		}

		tracking := models.OffspringTracking{
			FarmID:       event.FarmID,
			BirthEventID: event.BirthID,
			DamID:        dam.AnimalID,
			SireID:       sire.AnimalID,
			OffspringID:  animal.AnimalID,
			TagNumber:    animal.TagNumber,
			Name:         animal.Name,
			Gender:       animal.Gender,
			Breed:        animal.Breed,
			DateOfBirth:  animal.DateOfBirth,
			Status:       models.OffspringStatusAlive,
		}
		if err := tx.Create(&tracking).Error; err != nil {
			return nil, nil, err
		}

		animals = append(animals, animal)
		trackings = append(trackings, tracking)
	}
	return animals, trackings, nil
}
