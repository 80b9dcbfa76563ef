package registry

import (
	"context"
	"testing"
	"time"

	"herdbook-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRegistryTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Farm{}, &models.AnimalType{}, &models.Animal{}))
	return &Service{DB: db}, db
}

func TestSpeciesCode(t *testing.T) {
	assert.Equal(t, "RAB", SpeciesCode("Rabbit"))
	assert.Equal(t, "SHP", SpeciesCode("sheep"))
	assert.Equal(t, "GPG", SpeciesCode("Guinea Pig"))
	// Unknown species fall back to the first three letters, uppercased.
	assert.Equal(t, "GOA", SpeciesCode("goat"))
	assert.Equal(t, "AL", SpeciesCode("al"))
}

func TestGenerateOffspringTagNumber_SequencesWithinFarmAndYear(t *testing.T) {
	_, db := setupRegistryTest(t)

	farmID := uuid.New()
	birthDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

	tag, err := GenerateOffspringTagNumber(db, farmID, "Rabbit", birthDate)
	require.NoError(t, err)
	assert.Equal(t, "RAB25001", tag)

	dob := birthDate
	require.NoError(t, db.Create(&models.Animal{
		FarmID: farmID, AnimalTypeID: uuid.New(),
		TagNumber: tag, Gender: "female", DateOfBirth: &dob,
		Status: models.AnimalStatusAlive, IsActive: true,
	}).Error)

	tag, err = GenerateOffspringTagNumber(db, farmID, "Rabbit", birthDate)
	require.NoError(t, err)
	assert.Equal(t, "RAB25002", tag)

	// A different year restarts the sequence.
	tag, err = GenerateOffspringTagNumber(db, farmID, "Rabbit", birthDate.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "RAB26001", tag)

	// Another farm has its own sequence.
	tag, err = GenerateOffspringTagNumber(db, uuid.New(), "Rabbit", birthDate)
	require.NoError(t, err)
	assert.Equal(t, "RAB25001", tag)
}

func TestGestationDaysFor_FallbackChain(t *testing.T) {
	svc, db := setupRegistryTest(t)
	ctx := context.Background()

	damType := &models.AnimalType{Name: "Sheep", GestationPeriodDays: 152}
	sireType := &models.AnimalType{Name: "Crossbreed", GestationPeriodDays: 148}
	emptyType := &models.AnimalType{Name: "Unset"}
	require.NoError(t, db.Create(damType).Error)
	require.NoError(t, db.Create(sireType).Error)
	require.NoError(t, db.Create(emptyType).Error)

	dam := &models.Animal{AnimalTypeID: damType.AnimalTypeID}
	sire := &models.Animal{AnimalTypeID: sireType.AnimalTypeID}
	unset := &models.Animal{AnimalTypeID: emptyType.AnimalTypeID}

	assert.Equal(t, 152, svc.GestationDaysFor(ctx, dam, sire))
	assert.Equal(t, 148, svc.GestationDaysFor(ctx, unset, sire))
	assert.Equal(t, models.DefaultGestationDays, svc.GestationDaysFor(ctx, unset, unset))
	assert.Equal(t, models.DefaultGestationDays, svc.GestationDaysFor(ctx, nil, nil))
}

func TestCreateAnimal_RejectsDuplicateTagOnFarm(t *testing.T) {
	svc, db := setupRegistryTest(t)
	ctx := context.Background()

	animalType := &models.AnimalType{Name: "Rabbit"}
	require.NoError(t, db.Create(animalType).Error)
	farmID := uuid.New()

	_, err := svc.CreateAnimal(ctx, &models.Animal{
		FarmID: farmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "RAB24001", Gender: "female",
	})
	require.NoError(t, err)

	_, err = svc.CreateAnimal(ctx, &models.Animal{
		FarmID: farmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "RAB24001", Gender: "male",
	})
	require.Error(t, err)
}

func TestGetAnimalInFarm_HidesForeignAnimals(t *testing.T) {
	svc, db := setupRegistryTest(t)
	ctx := context.Background()

	a := &models.Animal{
		FarmID: uuid.New(), AnimalTypeID: uuid.New(),
		TagNumber: "SHP24001", Gender: "female",
		Status: models.AnimalStatusAlive, IsActive: true,
	}
	require.NoError(t, db.Create(a).Error)

	found, err := svc.GetAnimalInFarm(ctx, a.AnimalID, a.FarmID)
	require.NoError(t, err)
	assert.Equal(t, a.AnimalID, found.AnimalID)

	_, err = svc.GetAnimalInFarm(ctx, a.AnimalID, uuid.New())
	require.Error(t, err)
}
