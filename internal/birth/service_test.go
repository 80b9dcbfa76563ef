package birth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/offspring"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/registry"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type birthFixture struct {
	svc       *Service
	db        *gorm.DB
	farmID    uuid.UUID
	dam       *models.Animal
	sire      *models.Animal
	pregnancy *models.Pregnancy
}

func setupBirthTest(t *testing.T) *birthFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Farm{}, &models.AnimalType{}, &models.Animal{},
		&models.MatingEvent{}, &models.MatingDam{}, &models.Pregnancy{},
		&models.BirthEvent{}, &models.OffspringTracking{},
	))

	farm := &models.Farm{OwnerID: uuid.New(), Name: "Hilltop"}
	require.NoError(t, db.Create(farm).Error)
	animalType := &models.AnimalType{
		FarmID:              &farm.FarmID,
		Name:                "Rabbit",
		EnableReproduction:  true,
		GestationPeriodDays: 31,
	}
	require.NoError(t, db.Create(animalType).Error)

	pregnant := models.ReproStatusPregnant
	dam := &models.Animal{
		FarmID: farm.FarmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "DOE-1", Gender: "female", Breed: "New Zealand White",
		Status: models.AnimalStatusAlive, IsActive: true,
		ReproductiveStatus: &pregnant,
	}
	sire := &models.Animal{
		FarmID: farm.FarmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "BUCK-1", Gender: "male",
		Status: models.AnimalStatusAlive, IsActive: true,
	}
	require.NoError(t, db.Create(dam).Error)
	require.NoError(t, db.Create(sire).Error)

	mating := &models.MatingEvent{
		FarmID: farm.FarmID, SireID: sire.AnimalID,
		MatingType: models.MatingTypeNatural,
		MatingDate: time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC),
		Status:     models.MatingStatusCompleted,
	}
	require.NoError(t, db.Create(mating).Error)

	pregnancy := &models.Pregnancy{
		FarmID: farm.FarmID, DamID: dam.AnimalID, SireID: sire.AnimalID,
		MatingEventID:         mating.MatingID,
		ConceptionDate:        mating.MatingDate,
		ExpectedGestationDays: 31,
		ExpectedDeliveryDate:  mating.MatingDate.AddDate(0, 0, 31),
		Status:                models.PregnancyStatusProgressing,
	}
	require.NoError(t, db.Create(pregnancy).Error)

	registrySvc := &registry.Service{DB: db}
	svc := &Service{
		DB:       db,
		Registry: registrySvc,
		Factory:  &offspring.Factory{Registry: registrySvc},
	}
	return &birthFixture{svc: svc, db: db, farmID: farm.FarmID, dam: dam, sire: sire, pregnancy: pregnancy}
}

func (f *birthFixture) input() RecordBirthInput {
	return RecordBirthInput{
		PregnancyID:     f.pregnancy.PregnancyID,
		DamID:           f.dam.AnimalID,
		SireID:          f.sire.AnimalID,
		BirthDate:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		TotalOffspring:  4,
		LiveBirths:      3,
		Stillbirths:     1,
		MaleOffspring:   1,
		FemaleOffspring: 2,
	}
}

func TestRecordBirth_CreatesLitterAndClosesPregnancy(t *testing.T) {
	f := setupBirthTest(t)

	event, animals, err := f.svc.RecordBirth(context.Background(), f.input())
	require.NoError(t, err)
	require.Len(t, animals, 3)

	// Positional gender split: first maleOffspring are male.
	assert.Equal(t, "male", animals[0].Gender)
	assert.Equal(t, "female", animals[1].Gender)
	assert.Equal(t, "female", animals[2].Gender)

	// Sequential tags within the transaction: {CODE}{YY}{seq:03d}.
	assert.Equal(t, "RAB25001", animals[0].TagNumber)
	assert.Equal(t, "RAB25002", animals[1].TagNumber)
	assert.Equal(t, "RAB25003", animals[2].TagNumber)

	for _, a := range animals {
		assert.Equal(t, models.AnimalStatusAlive, a.Status)
		require.NotNil(t, a.ReproductiveStatus)
		assert.Equal(t, models.ReproStatusImmature, *a.ReproductiveStatus)
		require.NotNil(t, a.SireID)
		assert.Equal(t, f.sire.AnimalID, *a.SireID)
		require.NotNil(t, a.DamID)
		assert.Equal(t, f.dam.AnimalID, *a.DamID)
		assert.Equal(t, f.dam.Breed, a.Breed)
	}

	var ids []string
	require.NoError(t, json.Unmarshal(event.OffspringIDs, &ids))
	assert.Len(t, ids, 3)

	var trackings int64
	require.NoError(t, f.db.Model(&models.OffspringTracking{}).Where("birth_event_id = ?", event.BirthID).Count(&trackings).Error)
	assert.EqualValues(t, 3, trackings)

	var p models.Pregnancy
	require.NoError(t, f.db.First(&p, "pregnancy_id = ?", f.pregnancy.PregnancyID).Error)
	assert.Equal(t, models.PregnancyStatusDelivered, p.Status)
	require.NotNil(t, p.ActualDeliveryDate)

	// Birth does not touch the dam's reproductive status.
	var dam models.Animal
	require.NoError(t, f.db.First(&dam, "animal_id = ?", f.dam.AnimalID).Error)
	require.NotNil(t, dam.ReproductiveStatus)
	assert.Equal(t, models.ReproStatusPregnant, *dam.ReproductiveStatus)
}

func TestRecordBirth_RejectsCountInvariantViolations(t *testing.T) {
	f := setupBirthTest(t)

	in := f.input()
	in.LiveBirths = 5 // live + still > total
	_, _, err := f.svc.RecordBirth(context.Background(), in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	in = f.input()
	in.WeakOffspring = 4 // weak > live
	_, _, err = f.svc.RecordBirth(context.Background(), in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	in = f.input()
	in.MaleOffspring = 2
	in.FemaleOffspring = 2 // male + female > live
	_, _, err = f.svc.RecordBirth(context.Background(), in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRecordBirth_RejectsSecondBirthForPregnancy(t *testing.T) {
	f := setupBirthTest(t)
	_, _, err := f.svc.RecordBirth(context.Background(), f.input())
	require.NoError(t, err)

	// The first birth delivered the pregnancy, so the state check fires
	// before the uniqueness check.
	_, _, err = f.svc.RecordBirth(context.Background(), f.input())
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestRecordBirth_RejectsMismatchedDam(t *testing.T) {
	f := setupBirthTest(t)
	in := f.input()
	in.DamID = uuid.New()
	_, _, err := f.svc.RecordBirth(context.Background(), in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRecordBirth_RejectsClosedPregnancy(t *testing.T) {
	f := setupBirthTest(t)
	require.NoError(t, f.db.Model(&models.Pregnancy{}).
		Where("pregnancy_id = ?", f.pregnancy.PregnancyID).
		Update("status", models.PregnancyStatusAborted).Error)

	_, _, err := f.svc.RecordBirth(context.Background(), f.input())
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestRecordNeonatalDeath_LeavesBirthCountsUntouched(t *testing.T) {
	f := setupBirthTest(t)
	event, animals, err := f.svc.RecordBirth(context.Background(), f.input())
	require.NoError(t, err)

	tracking, err := f.svc.RecordNeonatalDeath(context.Background(), event.BirthID, animals[0].AnimalID, event.BirthDate.AddDate(0, 0, 2), "failure to thrive")
	require.NoError(t, err)
	assert.Equal(t, models.OffspringStatusDied, tracking.Status)
	require.NotNil(t, tracking.DeathDate)
	assert.Equal(t, "failure to thrive", tracking.DeathCause)

	var a models.Animal
	require.NoError(t, f.db.First(&a, "animal_id = ?", animals[0].AnimalID).Error)
	assert.Equal(t, models.AnimalStatusDied, a.Status)
	assert.False(t, a.IsActive)

	// The birth-time tallies are a historical record.
	var stored models.BirthEvent
	require.NoError(t, f.db.First(&stored, "birth_id = ?", event.BirthID).Error)
	assert.Equal(t, 3, stored.LiveBirths)
	assert.Equal(t, 1, stored.Stillbirths)
	assert.Equal(t, 4, stored.TotalOffspring)

	// Recording the same death twice conflicts.
	_, err = f.svc.RecordNeonatalDeath(context.Background(), event.BirthID, animals[0].AnimalID, event.BirthDate.AddDate(0, 0, 3), "")
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRecordNeonatalDeath_RejectsForeignOffspring(t *testing.T) {
	f := setupBirthTest(t)
	event, _, err := f.svc.RecordBirth(context.Background(), f.input())
	require.NoError(t, err)

	stranger := &models.OffspringTracking{
		FarmID: f.farmID, BirthEventID: uuid.New(),
		DamID: f.dam.AnimalID, SireID: f.sire.AnimalID,
		OffspringID: uuid.New(), Status: models.OffspringStatusAlive,
	}
	require.NoError(t, f.db.Create(stranger).Error)

	_, err = f.svc.RecordNeonatalDeath(context.Background(), event.BirthID, stranger.OffspringID, time.Now(), "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
