package mating

import (
	"context"
	"testing"
	"time"

	"herdbook-backend/internal/database"
	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/registry"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type matingFixture struct {
	svc    *Service
	db     *gorm.DB
	farmID uuid.UUID
	typeID uuid.UUID
	sire   *models.Animal
	dam1   *models.Animal
	dam2   *models.Animal
}

func setupMatingTest(t *testing.T) *matingFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	farm := &models.Farm{OwnerID: uuid.New(), Name: "Hilltop"}
	require.NoError(t, db.Create(farm).Error)
	animalType := &models.AnimalType{
		FarmID:              &farm.FarmID,
		Name:                "Rabbit",
		EnableReproduction:  true,
		EnableGenetics:      true,
		GestationPeriodDays: 31,
	}
	require.NoError(t, db.Create(animalType).Error)

	newAnimal := func(tag, gender string) *models.Animal {
		open := models.ReproStatusOpen
		a := &models.Animal{
			FarmID:       farm.FarmID,
			AnimalTypeID: animalType.AnimalTypeID,
			TagNumber:    tag,
			Gender:       gender,
			Status:       models.AnimalStatusAlive,
			IsActive:     true,
		}
		if gender == "female" {
			a.ReproductiveStatus = &open
		}
		require.NoError(t, db.Create(a).Error)
		return a
	}

	svc := &Service{DB: db, Registry: &registry.Service{DB: db}}
	return &matingFixture{
		svc:    svc,
		db:     db,
		farmID: farm.FarmID,
		typeID: animalType.AnimalTypeID,
		sire:   newAnimal("RAB24001", "male"),
		dam1:   newAnimal("RAB24002", "female"),
		dam2:   newAnimal("RAB24003", "female"),
	}
}

func (f *matingFixture) record(t *testing.T) *models.MatingEvent {
	event, err := f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     f.farmID,
		SireID:     f.sire.AnimalID,
		DamIDs:     []uuid.UUID{f.dam1.AnimalID, f.dam2.AnimalID},
		MatingDate: time.Now().AddDate(0, 0, -1),
		MatingType: models.MatingTypeNatural,
	})
	require.NoError(t, err)
	return event
}

func TestRecordMating_CreatesPlannedEventWithDams(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)

	assert.Equal(t, models.MatingStatusPlanned, event.Status)
	assert.Len(t, event.Dams, 2)
	assert.Nil(t, event.Outcome)
}

func TestRecordMating_RejectsFemaleSire(t *testing.T) {
	f := setupMatingTest(t)
	_, err := f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     f.farmID,
		SireID:     f.dam1.AnimalID,
		DamIDs:     []uuid.UUID{f.dam2.AnimalID},
		MatingDate: time.Now(),
		MatingType: models.MatingTypeNatural,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidSex))
}

func TestRecordMating_RejectsMaleDam(t *testing.T) {
	f := setupMatingTest(t)
	_, err := f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     f.farmID,
		SireID:     f.sire.AnimalID,
		DamIDs:     []uuid.UUID{f.sire.AnimalID},
		MatingDate: time.Now(),
		MatingType: models.MatingTypeNatural,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidSex))
}

func TestRecordMating_RejectsReproductionDisabledType(t *testing.T) {
	f := setupMatingTest(t)
	require.NoError(t, f.db.Model(&models.AnimalType{}).
		Where("animal_type_id = ?", f.typeID).
		Update("enable_reproduction", false).Error)

	_, err := f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     f.farmID,
		SireID:     f.sire.AnimalID,
		DamIDs:     []uuid.UUID{f.dam1.AnimalID},
		MatingDate: time.Now(),
		MatingType: models.MatingTypeNatural,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindFeatureDisabled))
}

func TestRecordMating_RejectsAlreadyPregnantDam(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)
	_, _, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)

	_, err = f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     f.farmID,
		SireID:     f.sire.AnimalID,
		DamIDs:     []uuid.UUID{f.dam1.AnimalID},
		MatingDate: time.Now(),
		MatingType: models.MatingTypeNatural,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestRecordMating_RejectsAnimalFromOtherFarm(t *testing.T) {
	f := setupMatingTest(t)
	other := &models.Farm{OwnerID: uuid.New(), Name: "Valley"}
	require.NoError(t, f.db.Create(other).Error)

	_, err := f.svc.RecordMating(context.Background(), RecordMatingInput{
		FarmID:     other.FarmID,
		SireID:     f.sire.AnimalID,
		DamIDs:     []uuid.UUID{f.dam1.AnimalID},
		MatingDate: time.Now(),
		MatingType: models.MatingTypeNatural,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestRecordOutcome_SuccessfulFansOutOnePregnancyPerDam(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)

	updated, pregnancies, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "clean covers")
	require.NoError(t, err)

	assert.Equal(t, models.MatingStatusCompleted, updated.Status)
	require.Len(t, pregnancies, 2)
	for _, p := range pregnancies {
		assert.Equal(t, models.PregnancyStatusConfirmed, p.Status)
		assert.Equal(t, 31, p.ExpectedGestationDays)
		assert.Equal(t, event.MatingDate.AddDate(0, 0, 31).Unix(), p.ExpectedDeliveryDate.Unix())
	}

	var dam models.Animal
	require.NoError(t, f.db.First(&dam, "animal_id = ?", f.dam1.AnimalID).Error)
	require.NotNil(t, dam.ReproductiveStatus)
	assert.Equal(t, models.ReproStatusPregnant, *dam.ReproductiveStatus)
}

func TestRecordOutcome_IsIdempotent(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)

	_, first, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)
	require.Len(t, first, 2)

	_, second, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)
	assert.Empty(t, second)

	var count int64
	require.NoError(t, f.db.Model(&models.Pregnancy{}).Where("mating_event_id = ?", event.MatingID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRecordOutcome_UnsuccessfulCreatesNoPregnancies(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)

	updated, pregnancies, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeUnsuccessful, "")
	require.NoError(t, err)
	assert.Equal(t, models.MatingStatusFailed, updated.Status)
	assert.Empty(t, pregnancies)
}

func TestRecordOutcome_RejectsCancelledEvent(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)
	_, err := f.svc.CancelMating(context.Background(), event.MatingID)
	require.NoError(t, err)

	_, _, err = f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestRecordOutcome_RejectsConflictingOutcome(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)
	_, _, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)

	_, _, err = f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeUnknown, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestUpdateMating_OnlyPlanned(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)

	newType := models.MatingTypeAI
	updated, err := f.svc.UpdateMating(context.Background(), UpdateMatingInput{
		MatingID:   event.MatingID,
		MatingType: &newType,
	})
	require.NoError(t, err)
	assert.Equal(t, models.MatingTypeAI, updated.MatingType)

	_, _, err = f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateMating(context.Background(), UpdateMatingInput{
		MatingID:   event.MatingID,
		MatingType: &newType,
	})
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestCancelMating_OnlyPlanned(t *testing.T) {
	f := setupMatingTest(t)
	event := f.record(t)
	_, _, err := f.svc.RecordOutcome(context.Background(), event.MatingID, models.MatingOutcomeSuccessful, "")
	require.NoError(t, err)

	_, err = f.svc.CancelMating(context.Background(), event.MatingID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}
