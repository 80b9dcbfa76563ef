package pregnancy

import (
	"context"
	"encoding/json"
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

func day(offset int) time.Time {
	return time.Now().AddDate(0, 0, offset)
}

func TestBuildView_ConfirmedStaysConfirmedBeforeSevenDays(t *testing.T) {
	p := models.Pregnancy{
		ConceptionDate:        day(-3),
		ExpectedGestationDays: 150,
		ExpectedDeliveryDate:  day(147),
		Status:                models.PregnancyStatusConfirmed,
	}
	v := BuildView(p, time.Now())
	assert.Equal(t, models.PregnancyStatusConfirmed, v.EffectiveStatus)
	assert.Equal(t, 3, v.DaysPregnant)
	assert.False(t, v.IsOverdue)
}

func TestBuildView_AutoAdvancesToProgressingAfterSevenDays(t *testing.T) {
	p := models.Pregnancy{
		ConceptionDate:        day(-8),
		ExpectedGestationDays: 150,
		ExpectedDeliveryDate:  day(142),
		Status:                models.PregnancyStatusConfirmed,
	}
	v := BuildView(p, time.Now())
	assert.Equal(t, models.PregnancyStatusProgressing, v.EffectiveStatus)
	// The stored status is untouched; the advance is a read-time derivation.
	assert.Equal(t, models.PregnancyStatusConfirmed, v.Status)
}

func TestBuildView_ProgressCapsAt100AndOverdue(t *testing.T) {
	p := models.Pregnancy{
		ConceptionDate:        day(-40),
		ExpectedGestationDays: 31,
		ExpectedDeliveryDate:  day(-9),
		Status:                models.PregnancyStatusConfirmed,
	}
	v := BuildView(p, time.Now())
	assert.Equal(t, 100.0, v.GestationProgress)
	assert.True(t, v.IsOverdue)
}

func TestBuildView_DeliveredIsNeverOverdue(t *testing.T) {
	p := models.Pregnancy{
		ConceptionDate:        day(-200),
		ExpectedGestationDays: 150,
		ExpectedDeliveryDate:  day(-50),
		Status:                models.PregnancyStatusDelivered,
	}
	v := BuildView(p, time.Now())
	assert.Equal(t, models.PregnancyStatusDelivered, v.EffectiveStatus)
	assert.False(t, v.IsOverdue)
}

type pregnancyFixture struct {
	svc    *Service
	db     *gorm.DB
	farmID uuid.UUID
	dam    *models.Animal
	sire   *models.Animal
	mating *models.MatingEvent
}

func setupPregnancyTest(t *testing.T) *pregnancyFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	farm := &models.Farm{OwnerID: uuid.New(), Name: "Hilltop"}
	require.NoError(t, db.Create(farm).Error)
	animalType := &models.AnimalType{
		FarmID:              &farm.FarmID,
		Name:                "Sheep",
		EnableReproduction:  true,
		GestationPeriodDays: 152,
	}
	require.NoError(t, db.Create(animalType).Error)

	open := models.ReproStatusOpen
	dam := &models.Animal{
		FarmID: farm.FarmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "SHP24001", Gender: "female",
		Status: models.AnimalStatusAlive, IsActive: true,
		ReproductiveStatus: &open,
	}
	sire := &models.Animal{
		FarmID: farm.FarmID, AnimalTypeID: animalType.AnimalTypeID,
		TagNumber: "SHP24002", Gender: "male",
		Status: models.AnimalStatusAlive, IsActive: true,
	}
	require.NoError(t, db.Create(dam).Error)
	require.NoError(t, db.Create(sire).Error)

	mating := &models.MatingEvent{
		FarmID: farm.FarmID, SireID: sire.AnimalID,
		MatingType: models.MatingTypeNatural, MatingDate: day(-10),
		Status: models.MatingStatusCompleted,
	}
	require.NoError(t, db.Create(mating).Error)

	svc := &Service{DB: db, Registry: &registry.Service{DB: db}}
	return &pregnancyFixture{svc: svc, db: db, farmID: farm.FarmID, dam: dam, sire: sire, mating: mating}
}

func (f *pregnancyFixture) confirm(t *testing.T) *models.Pregnancy {
	p, err := f.svc.ConfirmPregnancy(context.Background(), ConfirmPregnancyInput{
		FarmID:         f.farmID,
		DamID:          f.dam.AnimalID,
		SireID:         f.sire.AnimalID,
		MatingEventID:  f.mating.MatingID,
		ConceptionDate: f.mating.MatingDate,
	})
	require.NoError(t, err)
	return p
}

func TestConfirmPregnancy_SetsGestationAndDamStatus(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)

	assert.Equal(t, 152, p.ExpectedGestationDays)
	assert.Equal(t, f.mating.MatingDate.AddDate(0, 0, 152).Unix(), p.ExpectedDeliveryDate.Unix())

	var dam models.Animal
	require.NoError(t, f.db.First(&dam, "animal_id = ?", f.dam.AnimalID).Error)
	require.NotNil(t, dam.ReproductiveStatus)
	assert.Equal(t, models.ReproStatusPregnant, *dam.ReproductiveStatus)
}

func TestConfirmPregnancy_RejectsSecondActivePregnancy(t *testing.T) {
	f := setupPregnancyTest(t)
	f.confirm(t)

	_, err := f.svc.ConfirmPregnancy(context.Background(), ConfirmPregnancyInput{
		FarmID:         f.farmID,
		DamID:          f.dam.AnimalID,
		SireID:         f.sire.AnimalID,
		MatingEventID:  f.mating.MatingID,
		ConceptionDate: day(-2),
	})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

// The guard read alone cannot stop two concurrent confirmations (both see
// zero active rows before either commits). The partial unique index rejects
// the second insert even when the guard is bypassed entirely.
func TestInsert_UniqueIndexBlocksSecondActivePregnancy(t *testing.T) {
	f := setupPregnancyTest(t)
	first := f.confirm(t)

	laterMating := &models.MatingEvent{
		FarmID: f.farmID, SireID: f.sire.AnimalID,
		MatingType: models.MatingTypeNatural, MatingDate: day(-2),
		Status: models.MatingStatusCompleted,
	}
	require.NoError(t, f.db.Create(laterMating).Error)

	err := Insert(f.db, &models.Pregnancy{
		FarmID: f.farmID, DamID: f.dam.AnimalID, SireID: f.sire.AnimalID,
		MatingEventID:         laterMating.MatingID,
		ConceptionDate:        day(-2),
		ExpectedGestationDays: 152,
		ExpectedDeliveryDate:  day(150),
		Status:                models.PregnancyStatusConfirmed,
	}, f.dam.TagNumber)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	// Closed pregnancies leave the index; the dam can conceive again.
	require.NoError(t, f.db.Model(&models.Pregnancy{}).
		Where("pregnancy_id = ?", first.PregnancyID).
		Update("status", models.PregnancyStatusDelivered).Error)
	err = Insert(f.db, &models.Pregnancy{
		FarmID: f.farmID, DamID: f.dam.AnimalID, SireID: f.sire.AnimalID,
		MatingEventID:         laterMating.MatingID,
		ConceptionDate:        day(-2),
		ExpectedGestationDays: 152,
		ExpectedDeliveryDate:  day(150),
		Status:                models.PregnancyStatusConfirmed,
	}, f.dam.TagNumber)
	assert.NoError(t, err)
}

func TestInsert_UniqueIndexBlocksSecondPregnancyPerMatingAndDam(t *testing.T) {
	f := setupPregnancyTest(t)
	first := f.confirm(t)
	require.NoError(t, f.db.Model(&models.Pregnancy{}).
		Where("pregnancy_id = ?", first.PregnancyID).
		Update("status", models.PregnancyStatusDelivered).Error)

	// Neither row is active, so only the (mating_event_id, dam_id) index
	// can reject this one. It backs the idempotent fan-out skip.
	err := Insert(f.db, &models.Pregnancy{
		FarmID: f.farmID, DamID: f.dam.AnimalID, SireID: f.sire.AnimalID,
		MatingEventID:         f.mating.MatingID,
		ConceptionDate:        f.mating.MatingDate,
		ExpectedGestationDays: 152,
		ExpectedDeliveryDate:  day(142),
		Status:                models.PregnancyStatusDelivered,
	}, f.dam.TagNumber)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestTerminate_ResetsDamToOpen(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)

	terminated, err := f.svc.Terminate(context.Background(), p.PregnancyID, models.PregnancyStatusAborted, "slipped")
	require.NoError(t, err)
	assert.Equal(t, models.PregnancyStatusAborted, terminated.Status)
	require.NotNil(t, terminated.AbortionDate)
	assert.Equal(t, "slipped", terminated.AbortionReason)

	var dam models.Animal
	require.NoError(t, f.db.First(&dam, "animal_id = ?", f.dam.AnimalID).Error)
	require.NotNil(t, dam.ReproductiveStatus)
	assert.Equal(t, models.ReproStatusOpen, *dam.ReproductiveStatus)
}

func TestTerminate_RejectsInvalidReason(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)
	_, err := f.svc.Terminate(context.Background(), p.PregnancyID, "delivered", "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestTerminate_RejectsAlreadyClosed(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)
	_, err := f.svc.Terminate(context.Background(), p.PregnancyID, models.PregnancyStatusFailed, "")
	require.NoError(t, err)

	_, err = f.svc.Terminate(context.Background(), p.PregnancyID, models.PregnancyStatusAborted, "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
}

func TestAddCheckup_AppendsWithoutRewriting(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)

	_, err := f.svc.AddCheckup(context.Background(), p.PregnancyID, Checkup{Veterinarian: "Dr. Okafor", Condition: "normal"})
	require.NoError(t, err)
	updated, err := f.svc.AddCheckup(context.Background(), p.PregnancyID, Checkup{Veterinarian: "Dr. Okafor", Condition: "strong heartbeat"})
	require.NoError(t, err)

	var checkups []Checkup
	require.NoError(t, json.Unmarshal(updated.Checkups, &checkups))
	require.Len(t, checkups, 2)
	assert.Equal(t, "normal", checkups[0].Condition)
	assert.Equal(t, "strong heartbeat", checkups[1].Condition)
}

func TestAddComplication_RequiresDescription(t *testing.T) {
	f := setupPregnancyTest(t)
	p := f.confirm(t)
	_, err := f.svc.AddComplication(context.Background(), p.PregnancyID, Complication{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}
