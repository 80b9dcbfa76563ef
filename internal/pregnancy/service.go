package pregnancy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/registry"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// progressingAfterDays: a confirmed pregnancy reads as progressing once this
// many days have elapsed since conception. Computed at read time, no timers.
const progressingAfterDays = 7

// Service tracks gestation. Pregnancies are created by the mating fan-out
// (or manually confirmed) and closed by birth or termination.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
}

// View is the read shape: the stored row plus the derived fields.
type View struct {
	models.Pregnancy
	EffectiveStatus   string  `json:"effective_status"`
	DaysPregnant      int     `json:"days_pregnant"`
	GestationProgress float64 `json:"gestation_progress"`
	IsOverdue         bool    `json:"is_overdue"`
}

// BuildView derives the read-only fields at now. Pure so staleness of the
// auto-advance rule is testable without a database.
func BuildView(p models.Pregnancy, now time.Time) View {
	days := int(now.Sub(p.ConceptionDate).Hours() / 24)
	if days < 0 {
		days = 0
	}
	progress := 0.0
	if p.ExpectedGestationDays > 0 {
		progress = float64(days) / float64(p.ExpectedGestationDays) * 100
		if progress > 100 {
			progress = 100
		}
	}
	effective := p.Status
	if effective == models.PregnancyStatusConfirmed && days >= progressingAfterDays {
		effective = models.PregnancyStatusProgressing
	}
	overdue := effective == models.PregnancyStatusProgressing && now.After(p.ExpectedDeliveryDate)
	return View{
		Pregnancy:         p,
		EffectiveStatus:   effective,
		DaysPregnant:      days,
		GestationProgress: progress,
		IsOverdue:         overdue,
	}
}

// Insert creates a pregnancy row on the caller's transaction. The
// uniq_active_pregnancy_per_dam index is the backstop for the guard read:
// two concurrent writers can both see zero active pregnancies, and the
// second insert fails here instead of committing a duplicate. The rejection
// reads the same as the guard's.
func Insert(tx *gorm.DB, p *models.Pregnancy, damTag string) error {
	if err := tx.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflict("Dam %s already has an active pregnancy", damTag)
		}
		return err
	}
	return nil
}

// GetPregnancy resolves the stored row.
func (s *Service) GetPregnancy(ctx context.Context, pregnancyID uuid.UUID) (*models.Pregnancy, error) {
	var p models.Pregnancy
	if err := s.DB.WithContext(ctx).Where("pregnancy_id = ?", pregnancyID).First(&p).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Pregnancy not found")
		}
		return nil, err
	}
	return &p, nil
}

// GetView resolves a pregnancy with derived fields at now.
func (s *Service) GetView(ctx context.Context, pregnancyID uuid.UUID, now time.Time) (*View, error) {
	p, err := s.GetPregnancy(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	v := BuildView(*p, now)
	return &v, nil
}

// ListFarmPregnancies returns a farm's pregnancies, newest first, with
// derived fields.
func (s *Service) ListFarmPregnancies(ctx context.Context, farmID uuid.UUID, status string, now time.Time) ([]View, error) {
	q := s.DB.WithContext(ctx).Where("farm_id = ?", farmID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rows []models.Pregnancy
	if err := q.Order("conception_date DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for _, p := range rows {
		views = append(views, BuildView(p, now))
	}
	return views, nil
}

type ConfirmPregnancyInput struct {
	FarmID         uuid.UUID
	DamID          uuid.UUID
	SireID         uuid.UUID
	MatingEventID  uuid.UUID
	ConceptionDate time.Time
}

// ConfirmPregnancy manually confirms a pregnancy outside the automatic
// fan-out (e.g. ultrasound after an unknown outcome). Same invariants apply.
func (s *Service) ConfirmPregnancy(ctx context.Context, in ConfirmPregnancyInput) (*models.Pregnancy, error) {
	dam, err := s.Registry.GetAnimalInFarm(ctx, in.DamID, in.FarmID)
	if err != nil {
		return nil, err
	}
	if dam.Gender != "female" {
		return nil, apperr.InvalidSex("Dam %s is not female", dam.TagNumber)
	}
	sire, err := s.Registry.GetAnimal(ctx, in.SireID)
	if err != nil {
		return nil, err
	}
	if sire.Gender != "male" {
		return nil, apperr.InvalidSex("Sire %s is not male", sire.TagNumber)
	}
	if in.ConceptionDate.IsZero() {
		return nil, apperr.Validation("conception_date is required")
	}

	var event models.MatingEvent
	if err := s.DB.WithContext(ctx).Where("mating_id = ?", in.MatingEventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Mating event not found")
		}
		return nil, err
	}

	gestation := s.Registry.GestationDaysFor(ctx, dam, sire)
	now := time.Now()
	pregnancy := &models.Pregnancy{
		FarmID:                in.FarmID,
		DamID:                 in.DamID,
		SireID:                in.SireID,
		MatingEventID:         in.MatingEventID,
		ConceptionDate:        in.ConceptionDate,
		ConfirmedDate:         &now,
		ExpectedGestationDays: gestation,
		ExpectedDeliveryDate:  in.ConceptionDate.AddDate(0, 0, gestation),
		Status:                models.PregnancyStatusConfirmed,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var active int64
		if err := tx.Model(&models.Pregnancy{}).
			Where("dam_id = ? AND status IN ?", in.DamID, []string{models.PregnancyStatusConfirmed, models.PregnancyStatusProgressing}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("Dam %s already has an active pregnancy", dam.TagNumber)
		}
		if err := Insert(tx, pregnancy, dam.TagNumber); err != nil {
			return err
		}
		return s.Registry.SetReproductiveStatus(tx, in.DamID, models.ReproStatusPregnant)
	})
	if err != nil {
		return nil, err
	}
	return pregnancy, nil
}

// Terminate sets the pregnancy to aborted or failed and resets the dam's
// reproductive status to open in the registry, in one transaction.
func (s *Service) Terminate(ctx context.Context, pregnancyID uuid.UUID, reason, notes string) (*models.Pregnancy, error) {
	if reason != models.PregnancyStatusAborted && reason != models.PregnancyStatusFailed {
		return nil, apperr.Validation("reason must be aborted or failed")
	}
	p, err := s.GetPregnancy(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, apperr.InvalidTransition("Pregnancy is %s; it cannot be terminated", p.Status)
	}

	now := time.Now()
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Pregnancy{}).Where("pregnancy_id = ?", pregnancyID).Updates(map[string]interface{}{
			"status":          reason,
			"abortion_date":   now,
			"abortion_reason": notes,
		}).Error; err != nil {
			return err
		}
		return s.Registry.SetReproductiveStatus(tx, p.DamID, models.ReproStatusOpen)
	})
	if err != nil {
		return nil, err
	}
	return s.GetPregnancy(ctx, pregnancyID)
}

// Checkup is one appended gestation checkup entry.
type Checkup struct {
	Date         time.Time `json:"date"`
	Veterinarian string    `json:"veterinarian,omitempty"`
	Condition    string    `json:"condition,omitempty"`
	Notes        string    `json:"notes,omitempty"`
}

// AddCheckup appends a checkup; entries are never rewritten.
func (s *Service) AddCheckup(ctx context.Context, pregnancyID uuid.UUID, checkup Checkup) (*models.Pregnancy, error) {
	p, err := s.GetPregnancy(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	if checkup.Date.IsZero() {
		checkup.Date = time.Now()
	}
	updated, err := appendJSON(p.Checkups, checkup)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Pregnancy{}).
		Where("pregnancy_id = ?", pregnancyID).
		Update("checkups", updated).Error; err != nil {
		return nil, err
	}
	return s.GetPregnancy(ctx, pregnancyID)
}

// Complication is one appended gestation complication entry.
type Complication struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Severity    string    `json:"severity,omitempty"`
}

// AddComplication appends a complication; entries are never rewritten.
func (s *Service) AddComplication(ctx context.Context, pregnancyID uuid.UUID, comp Complication) (*models.Pregnancy, error) {
	p, err := s.GetPregnancy(ctx, pregnancyID)
	if err != nil {
		return nil, err
	}
	if comp.Description == "" {
		return nil, apperr.Validation("description is required")
	}
	if comp.Date.IsZero() {
		comp.Date = time.Now()
	}
	updated, err := appendJSON(p.Complications, comp)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(&models.Pregnancy{}).
		Where("pregnancy_id = ?", pregnancyID).
		Update("complications", updated).Error; err != nil {
		return nil, err
	}
	return s.GetPregnancy(ctx, pregnancyID)
}

func appendJSON(existing datatypes.JSON, entry interface{}) (datatypes.JSON, error) {
	var list []json.RawMessage
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &list); err != nil {
			list = nil
		}
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	list = append(list, b)
	out, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}
