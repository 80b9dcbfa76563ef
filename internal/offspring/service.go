package offspring

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"
	"herdbook-backend/internal/registry"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service drives the post-birth lifecycle of each offspring:
// alive → weaned → sold|died|transferred|culled, with death allowed straight
// from alive. Terminal transitions mirror onto the registry entry.
type Service struct {
	DB       *gorm.DB
	Registry *registry.Service
}

// View is the read shape: the stored row plus the derived current weight
// (most recent growth measurement by date).
type View struct {
	models.OffspringTracking
	CurrentWeight *float64 `json:"current_weight"`
}

// BuildView derives CurrentWeight from the growth history.
func BuildView(t models.OffspringTracking) View {
	v := View{OffspringTracking: t}
	measurements := decodeGrowth(t.GrowthMeasurements)
	if len(measurements) > 0 {
		sort.Slice(measurements, func(i, j int) bool {
			return measurements[i].Date.Before(measurements[j].Date)
		})
		w := measurements[len(measurements)-1].Weight
		v.CurrentWeight = &w
	} else if t.WeaningWeight != nil {
		v.CurrentWeight = t.WeaningWeight
	} else if t.BirthWeight != nil {
		v.CurrentWeight = t.BirthWeight
	}
	return v
}

func decodeGrowth(raw datatypes.JSON) []models.GrowthMeasurement {
	var list []models.GrowthMeasurement
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &list)
	}
	return list
}

// GetTracking resolves the tracking record by the offspring's animal id.
func (s *Service) GetTracking(ctx context.Context, offspringID uuid.UUID) (*models.OffspringTracking, error) {
	var t models.OffspringTracking
	if err := s.DB.WithContext(ctx).Where("offspring_id = ?", offspringID).First(&t).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Offspring tracking not found")
		}
		return nil, err
	}
	return &t, nil
}

// ListByBirthEvent returns the litter's tracking records.
func (s *Service) ListByBirthEvent(ctx context.Context, birthID uuid.UUID) ([]View, error) {
	var rows []models.OffspringTracking
	if err := s.DB.WithContext(ctx).Where("birth_event_id = ?", birthID).Find(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]View, 0, len(rows))
	for _, t := range rows {
		views = append(views, BuildView(t))
	}
	return views, nil
}

type UpdateTrackingInput struct {
	OffspringID uuid.UUID
	Name        *string
	BirthWeight *float64
}

// UpdateTracking changes mutable descriptive fields. Farm, dam, sire,
// birth event and the offspring link are immutable.
func (s *Service) UpdateTracking(ctx context.Context, in UpdateTrackingInput) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, in.OffspringID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.BirthWeight != nil {
		if *in.BirthWeight <= 0 {
			return nil, apperr.Validation("birth_weight must be positive")
		}
		updates["birth_weight"] = *in.BirthWeight
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("No valid changes provided")
	}
	if err := s.DB.WithContext(ctx).Model(&models.OffspringTracking{}).
		Where("tracking_id = ?", t.TrackingID).Updates(updates).Error; err != nil {
		return nil, err
	}
	if in.Name != nil {
		// Keep the registry entry's name in sync with the snapshot.
		if err := s.DB.WithContext(ctx).Model(&models.Animal{}).
			Where("animal_id = ?", in.OffspringID).Update("name", *in.Name).Error; err != nil {
			return nil, err
		}
	}
	return s.GetTracking(ctx, in.OffspringID)
}

// RecordWeaning transitions alive → weaned.
func (s *Service) RecordWeaning(ctx context.Context, offspringID uuid.UUID, date time.Time, weight *float64) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.OffspringStatusAlive {
		return nil, apperr.InvalidTransition("Weaning requires status alive; offspring is %s", t.Status)
	}
	if date.IsZero() {
		date = time.Now()
	}
	updates := map[string]interface{}{
		"status":       models.OffspringStatusWeaned,
		"weaning_date": date,
	}
	if weight != nil {
		if *weight <= 0 {
			return nil, apperr.Validation("weaning_weight must be positive")
		}
		updates["weaning_weight"] = *weight
	}
	if err := s.DB.WithContext(ctx).Model(&models.OffspringTracking{}).
		Where("tracking_id = ?", t.TrackingID).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetTracking(ctx, offspringID)
}

// RecordSale transitions alive|weaned → sold and mirrors onto the registry.
func (s *Service) RecordSale(ctx context.Context, offspringID uuid.UUID, date time.Time, price *float64, buyer string) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.OffspringStatusAlive && t.Status != models.OffspringStatusWeaned {
		return nil, apperr.InvalidTransition("Sale requires status alive or weaned; offspring is %s", t.Status)
	}
	if date.IsZero() {
		date = time.Now()
	}
	updates := map[string]interface{}{
		"status":    models.OffspringStatusSold,
		"sale_date": date,
	}
	if price != nil {
		updates["sale_price"] = *price
	}
	if buyer != "" {
		updates["buyer"] = buyer
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).
			Where("tracking_id = ?", t.TrackingID).Updates(updates).Error; err != nil {
			return err
		}
		return s.Registry.MarkStatus(tx, offspringID, models.AnimalStatusSold)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTracking(ctx, offspringID)
}

// RecordDeath transitions alive|weaned → died; Conflict if already died.
func (s *Service) RecordDeath(ctx context.Context, offspringID uuid.UUID, date time.Time, cause string) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.Status == models.OffspringStatusDied {
		return nil, apperr.Conflict("Offspring is already recorded as died")
	}
	if t.Status != models.OffspringStatusAlive && t.Status != models.OffspringStatusWeaned {
		return nil, apperr.InvalidTransition("Death cannot be recorded for status %s", t.Status)
	}
	if date.IsZero() {
		date = time.Now()
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).
			Where("tracking_id = ?", t.TrackingID).Updates(map[string]interface{}{
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
	return s.GetTracking(ctx, offspringID)
}

// RecordCulling transitions alive|weaned → culled and mirrors onto the registry.
func (s *Service) RecordCulling(ctx context.Context, offspringID uuid.UUID, date time.Time, reason string) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.OffspringStatusAlive && t.Status != models.OffspringStatusWeaned {
		return nil, apperr.InvalidTransition("Culling requires status alive or weaned; offspring is %s", t.Status)
	}
	if date.IsZero() {
		date = time.Now()
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).
			Where("tracking_id = ?", t.TrackingID).Updates(map[string]interface{}{
				"status":         models.OffspringStatusCulled,
				"culling_date":   date,
				"culling_reason": reason,
			}).Error; err != nil {
			return err
		}
		return s.Registry.MarkStatus(tx, offspringID, models.AnimalStatusCulled)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTracking(ctx, offspringID)
}

// RecordTransfer transitions alive|weaned → transferred and mirrors onto the registry.
func (s *Service) RecordTransfer(ctx context.Context, offspringID uuid.UUID, date time.Time, destination string) (*models.OffspringTracking, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.OffspringStatusAlive && t.Status != models.OffspringStatusWeaned {
		return nil, apperr.InvalidTransition("Transfer requires status alive or weaned; offspring is %s", t.Status)
	}
	if date.IsZero() {
		date = time.Now()
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).
			Where("tracking_id = ?", t.TrackingID).Updates(map[string]interface{}{
				"status":        models.OffspringStatusTransferred,
				"transfer_date": date,
				"transfer_to":   destination,
			}).Error; err != nil {
			return err
		}
		return s.Registry.MarkStatus(tx, offspringID, models.AnimalStatusTransferred)
	})
	if err != nil {
		return nil, err
	}
	return s.GetTracking(ctx, offspringID)
}

// AddGrowthMeasurement appends one measurement; the history is append-only.
func (s *Service) AddGrowthMeasurement(ctx context.Context, offspringID uuid.UUID, m models.GrowthMeasurement) (*View, error) {
	t, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	if t.IsTerminal() {
		return nil, apperr.InvalidTransition("Growth cannot be recorded for status %s", t.Status)
	}
	if m.Weight <= 0 {
		return nil, apperr.Validation("weight must be positive")
	}
	if m.Date.IsZero() {
		m.Date = time.Now()
	}

	list := decodeGrowth(t.GrowthMeasurements)
	list = append(list, m)
	b, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.OffspringTracking{}).
			Where("tracking_id = ?", t.TrackingID).
			Update("growth_measurements", datatypes.JSON(b)).Error; err != nil {
			return err
		}
		// The registry carries the latest weight for analytics.
		return tx.Model(&models.Animal{}).
			Where("animal_id = ?", offspringID).
			Update("weight", m.Weight).Error
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.GetTracking(ctx, offspringID)
	if err != nil {
		return nil, err
	}
	v := BuildView(*updated)
	return &v, nil
}
