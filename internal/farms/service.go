package farms

import (
	"context"

	"herdbook-backend/internal/models"
	"herdbook-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the farm-ownership boundary. Every reproduction handler goes
// through Authorize before touching farm data.
type Service struct {
	DB *gorm.DB
}

// GetFarm resolves a farm by id.
func (s *Service) GetFarm(ctx context.Context, farmID uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	if err := s.DB.WithContext(ctx).Where("farm_id = ?", farmID).First(&farm).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("Farm not found")
		}
		return nil, err
	}
	return &farm, nil
}

// IsOwnedBy reports whether userID owns farmID.
func (s *Service) IsOwnedBy(ctx context.Context, farmID, userID uuid.UUID) (bool, error) {
	farm, err := s.GetFarm(ctx, farmID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return farm.OwnerID == userID, nil
}

// CreateFarm persists a new farm owned by ownerID.
func (s *Service) CreateFarm(ctx context.Context, ownerID uuid.UUID, name, location string) (*models.Farm, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	farm := &models.Farm{OwnerID: ownerID, Name: name, Location: location}
	if err := s.DB.WithContext(ctx).Create(farm).Error; err != nil {
		return nil, err
	}
	return farm, nil
}

// ListOwned returns the caller's farms.
func (s *Service) ListOwned(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error) {
	var list []models.Farm
	if err := s.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Authorize resolves the farm and checks ownership; NotFound if the farm is
// absent, PermissionDenied if owned by someone else.
func (s *Service) Authorize(ctx context.Context, farmID, userID uuid.UUID) error {
	farm, err := s.GetFarm(ctx, farmID)
	if err != nil {
		return err
	}
	if farm.OwnerID != userID {
		return apperr.PermissionDenied("Farm not owned by caller")
	}
	return nil
}
