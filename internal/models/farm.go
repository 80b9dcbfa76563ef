package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Farm is the tenant boundary: every reproduction entity belongs to one farm.
type Farm struct {
	FarmID    uuid.UUID      `gorm:"column:farm_id;type:uuid;primaryKey" json:"farm_id"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;index" json:"owner_id"`
	Name      string         `gorm:"column:name;not null" json:"name"`
	Location  string         `gorm:"column:location" json:"location"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Farm) TableName() string {
	return "Farms"
}

func (f *Farm) BeforeCreate(tx *gorm.DB) error {
	if f.FarmID == uuid.Nil {
		f.FarmID = uuid.New()
	}
	return nil
}
