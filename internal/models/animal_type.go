package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnimalType carries the species configuration and per-type feature flags
// (reproduction, genetics) plus the genetics settings the lifecycle reads.
type AnimalType struct {
	AnimalTypeID         uuid.UUID      `gorm:"column:animal_type_id;type:uuid;primaryKey" json:"animal_type_id"`
	FarmID               *uuid.UUID     `gorm:"column:farm_id;type:uuid;index" json:"farm_id"`
	Name                 string         `gorm:"column:name;not null" json:"name"`
	EnableReproduction   bool           `gorm:"column:enable_reproduction;not null;default:true" json:"enable_reproduction"`
	EnableGenetics       bool           `gorm:"column:enable_genetics;not null;default:true" json:"enable_genetics"`
	GestationPeriodDays  int            `gorm:"column:gestation_period_days" json:"gestation_period_days"`
	MinBreedingAgeDays   int            `gorm:"column:min_breeding_age_days" json:"min_breeding_age_days"`
	MaturityAgeDays      int            `gorm:"column:maturity_age_days" json:"maturity_age_days"`
	BreedingSeason       string         `gorm:"column:breeding_season" json:"breeding_season"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (AnimalType) TableName() string {
	return "AnimalTypes"
}

func (a *AnimalType) BeforeCreate(tx *gorm.DB) error {
	if a.AnimalTypeID == uuid.Nil {
		a.AnimalTypeID = uuid.New()
	}
	return nil
}
