package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BirthEvent records one delivery against a pregnancy. Created exactly once
// per pregnancy (unique index); creating it closes the pregnancy.
type BirthEvent struct {
	BirthID         uuid.UUID      `gorm:"column:birth_id;type:uuid;primaryKey" json:"birth_id"`
	FarmID          uuid.UUID      `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	PregnancyID     uuid.UUID      `gorm:"column:pregnancy_id;type:uuid;not null;uniqueIndex" json:"pregnancy_id"`
	DamID           uuid.UUID      `gorm:"column:dam_id;type:uuid;not null;index" json:"dam_id"`
	SireID          uuid.UUID      `gorm:"column:sire_id;type:uuid;not null;index" json:"sire_id"`
	BirthDate       time.Time      `gorm:"column:birth_date;not null" json:"birth_date"`
	TotalOffspring  int            `gorm:"column:total_offspring;not null" json:"total_offspring"`
	LiveBirths      int            `gorm:"column:live_births;not null" json:"live_births"`
	Stillbirths     int            `gorm:"column:stillbirths;not null" json:"stillbirths"`
	WeakOffspring   int            `gorm:"column:weak_offspring;not null" json:"weak_offspring"`
	MaleOffspring   int            `gorm:"column:male_offspring;not null" json:"male_offspring"`
	FemaleOffspring int            `gorm:"column:female_offspring;not null" json:"female_offspring"`
	OffspringIDs    datatypes.JSON `gorm:"column:offspring_ids;type:json" json:"offspring_ids"`
	Notes           string         `gorm:"column:notes" json:"notes"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (BirthEvent) TableName() string {
	return "BirthEvents"
}

func (b *BirthEvent) BeforeCreate(tx *gorm.DB) error {
	if b.BirthID == uuid.Nil {
		b.BirthID = uuid.New()
	}
	return nil
}
