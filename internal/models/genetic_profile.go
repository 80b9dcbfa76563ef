package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GeneticProfile is a derived cache, one row per animal (unique index).
// Payload holds the full computed profile JSON; the promoted columns exist
// for farm-level queries. The row holds no authoritative data and can be
// rebuilt from the reproduction chain at any time.
type GeneticProfile struct {
	ProfileID             uuid.UUID      `gorm:"column:profile_id;type:uuid;primaryKey" json:"profile_id"`
	AnimalID              uuid.UUID      `gorm:"column:animal_id;type:uuid;not null;uniqueIndex" json:"animal_id"`
	FarmID                uuid.UUID      `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	IsBreeder             bool           `gorm:"column:is_breeder;not null;default:false" json:"is_breeder"`
	Eligibility           string         `gorm:"column:eligibility;type:varchar(20)" json:"eligibility"`
	InbreedingCoefficient float64        `gorm:"column:inbreeding_coefficient;type:decimal(5,4)" json:"inbreeding_coefficient"`
	Payload               datatypes.JSON `gorm:"column:payload;type:json" json:"payload"`
	ComputedAt            time.Time      `gorm:"column:computed_at;not null" json:"computed_at"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (GeneticProfile) TableName() string {
	return "GeneticProfiles"
}

func (g *GeneticProfile) BeforeCreate(tx *gorm.DB) error {
	if g.ProfileID == uuid.Nil {
		g.ProfileID = uuid.New()
	}
	return nil
}
