package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Animal statuses (registry source of truth).
const (
	AnimalStatusAlive       = "alive"
	AnimalStatusSold        = "sold"
	AnimalStatusDied        = "died"
	AnimalStatusTransferred = "transferred"
	AnimalStatusCulled      = "culled"
)

// Reproductive statuses (females) and breeding statuses (males).
const (
	ReproStatusOpen     = "open"
	ReproStatusPregnant = "pregnant"
	ReproStatusDry      = "dry"
	ReproStatusImmature = "immature"

	BreedingStatusActive  = "active"
	BreedingStatusResting = "resting"
	BreedingStatusRetired = "retired"
)

// Animal is the registry entry. Related entities hold only its UUID; the
// registry service resolves links on demand.
type Animal struct {
	AnimalID           uuid.UUID      `gorm:"column:animal_id;type:uuid;primaryKey" json:"animal_id"`
	FarmID             uuid.UUID      `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	AnimalTypeID       uuid.UUID      `gorm:"column:animal_type_id;type:uuid;not null" json:"animal_type_id"`
	TagNumber          string         `gorm:"column:tag_number;not null;index" json:"tag_number"`
	Name               string         `gorm:"column:name" json:"name"`
	Gender             string         `gorm:"column:gender;type:varchar(10)" json:"gender"`
	Breed              string         `gorm:"column:breed" json:"breed"`
	DateOfBirth        *time.Time     `gorm:"column:date_of_birth" json:"date_of_birth"`
	DateOfDeath        *time.Time     `gorm:"column:date_of_death" json:"date_of_death"`
	Status             string         `gorm:"column:status;type:varchar(20);default:'alive'" json:"status"`
	IsActive           bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ReproductiveStatus *string        `gorm:"column:reproductive_status;type:varchar(20)" json:"reproductive_status"`
	BreedingStatus     *string        `gorm:"column:breeding_status;type:varchar(20)" json:"breeding_status"`
	IsInfertile        bool           `gorm:"column:is_infertile;not null;default:false" json:"is_infertile"`
	Weight             *float64       `gorm:"column:weight;type:decimal(10,2)" json:"weight"`
	HealthStatus       string         `gorm:"column:health_status;type:varchar(20);default:'good'" json:"health_status"`
	SireID             *uuid.UUID     `gorm:"column:sire_id;type:uuid;index" json:"sire_id"`
	DamID              *uuid.UUID     `gorm:"column:dam_id;type:uuid;index" json:"dam_id"`
	BirthEventID       *uuid.UUID     `gorm:"column:birth_event_id;type:uuid" json:"birth_event_id"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Animal) TableName() string {
	return "Animals"
}

func (a *Animal) BeforeCreate(tx *gorm.DB) error {
	if a.AnimalID == uuid.Nil {
		a.AnimalID = uuid.New()
	}
	return nil
}

// AgeDays returns the animal's age in days at now (0 if DOB unknown).
func (a *Animal) AgeDays(now time.Time) int {
	if a.DateOfBirth == nil {
		return 0
	}
	return int(now.Sub(*a.DateOfBirth).Hours() / 24)
}
