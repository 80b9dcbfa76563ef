package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Pregnancy statuses. Confirmed and progressing count as active.
const (
	PregnancyStatusConfirmed   = "confirmed"
	PregnancyStatusProgressing = "progressing"
	PregnancyStatusDelivered   = "delivered"
	PregnancyStatusAborted     = "aborted"
	PregnancyStatusFailed      = "failed"
)

// DefaultGestationDays applies when neither the dam's nor the sire's
// animal type configures a gestation period.
const DefaultGestationDays = 150

// Pregnancy is derived from a successful mating, one per dam.
type Pregnancy struct {
	PregnancyID           uuid.UUID      `gorm:"column:pregnancy_id;type:uuid;primaryKey" json:"pregnancy_id"`
	FarmID                uuid.UUID      `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	DamID                 uuid.UUID      `gorm:"column:dam_id;type:uuid;not null;index:idx_pregnancy_dam_status" json:"dam_id"`
	SireID                uuid.UUID      `gorm:"column:sire_id;type:uuid;not null" json:"sire_id"`
	MatingEventID         uuid.UUID      `gorm:"column:mating_event_id;type:uuid;not null;index" json:"mating_event_id"`
	ConceptionDate        time.Time      `gorm:"column:conception_date;not null" json:"conception_date"`
	ConfirmedDate         *time.Time     `gorm:"column:confirmed_date" json:"confirmed_date"`
	ExpectedGestationDays int            `gorm:"column:expected_gestation_days;not null" json:"expected_gestation_days"`
	ExpectedDeliveryDate  time.Time      `gorm:"column:expected_delivery_date;not null" json:"expected_delivery_date"`
	ActualDeliveryDate    *time.Time     `gorm:"column:actual_delivery_date" json:"actual_delivery_date"`
	Status                string         `gorm:"column:status;type:varchar(20);default:'confirmed';index:idx_pregnancy_dam_status" json:"status"`
	AbortionDate          *time.Time     `gorm:"column:abortion_date" json:"abortion_date"`
	AbortionReason        string         `gorm:"column:abortion_reason" json:"abortion_reason"`
	Checkups              datatypes.JSON `gorm:"column:checkups;type:json" json:"checkups"`
	Complications         datatypes.JSON `gorm:"column:complications;type:json" json:"complications"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Pregnancy) TableName() string {
	return "Pregnancies"
}

func (p *Pregnancy) BeforeCreate(tx *gorm.DB) error {
	if p.PregnancyID == uuid.Nil {
		p.PregnancyID = uuid.New()
	}
	return nil
}

// IsActive reports whether this pregnancy blocks new matings for the dam.
func (p *Pregnancy) IsActive() bool {
	return p.Status == PregnancyStatusConfirmed || p.Status == PregnancyStatusProgressing
}
