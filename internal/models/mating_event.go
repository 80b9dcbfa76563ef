package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Mating types.
const (
	MatingTypeNatural      = "natural"
	MatingTypeAI           = "artificial_insemination"
	MatingTypeHandMating   = "hand_mating"
	MatingTypePasture      = "pasture_mating"
)

// Mating statuses and outcomes.
const (
	MatingStatusPlanned   = "planned"
	MatingStatusCompleted = "completed"
	MatingStatusFailed    = "failed"
	MatingStatusCancelled = "cancelled"

	MatingOutcomeSuccessful   = "successful"
	MatingOutcomeUnsuccessful = "unsuccessful"
	MatingOutcomeUnknown      = "unknown"
)

// MatingEvent records one breeding attempt between a sire and one or more dams.
// Dams live in the MatingDam child table.
type MatingEvent struct {
	MatingID   uuid.UUID      `gorm:"column:mating_id;type:uuid;primaryKey" json:"mating_id"`
	FarmID     uuid.UUID      `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	SireID     uuid.UUID      `gorm:"column:sire_id;type:uuid;not null;index" json:"sire_id"`
	MatingType string         `gorm:"column:mating_type;type:varchar(30);not null" json:"mating_type"`
	MatingDate time.Time      `gorm:"column:mating_date;not null" json:"mating_date"`
	Status     string         `gorm:"column:status;type:varchar(20);default:'planned'" json:"status"`
	Outcome    *string        `gorm:"column:outcome;type:varchar(20)" json:"outcome"`
	Notes      string         `gorm:"column:notes" json:"notes"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:json" json:"metadata"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Dams []MatingDam `gorm:"foreignKey:MatingID;references:MatingID" json:"dams"`
}

func (MatingEvent) TableName() string {
	return "MatingEvents"
}

func (m *MatingEvent) BeforeCreate(tx *gorm.DB) error {
	if m.MatingID == uuid.Nil {
		m.MatingID = uuid.New()
	}
	return nil
}

// OutcomeRecordable reports whether an outcome may still be recorded.
func (m *MatingEvent) OutcomeRecordable() bool {
	return m.Status == MatingStatusPlanned || m.Status == MatingStatusCompleted
}

// MatingDam links one dam to a mating event.
type MatingDam struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	MatingID uuid.UUID `gorm:"column:mating_id;type:uuid;not null;index" json:"mating_id"`
	DamID    uuid.UUID `gorm:"column:dam_id;type:uuid;not null;index" json:"dam_id"`
}

func (MatingDam) TableName() string {
	return "MatingDams"
}

func (d *MatingDam) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
