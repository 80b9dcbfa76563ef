package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Offspring tracking statuses. alive → weaned → sold|died|transferred|culled;
// death may also occur straight from alive.
const (
	OffspringStatusAlive       = "alive"
	OffspringStatusWeaned      = "weaned"
	OffspringStatusSold        = "sold"
	OffspringStatusDied        = "died"
	OffspringStatusTransferred = "transferred"
	OffspringStatusCulled      = "culled"
)

// GrowthMeasurement is one append-only entry in the growth history.
type GrowthMeasurement struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Height *float64  `json:"height,omitempty"`
	Notes  string    `json:"notes,omitempty"`
}

// OffspringTracking is the post-birth lifecycle record of one live-born
// offspring, distinct from its Animal registry entry. The cached snapshot
// fields are copied from the Animal at creation time.
type OffspringTracking struct {
	TrackingID   uuid.UUID  `gorm:"column:tracking_id;type:uuid;primaryKey" json:"tracking_id"`
	FarmID       uuid.UUID  `gorm:"column:farm_id;type:uuid;not null;index" json:"farm_id"`
	BirthEventID uuid.UUID  `gorm:"column:birth_event_id;type:uuid;not null;index" json:"birth_event_id"`
	DamID        uuid.UUID  `gorm:"column:dam_id;type:uuid;not null" json:"dam_id"`
	SireID       uuid.UUID  `gorm:"column:sire_id;type:uuid;not null" json:"sire_id"`
	OffspringID  uuid.UUID  `gorm:"column:offspring_id;type:uuid;not null;uniqueIndex" json:"offspring_id"`

	TagNumber   string     `gorm:"column:tag_number" json:"tag_number"`
	Name        string     `gorm:"column:name" json:"name"`
	Gender      string     `gorm:"column:gender;type:varchar(10)" json:"gender"`
	Breed       string     `gorm:"column:breed" json:"breed"`
	DateOfBirth *time.Time `gorm:"column:date_of_birth" json:"date_of_birth"`

	Status             string         `gorm:"column:status;type:varchar(20);default:'alive'" json:"status"`
	BirthWeight        *float64       `gorm:"column:birth_weight;type:decimal(10,2)" json:"birth_weight"`
	WeaningWeight      *float64       `gorm:"column:weaning_weight;type:decimal(10,2)" json:"weaning_weight"`
	WeaningDate        *time.Time     `gorm:"column:weaning_date" json:"weaning_date"`
	GrowthMeasurements datatypes.JSON `gorm:"column:growth_measurements;type:json" json:"growth_measurements"`

	SaleDate  *time.Time `gorm:"column:sale_date" json:"sale_date"`
	SalePrice *float64   `gorm:"column:sale_price;type:decimal(12,2)" json:"sale_price"`
	Buyer     string     `gorm:"column:buyer" json:"buyer"`

	DeathDate  *time.Time `gorm:"column:death_date" json:"death_date"`
	DeathCause string     `gorm:"column:death_cause" json:"death_cause"`

	CullingDate   *time.Time `gorm:"column:culling_date" json:"culling_date"`
	CullingReason string     `gorm:"column:culling_reason" json:"culling_reason"`

	TransferDate *time.Time `gorm:"column:transfer_date" json:"transfer_date"`
	TransferTo   string     `gorm:"column:transfer_to" json:"transfer_to"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OffspringTracking) TableName() string {
	return "OffspringTrackings"
}

func (o *OffspringTracking) BeforeCreate(tx *gorm.DB) error {
	if o.TrackingID == uuid.Nil {
		o.TrackingID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the offspring has left the herd.
func (o *OffspringTracking) IsTerminal() bool {
	switch o.Status {
	case OffspringStatusSold, OffspringStatusDied, OffspringStatusTransferred, OffspringStatusCulled:
		return true
	}
	return false
}
