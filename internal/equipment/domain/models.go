// Package domain contains the equipment catalog models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind identifies which counter a piece of equipment reports.
type Kind string

const (
	KindHourMeter Kind = "hour_meter"
	KindOdometer  Kind = "odometer"
)

// Equipment is one machine or vehicle in the site roster. The catalog is
// maintained outside this service; only the seed bootstrap writes it here.
type Equipment struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Code           string       `gorm:"type:text;not null;uniqueIndex:ux_equipment_code"`
	NormalizedCode string       `gorm:"column:code_normalized;type:text;not null;index:ix_equipment_code_normalized"`
	Name           string       `gorm:"type:text;not null"`
	Slug           string       `gorm:"type:text;not null"`
	Category       string       `gorm:"type:text;not null"`
	Description    string       `gorm:"type:text"`
	Active         bool         `gorm:"not null;default:true"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Equipment) TableName() string { return "equipment" }

const (
	CategoryVehicle   = "vehicle"
	CategoryMachine   = "machine"
	CategoryImplement = "implement"
)

// MandatoryKind returns the counter the equipment category must report:
// odometer for wheeled vehicles, hour meter for everything else.
func (e Equipment) MandatoryKind() Kind {
	if e.Category == CategoryVehicle {
		return KindOdometer
	}
	return KindHourMeter
}
