// Package domain contains persistence models for fuel dispensing events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FuelEvent records one dispensing at the site fuel point. The code is kept
// as the attendant typed it; NormalizedCode is the cross-source match key.
// Counter readings taken at the pump are optional and follow the zero
// sentinel convention of readings.
type FuelEvent struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	EquipmentCode  string       `gorm:"type:text;not null"`
	NormalizedCode string       `gorm:"column:code_normalized;type:text;not null;index:ix_fuel_events_code_date,priority:1"`
	EventDate      time.Time    `gorm:"not null;index:ix_fuel_events_code_date,priority:2"`
	HourMeter      *float64     `gorm:"column:hour_meter"`
	Odometer       *float64     `gorm:"column:odometer"`
	Liters         float64      `gorm:"not null"`
	Operator       string       `gorm:"type:text"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FuelEvent) TableName() string { return "fuel_events" }
