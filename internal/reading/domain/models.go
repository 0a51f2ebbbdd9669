// Package domain contains persistence models for equipment readings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Source tags record where a reading or candidate originated.
const (
	SourceDBReading     = "db_reading"
	SourceDBFuelEvent   = "db_fuel_event"
	SourceSheetReadings = "sheet_readings"
	SourceSheetFuelLog  = "sheet_fuel_log"
)

// Reading stores one day's counter values for a piece of equipment.
// A nil counter means "not reported"; an explicit 0 means the operator
// submitted the form without actually measuring, which the backfill
// corrector later repairs.
type Reading struct {
	ID            snowflake.ID      `gorm:"primaryKey"`
	EquipmentID   snowflake.ID      `gorm:"not null;index:ix_readings_equipment_date,priority:1"`
	ReadingDate   time.Time         `gorm:"not null;index:ix_readings_equipment_date,priority:2"`
	HourMeter     *float64          `gorm:"column:hour_meter"`
	Odometer      *float64          `gorm:"column:odometer"`
	PrevHourMeter *float64          `gorm:"column:prev_hour_meter"`
	PrevOdometer  *float64          `gorm:"column:prev_odometer"`
	Value         *float64          `gorm:"column:value"` // legacy single counter column
	Operator      string            `gorm:"type:text"`
	Observation   string            `gorm:"type:text"`
	Source        string            `gorm:"type:text;not null;default:db_reading"`
	PhotoURLs     pq.StringArray    `gorm:"column:photo_urls;type:text[]"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Reading) TableName() string { return "readings" }
