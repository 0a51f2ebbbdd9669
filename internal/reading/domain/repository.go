package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Patch carries the columns a backfill write changes. Nil fields are left
// untouched.
type Patch struct {
	HourMeter     *float64
	Odometer      *float64
	PrevHourMeter *float64
	PrevOdometer  *float64
	Value         *float64
	Observation   *string
}

// Empty reports whether the patch would change nothing.
func (p Patch) Empty() bool {
	return p.HourMeter == nil && p.Odometer == nil &&
		p.PrevHourMeter == nil && p.PrevOdometer == nil &&
		p.Value == nil && p.Observation == nil
}

// Filter bounds a reading listing.
type Filter struct {
	EquipmentID snowflake.ID
	From        *time.Time
	To          *time.Time
}

// CoveragePair is one (equipment, date) combination that has a reading.
type CoveragePair struct {
	EquipmentID snowflake.ID
	ReadingDate time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *Reading) error
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, patch Patch) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reading, error)
	FindLatestByEquipment(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (*Reading, error)
	List(ctx context.Context, db *gorm.DB, filter Filter) ([]Reading, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]Reading, error)
	CoveragePairs(ctx context.Context, db *gorm.DB, from, to time.Time) ([]CoveragePair, error)
}
