package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Filter bounds a fuel event listing.
type Filter struct {
	NormalizedCode string
	From           *time.Time
	To             *time.Time
}

// CoveragePair is one (normalized code, date) combination with a dispensing.
type CoveragePair struct {
	NormalizedCode string
	EventDate      time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *FuelEvent) error
	FindLatestByCode(ctx context.Context, db *gorm.DB, normalizedCode string) (*FuelEvent, error)
	List(ctx context.Context, db *gorm.DB, filter Filter) ([]FuelEvent, error)
	CoveragePairs(ctx context.Context, db *gorm.DB, from, to time.Time) ([]CoveragePair, error)
}
