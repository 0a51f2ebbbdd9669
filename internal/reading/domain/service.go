package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Create validates and stores a field form submission, then mirrors it
	// to the readings sheet on a best-effort basis.
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	// Latest serves the candidate collector.
	Latest(ctx context.Context, equipmentID snowflake.ID) (*Reading, error)
	// Coverage serves the gap union.
	Coverage(ctx context.Context, from, to time.Time) ([]CoveragePair, error)
	// All returns every stored reading in insertion order for the backfill
	// scan.
	All(ctx context.Context) ([]Reading, error)
	// ApplyPatch persists a backfill correction.
	ApplyPatch(ctx context.Context, id snowflake.ID, patch Patch) error
}

type CreateRequest struct {
	EquipmentID   string   `json:"equipment_id"`
	Date          string   `json:"date"`
	HourMeter     *float64 `json:"hour_meter"`
	Odometer      *float64 `json:"odometer"`
	PrevHourMeter *float64 `json:"prev_hour_meter"`
	PrevOdometer  *float64 `json:"prev_odometer"`
	Operator      string   `json:"operator"`
	Observation   string   `json:"observation"`
	PhotoURLs     []string `json:"photo_urls"`
}

type ListRequest struct {
	EquipmentID string `form:"equipment_id"`
	From        string `form:"from"`
	To          string `form:"to"`
}

type Response struct {
	ID            string    `json:"id"`
	EquipmentID   string    `json:"equipment_id"`
	Date          string    `json:"date"`
	HourMeter     *float64  `json:"hour_meter,omitempty"`
	Odometer      *float64  `json:"odometer,omitempty"`
	PrevHourMeter *float64  `json:"prev_hour_meter,omitempty"`
	PrevOdometer  *float64  `json:"prev_odometer,omitempty"`
	Operator      string    `json:"operator,omitempty"`
	Observation   string    `json:"observation,omitempty"`
	Source        string    `json:"source"`
	PhotoURLs     []string  `json:"photo_urls,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidEquipment = errors.New("invalid_equipment")
	ErrInvalidDate      = errors.New("invalid_date")
	ErrNegativeValue    = errors.New("negative_value")
	ErrNotFound         = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
