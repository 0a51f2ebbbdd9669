package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Create stores a dispensing form submission. The code is free typed;
	// equipment outside the catalog (rentals, visiting machines) is legal.
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	// LatestByCode serves the candidate collector.
	LatestByCode(ctx context.Context, code string) (*FuelEvent, error)
	// Coverage serves the gap union.
	Coverage(ctx context.Context, from, to time.Time) ([]CoveragePair, error)
}

type CreateRequest struct {
	EquipmentCode string   `json:"equipment_code"`
	Date          string   `json:"date"`
	HourMeter     *float64 `json:"hour_meter"`
	Odometer      *float64 `json:"odometer"`
	Liters        float64  `json:"liters"`
	Operator      string   `json:"operator"`
}

type ListRequest struct {
	EquipmentCode string `form:"equipment_code"`
	From          string `form:"from"`
	To            string `form:"to"`
}

type Response struct {
	ID            string    `json:"id"`
	EquipmentCode string    `json:"equipment_code"`
	Date          string    `json:"date"`
	HourMeter     *float64  `json:"hour_meter,omitempty"`
	Odometer      *float64  `json:"odometer,omitempty"`
	Liters        float64   `json:"liters"`
	Operator      string    `json:"operator,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrInvalidCode   = errors.New("invalid_code")
	ErrInvalidDate   = errors.New("invalid_date")
	ErrInvalidLiters = errors.New("invalid_liters")
	ErrNegativeValue = errors.New("negative_value")
)
