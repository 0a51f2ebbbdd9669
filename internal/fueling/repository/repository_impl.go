package repository

import (
	"context"
	"time"

	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	"gorm.io/gorm"
)

const fuelEventColumns = `id, equipment_code, code_normalized, event_date,
	 hour_meter, odometer, liters, operator, created_at, updated_at`

type repo struct{}

func Provide() fuelingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *fuelingdomain.FuelEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO fuel_events (id, equipment_code, code_normalized, event_date,
		 hour_meter, odometer, liters, operator, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.EquipmentCode,
		event.NormalizedCode,
		event.EventDate,
		event.HourMeter,
		event.Odometer,
		event.Liters,
		event.Operator,
		event.CreatedAt,
		event.UpdatedAt,
	).Error
}

func (r *repo) FindLatestByCode(ctx context.Context, db *gorm.DB, normalizedCode string) (*fuelingdomain.FuelEvent, error) {
	var event fuelingdomain.FuelEvent
	err := db.WithContext(ctx).Raw(
		`SELECT `+fuelEventColumns+` FROM fuel_events
		 WHERE code_normalized = ?
		 ORDER BY event_date DESC, created_at DESC
		 LIMIT 1`,
		normalizedCode,
	).Scan(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter fuelingdomain.Filter) ([]fuelingdomain.FuelEvent, error) {
	query := `SELECT ` + fuelEventColumns + ` FROM fuel_events WHERE 1 = 1`
	args := make([]any, 0, 3)
	if filter.NormalizedCode != "" {
		query += ` AND code_normalized = ?`
		args = append(args, filter.NormalizedCode)
	}
	if filter.From != nil {
		query += ` AND event_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND event_date <= ?`
		args = append(args, *filter.To)
	}
	query += ` ORDER BY event_date DESC, created_at DESC`

	var events []fuelingdomain.FuelEvent
	err := db.WithContext(ctx).Raw(query, args...).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) CoveragePairs(ctx context.Context, db *gorm.DB, from, to time.Time) ([]fuelingdomain.CoveragePair, error) {
	var pairs []fuelingdomain.CoveragePair
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT code_normalized AS normalized_code, event_date FROM fuel_events
		 WHERE event_date >= ? AND event_date <= ?`,
		from,
		to,
	).Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	return pairs, nil
}
