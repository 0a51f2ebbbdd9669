package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"gorm.io/gorm"
)

const readingColumns = `id, equipment_id, reading_date, hour_meter, odometer,
	 prev_hour_meter, prev_odometer, value, operator, observation, source,
	 photo_urls, metadata, created_at, updated_at`

type repo struct{}

func Provide() readingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reading *readingdomain.Reading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO readings (id, equipment_id, reading_date, hour_meter, odometer,
		 prev_hour_meter, prev_odometer, value, operator, observation, source,
		 photo_urls, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.EquipmentID,
		reading.ReadingDate,
		reading.HourMeter,
		reading.Odometer,
		reading.PrevHourMeter,
		reading.PrevOdometer,
		reading.Value,
		reading.Operator,
		reading.Observation,
		reading.Source,
		reading.PhotoURLs,
		reading.Metadata,
		reading.CreatedAt,
		reading.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, patch readingdomain.Patch) error {
	if patch.Empty() {
		return nil
	}

	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if patch.HourMeter != nil {
		sets = append(sets, "hour_meter = ?")
		args = append(args, *patch.HourMeter)
	}
	if patch.Odometer != nil {
		sets = append(sets, "odometer = ?")
		args = append(args, *patch.Odometer)
	}
	if patch.PrevHourMeter != nil {
		sets = append(sets, "prev_hour_meter = ?")
		args = append(args, *patch.PrevHourMeter)
	}
	if patch.PrevOdometer != nil {
		sets = append(sets, "prev_odometer = ?")
		args = append(args, *patch.PrevOdometer)
	}
	if patch.Value != nil {
		sets = append(sets, "value = ?")
		args = append(args, *patch.Value)
	}
	if patch.Observation != nil {
		sets = append(sets, "observation = ?")
		args = append(args, *patch.Observation)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, id)

	return db.WithContext(ctx).Exec(
		`UPDATE readings SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		args...,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*readingdomain.Reading, error) {
	var reading readingdomain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindLatestByEquipment(ctx context.Context, db *gorm.DB, equipmentID snowflake.ID) (*readingdomain.Reading, error) {
	var reading readingdomain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT `+readingColumns+` FROM readings
		 WHERE equipment_id = ?
		 ORDER BY reading_date DESC, created_at DESC
		 LIMIT 1`,
		equipmentID,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter readingdomain.Filter) ([]readingdomain.Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings WHERE 1 = 1`
	args := make([]any, 0, 3)
	if filter.EquipmentID != 0 {
		query += ` AND equipment_id = ?`
		args = append(args, filter.EquipmentID)
	}
	if filter.From != nil {
		query += ` AND reading_date >= ?`
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += ` AND reading_date <= ?`
		args = append(args, *filter.To)
	}
	query += ` ORDER BY reading_date DESC, created_at DESC`

	var readings []readingdomain.Reading
	err := db.WithContext(ctx).Raw(query, args...).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]readingdomain.Reading, error) {
	var readings []readingdomain.Reading
	err := db.WithContext(ctx).Raw(
		`SELECT ` + readingColumns + ` FROM readings ORDER BY created_at ASC, id ASC`,
	).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) CoveragePairs(ctx context.Context, db *gorm.DB, from, to time.Time) ([]readingdomain.CoveragePair, error) {
	var pairs []readingdomain.CoveragePair
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT equipment_id, reading_date FROM readings
		 WHERE reading_date >= ? AND reading_date <= ?`,
		from,
		to,
	).Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	return pairs, nil
}
