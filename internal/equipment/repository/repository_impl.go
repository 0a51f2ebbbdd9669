package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() equipmentdomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*equipmentdomain.Equipment, error) {
	var item equipmentdomain.Equipment
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, code_normalized, name, slug, category, description, active, created_at, updated_at
		 FROM equipment WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByNormalizedCode(ctx context.Context, db *gorm.DB, code string) ([]equipmentdomain.Equipment, error) {
	var items []equipmentdomain.Equipment
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, code_normalized, name, slug, category, description, active, created_at, updated_at
		 FROM equipment WHERE code_normalized = ? ORDER BY created_at ASC`,
		code,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, activeOnly bool) ([]equipmentdomain.Equipment, error) {
	query := `SELECT id, code, code_normalized, name, slug, category, description, active, created_at, updated_at
	 FROM equipment`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY name ASC, code ASC`

	var items []equipmentdomain.Equipment
	err := db.WithContext(ctx).Raw(query).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
