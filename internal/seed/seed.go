// Package seed bootstraps a demo fleet so a fresh install has a roster to
// read against before the real catalog is loaded.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	"gorm.io/gorm"
)

type fleetEntry struct {
	code     string
	name     string
	category string
}

var demoFleet = []fleetEntry{
	{"CM-122", "Tipper truck 122", equipmentdomain.CategoryVehicle},
	{"CM-123", "Tipper truck 123", equipmentdomain.CategoryVehicle},
	{"EX-210", "Tracked excavator 210", equipmentdomain.CategoryMachine},
	{"EX-215", "Tracked excavator 215", equipmentdomain.CategoryMachine},
	{"CP-031", "Vibratory compactor 031", equipmentdomain.CategoryMachine},
	{"MN-540", "Motor grader 540", equipmentdomain.CategoryMachine},
	{"CB-007", "Water tanker 007", equipmentdomain.CategoryVehicle},
	{"GE-100", "Site generator 100", equipmentdomain.CategoryImplement},
}

// EnsureDemoFleet inserts the demo roster, skipping codes already present.
// Safe to run on every startup.
func EnsureDemoFleet(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range demoFleet {
			if err := ensureEquipmentTx(ctx, tx, node, entry); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureEquipmentTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, entry fleetEntry) error {
	var existing equipmentdomain.Equipment
	err := tx.WithContext(ctx).
		Where("code = ?", entry.code).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	item := equipmentdomain.Equipment{
		ID:             node.Generate(),
		Code:           entry.code,
		NormalizedCode: normalize.EquipmentCode(entry.code),
		Name:           entry.name,
		Slug:           slug.Make(entry.name),
		Category:       entry.category,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return tx.WithContext(ctx).Create(&item).Error
}
