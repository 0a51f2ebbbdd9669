package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/equipment/repository"
	"github.com/obralog/fleetmeter/internal/normalize"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestLookupMatchesNormalizedCode(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEquipmentService(t)
	seedEquipment(t, db, node, "CM-122", "Mixer CM-122", equipmentdomain.CategoryVehicle, true)

	for _, raw := range []string{"CM-122", " cm-122 ", "CM – 122"} {
		item, err := svc.Lookup(context.Background(), raw)
		if err != nil {
			t.Fatalf("lookup %q: %v", raw, err)
		}
		if item.Code != "CM-122" {
			t.Fatalf("lookup %q resolved %q", raw, item.Code)
		}
	}
}

func TestLookupAmbiguousCodeIsNoMatch(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEquipmentService(t)
	seedEquipment(t, db, node, "CM-122", "Mixer A", equipmentdomain.CategoryVehicle, true)
	seedEquipment(t, db, node, "cm–122", "Mixer B", equipmentdomain.CategoryVehicle, true)

	_, err := svc.Lookup(context.Background(), "CM-122")
	if !errors.Is(err, equipmentdomain.ErrAmbiguousCode) {
		t.Fatalf("expected ambiguous_code, got %v", err)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	svc, _ := setupEquipmentService(t)

	_, err := svc.Lookup(context.Background(), "ZZ-999")
	if !errors.Is(err, equipmentdomain.ErrNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestListFiltersActiveAndQuery(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEquipmentService(t)
	seedEquipment(t, db, node, "EX-301", "Excavadora CAT 320", equipmentdomain.CategoryMachine, true)
	seedEquipment(t, db, node, "CM-122", "Mixer CM-122", equipmentdomain.CategoryVehicle, true)
	seedEquipment(t, db, node, "EX-900", "Excavadora retirada", equipmentdomain.CategoryMachine, false)

	all, err := svc.List(context.Background(), equipmentdomain.ListRequest{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(all))
	}

	active, err := svc.List(context.Background(), equipmentdomain.ListRequest{ActiveOnly: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active entries, got %d", len(active))
	}

	// Query comparison is accent and case insensitive.
	matched, err := svc.List(context.Background(), equipmentdomain.ListRequest{ActiveOnly: true, Query: "excavadora"})
	if err != nil {
		t.Fatalf("list query: %v", err)
	}
	if len(matched) != 1 || matched[0].Code != "EX-301" {
		t.Fatalf("expected EX-301 only, got %+v", matched)
	}
}

func TestGetByIDRejectsGarbage(t *testing.T) {
	svc, _ := setupEquipmentService(t)

	_, err := svc.GetByID(context.Background(), "not-a-snowflake")
	if !errors.Is(err, equipmentdomain.ErrInvalidID) {
		t.Fatalf("expected invalid_id, got %v", err)
	}
}

func TestResponseCarriesMandatoryKind(t *testing.T) {
	node := mustNode(t)
	svc, db := setupEquipmentService(t)
	seedEquipment(t, db, node, "CM-122", "Mixer", equipmentdomain.CategoryVehicle, true)
	seedEquipment(t, db, node, "EX-301", "Excavator", equipmentdomain.CategoryMachine, true)

	mixer, err := svc.GetByCode(context.Background(), "CM-122")
	if err != nil {
		t.Fatalf("get mixer: %v", err)
	}
	if mixer.Kind != string(equipmentdomain.KindOdometer) {
		t.Fatalf("expected vehicle to report odometer, got %s", mixer.Kind)
	}

	excavator, err := svc.GetByCode(context.Background(), "EX-301")
	if err != nil {
		t.Fatalf("get excavator: %v", err)
	}
	if excavator.Kind != string(equipmentdomain.KindHourMeter) {
		t.Fatalf("expected machine to report hour meter, got %s", excavator.Kind)
	}
}

func setupEquipmentService(t *testing.T) (equipmentdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(&equipmentdomain.Equipment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
	return svc, db
}

func seedEquipment(t *testing.T, db *gorm.DB, node *snowflake.Node, code, name, category string, active bool) {
	t.Helper()

	now := time.Now().UTC()
	item := equipmentdomain.Equipment{
		ID:             node.Generate(),
		Code:           code,
		NormalizedCode: normalize.EquipmentCode(code),
		Name:           name,
		Slug:           "",
		Category:       category,
		Active:         active,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed equipment %s: %v", code, err)
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
