package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/fueling/domain"
	"github.com/obralog/fleetmeter/internal/fueling/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupFuelingService(t *testing.T) (domain.Service, *clock.FakeClock) {
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
	if err := db.AutoMigrate(&domain.FuelEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	fake := clock.NewFakeClock(time.Date(2026, time.January, 11, 9, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: fake,
	})
	return svc, fake
}

func f(v float64) *float64 { return &v }

func TestCreateStoresNormalizedCode(t *testing.T) {
	svc, _ := setupFuelingService(t)

	resp, err := svc.Create(context.Background(), domain.CreateRequest{
		EquipmentCode: " cm – 122 ",
		Date:          "11/01/2026",
		Odometer:      f(45000),
		Liters:        35.5,
		Operator:      "M. Torres",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.EquipmentCode != "cm – 122" {
		t.Fatalf("expected code kept as typed, got %q", resp.EquipmentCode)
	}
	if resp.Date != "11/01/2026" {
		t.Fatalf("expected date 11/01/2026, got %s", resp.Date)
	}

	latest, err := svc.LatestByCode(context.Background(), "CM-122")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected the dispensing to match CM-122 after normalization")
	}
	if latest.Odometer == nil || *latest.Odometer != 45000 {
		t.Fatalf("expected odometer 45000, got %v", latest.Odometer)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setupFuelingService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"empty code", domain.CreateRequest{Liters: 10}, domain.ErrInvalidCode},
		{"zero liters", domain.CreateRequest{EquipmentCode: "CM-122"}, domain.ErrInvalidLiters},
		{"negative counter", domain.CreateRequest{EquipmentCode: "CM-122", Liters: 10, HourMeter: f(-1)}, domain.ErrNegativeValue},
		{"bad date", domain.CreateRequest{EquipmentCode: "CM-122", Liters: 10, Date: "ayer"}, domain.ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLatestByCodePicksNewestEvent(t *testing.T) {
	svc, fake := setupFuelingService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domain.CreateRequest{
		EquipmentCode: "CM-122",
		Date:          "10/01/2026",
		Liters:        20,
	}); err != nil {
		t.Fatalf("create old: %v", err)
	}
	fake.Advance(time.Hour)
	if _, err := svc.Create(ctx, domain.CreateRequest{
		EquipmentCode: "CM-122",
		Date:          "11/01/2026",
		Liters:        30,
	}); err != nil {
		t.Fatalf("create new: %v", err)
	}

	latest, err := svc.LatestByCode(ctx, "CM-122")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.Liters != 30 {
		t.Fatalf("expected the 11/01 dispensing, got %+v", latest)
	}
}

func TestLatestByCodeMissingIsNil(t *testing.T) {
	svc, _ := setupFuelingService(t)

	latest, err := svc.LatestByCode(context.Background(), "ZZ-999")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil for unknown code, got %+v", latest)
	}
}

func TestCoverageReturnsDayPairs(t *testing.T) {
	svc, fake := setupFuelingService(t)
	ctx := context.Background()

	for _, date := range []string{"10/01/2026", "10/01/2026", "11/01/2026"} {
		if _, err := svc.Create(ctx, domain.CreateRequest{
			EquipmentCode: "CM-122",
			Date:          date,
			Liters:        15,
		}); err != nil {
			t.Fatalf("create %s: %v", date, err)
		}
		fake.Advance(time.Minute)
	}

	from := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.January, 11, 0, 0, 0, 0, time.UTC)
	pairs, err := svc.Coverage(ctx, from, to)
	if err != nil {
		t.Fatalf("coverage: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 distinct pairs, got %d: %+v", len(pairs), pairs)
	}
	for _, pair := range pairs {
		if pair.NormalizedCode != "CM-122" {
			t.Fatalf("expected normalized code CM-122, got %q", pair.NormalizedCode)
		}
	}
}
