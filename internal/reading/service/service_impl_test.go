package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/obralog/fleetmeter/internal/clock"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/obralog/fleetmeter/internal/reading/repository"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubEquipment struct {
	byID map[string]*equipmentdomain.Response
}

func (s *stubEquipment) List(ctx context.Context, req equipmentdomain.ListRequest) ([]equipmentdomain.Response, error) {
	_ = ctx
	_ = req
	return nil, nil
}

func (s *stubEquipment) GetByID(ctx context.Context, id string) (*equipmentdomain.Response, error) {
	_ = ctx
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, equipmentdomain.ErrNotFound
}

func (s *stubEquipment) GetByCode(ctx context.Context, code string) (*equipmentdomain.Response, error) {
	_ = ctx
	_ = code
	return nil, equipmentdomain.ErrNotFound
}

func (s *stubEquipment) Roster(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	_ = ctx
	return nil, nil
}

func (s *stubEquipment) Catalog(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	_ = ctx
	return nil, nil
}

func (s *stubEquipment) Lookup(ctx context.Context, code string) (*equipmentdomain.Equipment, error) {
	_ = ctx
	_ = code
	return nil, equipmentdomain.ErrNotFound
}

type stubSheets struct {
	mu      sync.Mutex
	err     error
	mirrors []sheetsdomain.MirrorReading
}

func (s *stubSheets) Sources() []sheetsdomain.Source { return nil }

func (s *stubSheets) ReadingsByCode(ctx context.Context, source sheetsdomain.Source, code string) ([]sheetsdomain.RowReading, error) {
	_ = ctx
	_ = source
	_ = code
	return nil, nil
}

func (s *stubSheets) Coverage(ctx context.Context, source sheetsdomain.Source, from, to time.Time) ([]sheetsdomain.CodeDate, error) {
	_ = ctx
	_ = source
	return nil, nil
}

func (s *stubSheets) MirrorReading(ctx context.Context, row sheetsdomain.MirrorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = ctx
	if s.err != nil {
		return s.err
	}
	s.mirrors = append(s.mirrors, row)
	return nil
}

type readingFixture struct {
	svc         domain.Service
	db          *gorm.DB
	sheets      *stubSheets
	clock       *clock.FakeClock
	equipmentID string
}

func setupReadingService(t *testing.T) *readingFixture {
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
	_ = db.Exec("PRAGMA busy_timeout = 5000").Error
	prepareReadingSchema(t, db)

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	equipmentID := node.Generate()
	equipment := &stubEquipment{byID: map[string]*equipmentdomain.Response{
		equipmentID.String(): {
			ID:   equipmentID.String(),
			Code: "CM-122",
			Name: "Mixer CM-122",
			Kind: string(equipmentdomain.KindHourMeter),
		},
	}}
	sheets := &stubSheets{}
	fake := clock.NewFakeClock(time.Date(2026, time.January, 11, 15, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Equipment: equipment,
		Sheets:    sheets,
		Clock:     fake,
	})
	return &readingFixture{
		svc:         svc,
		db:          db,
		sheets:      sheets,
		clock:       fake,
		equipmentID: equipmentID.String(),
	}
}

func prepareReadingSchema(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec(`CREATE TABLE readings (
		id BIGINT PRIMARY KEY,
		equipment_id BIGINT NOT NULL,
		reading_date TIMESTAMP NOT NULL,
		hour_meter REAL,
		odometer REAL,
		prev_hour_meter REAL,
		prev_odometer REAL,
		value REAL,
		operator TEXT NOT NULL DEFAULT '',
		observation TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT 'db_reading',
		photo_urls TEXT,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create readings table: %v", err)
	}
}

func f(v float64) *float64 { return &v }

func TestCreateStoresReadingAndSnapshotsPrevious(t *testing.T) {
	fx := setupReadingService(t)
	ctx := context.Background()

	first, err := fx.svc.Create(ctx, domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		Date:        "10/01/2026",
		HourMeter:   f(100),
		Operator:    "J. Quispe",
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.PrevHourMeter != nil {
		t.Fatalf("expected no previous on first reading, got %v", *first.PrevHourMeter)
	}

	fx.clock.Advance(time.Hour)
	second, err := fx.svc.Create(ctx, domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		Date:        "11/01/2026",
		HourMeter:   f(120.5),
	})
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Date != "11/01/2026" {
		t.Fatalf("expected date 11/01/2026, got %s", second.Date)
	}
	if second.Source != domain.SourceDBReading {
		t.Fatalf("expected source db_reading, got %s", second.Source)
	}
	if second.PrevHourMeter == nil || *second.PrevHourMeter != 100 {
		t.Fatalf("expected previous hour meter 100, got %v", second.PrevHourMeter)
	}
}

func TestCreateDefaultsDateToToday(t *testing.T) {
	fx := setupReadingService(t)

	resp, err := fx.svc.Create(context.Background(), domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		HourMeter:   f(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Date != "11/01/2026" {
		t.Fatalf("expected today's date 11/01/2026, got %s", resp.Date)
	}
}

func TestCreateRejectsGarbageID(t *testing.T) {
	fx := setupReadingService(t)

	_, err := fx.svc.Create(context.Background(), domain.CreateRequest{EquipmentID: "not-an-id"})
	if !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected invalid_id, got %v", err)
	}
}

func TestCreateRejectsUnknownEquipment(t *testing.T) {
	fx := setupReadingService(t)

	_, err := fx.svc.Create(context.Background(), domain.CreateRequest{EquipmentID: "424242424242"})
	if !errors.Is(err, domain.ErrInvalidEquipment) {
		t.Fatalf("expected invalid_equipment, got %v", err)
	}
}

func TestCreateRejectsBadDate(t *testing.T) {
	fx := setupReadingService(t)

	_, err := fx.svc.Create(context.Background(), domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		Date:        "anteayer",
	})
	if !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("expected invalid_date, got %v", err)
	}
}

func TestCreateRejectsNegativeCounter(t *testing.T) {
	fx := setupReadingService(t)

	_, err := fx.svc.Create(context.Background(), domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		HourMeter:   f(-1),
	})
	if !errors.Is(err, domain.ErrNegativeValue) {
		t.Fatalf("expected negative_value, got %v", err)
	}
}

func TestCreateAcceptsBackwardsCounter(t *testing.T) {
	fx := setupReadingService(t)
	ctx := context.Background()

	if _, err := fx.svc.Create(ctx, domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		HourMeter:   f(120),
	}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	fx.clock.Advance(time.Hour)
	// Advisory only: an operator may legitimately correct a typo downwards.
	if _, err := fx.svc.Create(ctx, domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		HourMeter:   f(80),
	}); err != nil {
		t.Fatalf("backwards create: %v", err)
	}
}

func TestCreateMirrorsToReadingsSheet(t *testing.T) {
	fx := setupReadingService(t)

	_, err := fx.svc.Create(context.Background(), domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		Date:        "11/01/2026",
		HourMeter:   f(120.5),
		Operator:    "J. Quispe",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(fx.sheets.mirrors) != 1 {
		t.Fatalf("expected 1 mirror call, got %d", len(fx.sheets.mirrors))
	}
	mirror := fx.sheets.mirrors[0]
	if mirror.Code != "CM-122" {
		t.Fatalf("expected mirror code CM-122, got %q", mirror.Code)
	}
	if mirror.HourMeter == nil || *mirror.HourMeter != 120.5 {
		t.Fatalf("expected mirrored hour meter 120.5, got %v", mirror.HourMeter)
	}
}

func TestCreateSurvivesMirrorFailure(t *testing.T) {
	fx := setupReadingService(t)
	fx.sheets.err = errors.New("sync service down")

	resp, err := fx.svc.Create(context.Background(), domain.CreateRequest{
		EquipmentID: fx.equipmentID,
		HourMeter:   f(10),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a stored reading despite mirror failure")
	}
}

func TestListFiltersByWindow(t *testing.T) {
	fx := setupReadingService(t)
	ctx := context.Background()

	for i, date := range []string{"09/01/2026", "10/01/2026", "11/01/2026"} {
		if _, err := fx.svc.Create(ctx, domain.CreateRequest{
			EquipmentID: fx.equipmentID,
			Date:        date,
			HourMeter:   f(float64(100 + i)),
		}); err != nil {
			t.Fatalf("create %s: %v", date, err)
		}
		fx.clock.Advance(time.Minute)
	}

	out, err := fx.svc.List(ctx, domain.ListRequest{
		EquipmentID: fx.equipmentID,
		From:        "10/01/2026",
		To:          "10/01/2026",
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(out))
	}
	if out[0].Date != "10/01/2026" {
		t.Fatalf("expected 10/01/2026, got %s", out[0].Date)
	}

	if _, err := fx.svc.List(ctx, domain.ListRequest{From: "mañana"}); !errors.Is(err, domain.ErrInvalidDate) {
		t.Fatalf("expected invalid_date, got %v", err)
	}
}
