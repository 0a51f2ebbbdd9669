package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/config"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/obralog/fleetmeter/internal/reconcile/domain"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
	"go.uber.org/zap"
)

type stubEquipment struct {
	byID map[string]*equipmentdomain.Response
}

func (s *stubEquipment) List(ctx context.Context, req equipmentdomain.ListRequest) ([]equipmentdomain.Response, error) {
	return nil, nil
}

func (s *stubEquipment) GetByID(ctx context.Context, id string) (*equipmentdomain.Response, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, equipmentdomain.ErrNotFound
}

func (s *stubEquipment) GetByCode(ctx context.Context, code string) (*equipmentdomain.Response, error) {
	return nil, equipmentdomain.ErrNotFound
}

func (s *stubEquipment) Roster(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	return nil, nil
}

func (s *stubEquipment) Catalog(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	return nil, nil
}

func (s *stubEquipment) Lookup(ctx context.Context, code string) (*equipmentdomain.Equipment, error) {
	return nil, equipmentdomain.ErrNotFound
}

type stubReadings struct {
	latest *readingdomain.Reading
	err    error
}

func (s *stubReadings) Create(ctx context.Context, req readingdomain.CreateRequest) (*readingdomain.Response, error) {
	return nil, nil
}

func (s *stubReadings) List(ctx context.Context, req readingdomain.ListRequest) ([]readingdomain.Response, error) {
	return nil, nil
}

func (s *stubReadings) Latest(ctx context.Context, equipmentID snowflake.ID) (*readingdomain.Reading, error) {
	return s.latest, s.err
}

func (s *stubReadings) Coverage(ctx context.Context, from, to time.Time) ([]readingdomain.CoveragePair, error) {
	return nil, nil
}

func (s *stubReadings) All(ctx context.Context) ([]readingdomain.Reading, error) {
	return nil, nil
}

func (s *stubReadings) ApplyPatch(ctx context.Context, id snowflake.ID, patch readingdomain.Patch) error {
	return nil
}

type stubFueling struct {
	latest *fuelingdomain.FuelEvent
	err    error
}

func (s *stubFueling) Create(ctx context.Context, req fuelingdomain.CreateRequest) (*fuelingdomain.Response, error) {
	return nil, nil
}

func (s *stubFueling) List(ctx context.Context, req fuelingdomain.ListRequest) ([]fuelingdomain.Response, error) {
	return nil, nil
}

func (s *stubFueling) LatestByCode(ctx context.Context, code string) (*fuelingdomain.FuelEvent, error) {
	return s.latest, s.err
}

func (s *stubFueling) Coverage(ctx context.Context, from, to time.Time) ([]fuelingdomain.CoveragePair, error) {
	return nil, nil
}

type stubSheets struct {
	sources []sheetsdomain.Source
	rows    map[string][]sheetsdomain.RowReading
	err     error
	block   bool
}

func (s *stubSheets) Sources() []sheetsdomain.Source { return s.sources }

func (s *stubSheets) ReadingsByCode(ctx context.Context, source sheetsdomain.Source, code string) ([]sheetsdomain.RowReading, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.rows[source.Sheet], nil
}

func (s *stubSheets) Coverage(ctx context.Context, source sheetsdomain.Source, from, to time.Time) ([]sheetsdomain.CodeDate, error) {
	return nil, nil
}

func (s *stubSheets) MirrorReading(ctx context.Context, row sheetsdomain.MirrorReading) error {
	return nil
}

type fixture struct {
	svc      domain.Service
	readings *stubReadings
	fueling  *stubFueling
	sheets   *stubSheets
	id       snowflake.ID
}

func setup(t *testing.T) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	id := node.Generate()

	readings := &stubReadings{}
	fueling := &stubFueling{}
	sheets := &stubSheets{sources: []sheetsdomain.Source{
		{Sheet: "Lecturas", Tag: readingdomain.SourceSheetReadings},
	}}
	equipment := &stubEquipment{byID: map[string]*equipmentdomain.Response{
		id.String(): {ID: id.String(), Code: "CM-122", Name: "Mixer CM-122"},
	}}

	svc := New(Params{
		Cfg:       config.Config{SourceTimeout: 200 * time.Millisecond},
		Log:       zap.NewNop(),
		Equipment: equipment,
		Readings:  readings,
		Fueling:   fueling,
		Sheets:    sheets,
	})
	return &fixture{svc: svc, readings: readings, fueling: fueling, sheets: sheets, id: id}
}

func f(v float64) *float64 { return &v }

func d(day int) *time.Time {
	t := time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestResolveCarriesOlderCounterForward(t *testing.T) {
	fx := setup(t)

	// Latest event is the fuel one but it carries no hour meter; the older
	// reading supplies it while the odometer comes from the top candidate.
	res := fx.svc.Resolve([]domain.Candidate{
		{Date: d(10), HourMeter: f(120.5), Source: readingdomain.SourceDBReading},
		{Date: d(11), Odometer: f(45000), Operator: "P. Mamani", Source: readingdomain.SourceDBFuelEvent},
	})

	if res.Date == nil || !res.Date.Equal(*d(11)) {
		t.Fatalf("expected date 11/01/2026, got %v", res.Date)
	}
	if res.Operator != "P. Mamani" {
		t.Fatalf("expected operator from the top candidate, got %q", res.Operator)
	}
	if res.HourMeter == nil || *res.HourMeter != 120.5 {
		t.Fatalf("expected hour meter 120.5 carried forward, got %v", res.HourMeter)
	}
	if res.Odometer == nil || *res.Odometer != 45000 {
		t.Fatalf("expected odometer 45000, got %v", res.Odometer)
	}
}

func TestResolveTreatsZeroAsMissing(t *testing.T) {
	fx := setup(t)

	res := fx.svc.Resolve([]domain.Candidate{
		{Date: d(11), HourMeter: f(0), Source: readingdomain.SourceDBReading},
		{Date: d(9), HourMeter: f(87.3), Source: readingdomain.SourceDBReading},
	})

	if res.HourMeter == nil || *res.HourMeter != 87.3 {
		t.Fatalf("expected zero skipped in favor of 87.3, got %v", res.HourMeter)
	}
}

func TestResolveSourcePriorityBreaksDateTies(t *testing.T) {
	fx := setup(t)

	cases := []struct {
		name   string
		lower  string
		higher string
	}{
		{"sheet over fuel", readingdomain.SourceDBFuelEvent, readingdomain.SourceSheetReadings},
		{"sheet over reading", readingdomain.SourceDBReading, readingdomain.SourceSheetFuelLog},
		{"fuel over reading", readingdomain.SourceDBReading, readingdomain.SourceDBFuelEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := fx.svc.Resolve([]domain.Candidate{
				{Date: d(11), HourMeter: f(10), Source: tc.lower},
				{Date: d(11), HourMeter: f(20), Source: tc.higher},
			})
			if res.Source != tc.higher {
				t.Fatalf("expected %s to win the tie, got %s", tc.higher, res.Source)
			}
			if res.HourMeter == nil || *res.HourMeter != 20 {
				t.Fatalf("expected the winning candidate's value, got %v", res.HourMeter)
			}
		})
	}
}

func TestResolveEqualPriorityTiesByCreation(t *testing.T) {
	fx := setup(t)

	older := time.Date(2026, time.January, 11, 8, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	res := fx.svc.Resolve([]domain.Candidate{
		{Date: d(11), Operator: "first", Source: readingdomain.SourceDBReading, CreatedAt: older},
		{Date: d(11), Operator: "second", Source: readingdomain.SourceDBReading, CreatedAt: newer},
	})
	if res.Operator != "second" {
		t.Fatalf("expected the later-created candidate, got %q", res.Operator)
	}
}

func TestResolveDatelessCandidatesRankLast(t *testing.T) {
	fx := setup(t)

	res := fx.svc.Resolve([]domain.Candidate{
		{Date: nil, HourMeter: f(999), Operator: "low confidence", Source: readingdomain.SourceSheetReadings},
		{Date: d(5), HourMeter: f(50), Operator: "dated", Source: readingdomain.SourceDBReading},
	})
	if res.Operator != "dated" {
		t.Fatalf("expected the dated candidate on top, got %q", res.Operator)
	}
	if res.HourMeter == nil || *res.HourMeter != 50 {
		t.Fatalf("expected hour meter 50, got %v", res.HourMeter)
	}
}

func TestResolveEmptyInputIsNoHistory(t *testing.T) {
	fx := setup(t)

	res := fx.svc.Resolve(nil)
	if !res.Empty() {
		t.Fatalf("expected zero resolution, got %+v", res)
	}
}

func TestCollectMergesAllSources(t *testing.T) {
	fx := setup(t)
	now := time.Now()

	fx.readings.latest = &readingdomain.Reading{
		ID:          fx.id,
		EquipmentID: fx.id,
		ReadingDate: *d(10),
		HourMeter:   f(120.5),
		CreatedAt:   now,
	}
	fx.fueling.latest = &fuelingdomain.FuelEvent{
		EquipmentCode: "CM-122",
		EventDate:     *d(11),
		Odometer:      f(45000),
		Liters:        60,
		CreatedAt:     now,
	}
	fx.sheets.rows = map[string][]sheetsdomain.RowReading{
		"Lecturas": {{Code: "CM-122", Date: d(9), HourMeter: f(100), Source: readingdomain.SourceSheetReadings}},
	}

	got := fx.svc.Collect(context.Background(), "CM-122", fx.id)
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	// Slot order is fixed: readings, fuel events, then sheets.
	if got[0].Source != readingdomain.SourceDBReading ||
		got[1].Source != readingdomain.SourceDBFuelEvent ||
		got[2].Source != readingdomain.SourceSheetReadings {
		t.Fatalf("unexpected source order: %s %s %s", got[0].Source, got[1].Source, got[2].Source)
	}
}

func TestCollectSurvivesFailingSource(t *testing.T) {
	fx := setup(t)
	fx.readings.latest = &readingdomain.Reading{EquipmentID: fx.id, ReadingDate: *d(10), HourMeter: f(120.5)}
	fx.fueling.err = errors.New("db down")

	got := fx.svc.Collect(context.Background(), "CM-122", fx.id)
	if len(got) != 1 {
		t.Fatalf("expected the surviving source's candidate, got %d", len(got))
	}
	if got[0].Source != readingdomain.SourceDBReading {
		t.Fatalf("expected db_reading candidate, got %s", got[0].Source)
	}
}

func TestCollectTimesOutSlowSource(t *testing.T) {
	fx := setup(t)
	fx.readings.latest = &readingdomain.Reading{EquipmentID: fx.id, ReadingDate: *d(10), HourMeter: f(120.5)}
	fx.sheets.block = true

	start := time.Now()
	got := fx.svc.Collect(context.Background(), "CM-122", fx.id)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("collect took %v, per-source timeout not applied", elapsed)
	}
	if len(got) != 1 {
		t.Fatalf("expected only the fast source, got %d candidates", len(got))
	}
}

func TestPreviousResolvesForKnownEquipment(t *testing.T) {
	fx := setup(t)
	fx.readings.latest = &readingdomain.Reading{
		EquipmentID: fx.id,
		ReadingDate: *d(10),
		HourMeter:   f(120.5),
		Operator:    "J. Quispe",
	}

	resp, err := fx.svc.Previous(context.Background(), fx.id.String())
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if !resp.HasHistory {
		t.Fatal("expected history")
	}
	if resp.Date != "10/01/2026" {
		t.Fatalf("expected date 10/01/2026, got %s", resp.Date)
	}
	if resp.HourMeter == nil || *resp.HourMeter != 120.5 {
		t.Fatalf("expected hour meter 120.5, got %v", resp.HourMeter)
	}
}

func TestPreviousWithoutHistoryIsEmptyNotError(t *testing.T) {
	fx := setup(t)

	resp, err := fx.svc.Previous(context.Background(), fx.id.String())
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if resp.HasHistory {
		t.Fatal("expected no history for a fresh equipment")
	}
	if resp.Date != "" || resp.HourMeter != nil || resp.Odometer != nil {
		t.Fatalf("expected empty pre-fill, got %+v", resp)
	}
}

func TestPreviousUnknownEquipment(t *testing.T) {
	fx := setup(t)

	_, err := fx.svc.Previous(context.Background(), "424242424242")
	if !errors.Is(err, equipmentdomain.ErrNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}
