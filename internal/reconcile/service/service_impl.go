package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/config"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/obralog/fleetmeter/internal/reconcile/domain"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Equipment equipmentdomain.Service
	Readings  readingdomain.Service
	Fueling   fuelingdomain.Service
	Sheets    sheetsdomain.Service
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log           *zap.Logger
	equipment     equipmentdomain.Service
	readings      readingdomain.Service
	fueling       fuelingdomain.Service
	sheets        sheetsdomain.Service
	metrics       *obsmetrics.Metrics
	sourceTimeout time.Duration
}

func New(p Params) domain.Service {
	return &service{
		log:           p.Log.Named("reconcile.service"),
		equipment:     p.Equipment,
		readings:      p.Readings,
		fueling:       p.Fueling,
		sheets:        p.Sheets,
		metrics:       p.Metrics,
		sourceTimeout: p.Cfg.SourceTimeout,
	}
}

// source is one fan-out target. Results land in a fixed slot so the
// collected order stays deterministic regardless of goroutine scheduling.
type source struct {
	tag   string
	fetch func(ctx context.Context) ([]domain.Candidate, error)
}

func (s *service) Collect(ctx context.Context, code string, equipmentID snowflake.ID) []domain.Candidate {
	sources := []source{
		{tag: readingdomain.SourceDBReading, fetch: func(ctx context.Context) ([]domain.Candidate, error) {
			return s.fromReadings(ctx, equipmentID)
		}},
		{tag: readingdomain.SourceDBFuelEvent, fetch: func(ctx context.Context) ([]domain.Candidate, error) {
			return s.fromFuelEvents(ctx, equipmentID, code)
		}},
	}
	for _, sheet := range s.sheets.Sources() {
		sheet := sheet
		sources = append(sources, source{tag: sheet.Tag, fetch: func(ctx context.Context) ([]domain.Candidate, error) {
			return s.fromSheet(ctx, sheet, equipmentID, code)
		}})
	}

	slots := make([][]domain.Candidate, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src source) {
			defer wg.Done()
			fetchCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
			defer cancel()

			candidates, err := src.fetch(fetchCtx)
			if err != nil {
				s.log.Warn("candidate source failed",
					zap.String("source", src.tag),
					zap.String("equipment_code", code),
					zap.Error(err),
				)
				if s.metrics != nil {
					s.metrics.RecordCandidateSource(ctx, src.tag, "error")
				}
				return
			}
			if s.metrics != nil {
				s.metrics.RecordCandidateSource(ctx, src.tag, "ok")
			}
			slots[i] = candidates
		}(i, src)
	}
	wg.Wait()

	var out []domain.Candidate
	for _, slot := range slots {
		out = append(out, slot...)
	}
	return out
}

func (s *service) Resolve(candidates []domain.Candidate) domain.Resolution {
	if len(candidates) == 0 {
		return domain.Resolution{}
	}

	ranked := make([]domain.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return rankBefore(ranked[i], ranked[j])
	})

	top := ranked[0]
	res := domain.Resolution{
		Date:     top.Date,
		Operator: top.Operator,
		Source:   top.Source,
	}
	for _, c := range ranked {
		if res.HourMeter == nil && positive(c.HourMeter) {
			res.HourMeter = c.HourMeter
		}
		if res.Odometer == nil && positive(c.Odometer) {
			res.Odometer = c.Odometer
		}
		if res.HourMeter != nil && res.Odometer != nil {
			break
		}
	}
	return res
}

func (s *service) Previous(ctx context.Context, equipmentID string) (*domain.Response, error) {
	equip, err := s.equipment.GetByID(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	id, err := equipmentdomain.ParseID(equip.ID)
	if err != nil {
		return nil, equipmentdomain.ErrInvalidID
	}

	candidates := s.Collect(ctx, equip.Code, id)
	res := s.Resolve(candidates)

	outcome := "resolved"
	if len(candidates) == 0 {
		outcome = "no_history"
	}
	if s.metrics != nil {
		s.metrics.RecordResolveResult(ctx, outcome)
	}

	out := &domain.Response{
		EquipmentID: equip.ID,
		Code:        equip.Code,
		HourMeter:   res.HourMeter,
		Odometer:    res.Odometer,
		Operator:    res.Operator,
		Source:      res.Source,
		HasHistory:  len(candidates) > 0,
	}
	if res.Date != nil {
		out.Date = normalize.FormatDate(*res.Date)
	}
	return out, nil
}

func (s *service) fromReadings(ctx context.Context, equipmentID snowflake.ID) ([]domain.Candidate, error) {
	latest, err := s.readings.Latest(ctx, equipmentID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}
	date := latest.ReadingDate
	return []domain.Candidate{{
		EquipmentID: equipmentID,
		Date:        &date,
		HourMeter:   latest.HourMeter,
		Odometer:    latest.Odometer,
		Operator:    latest.Operator,
		Source:      readingdomain.SourceDBReading,
		CreatedAt:   latest.CreatedAt,
	}}, nil
}

func (s *service) fromFuelEvents(ctx context.Context, equipmentID snowflake.ID, code string) ([]domain.Candidate, error) {
	event, err := s.fueling.LatestByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	date := event.EventDate
	return []domain.Candidate{{
		EquipmentID: equipmentID,
		Date:        &date,
		HourMeter:   event.HourMeter,
		Odometer:    event.Odometer,
		Operator:    event.Operator,
		Source:      readingdomain.SourceDBFuelEvent,
		CreatedAt:   event.CreatedAt,
	}}, nil
}

func (s *service) fromSheet(ctx context.Context, sheet sheetsdomain.Source, equipmentID snowflake.ID, code string) ([]domain.Candidate, error) {
	rows, err := s.sheets.ReadingsByCode(ctx, sheet, code)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Candidate{
			EquipmentID: equipmentID,
			Date:        row.Date,
			HourMeter:   row.HourMeter,
			Odometer:    row.Odometer,
			Operator:    row.Operator,
			Source:      row.Source,
		})
	}
	return out, nil
}

// rankBefore orders candidates best first: recency, then source priority,
// then creation time. Dateless candidates always rank after dated ones.
func rankBefore(a, b domain.Candidate) bool {
	switch {
	case a.Date == nil && b.Date != nil:
		return false
	case a.Date != nil && b.Date == nil:
		return true
	case a.Date != nil && b.Date != nil && !a.Date.Equal(*b.Date):
		return a.Date.After(*b.Date)
	}
	pa, pb := domain.SourcePriority(a.Source), domain.SourcePriority(b.Source)
	if pa != pb {
		return pa > pb
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
