package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/obralog/fleetmeter/internal/clock"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	"github.com/obralog/fleetmeter/internal/reading/domain"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Equipment equipmentdomain.Service
	Sheets    sheetsdomain.Service
	Clock     clock.Clock
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	equipment equipmentdomain.Service
	sheets    sheetsdomain.Service
	clock     clock.Clock
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("reading.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		equipment: p.Equipment,
		sheets:    p.Sheets,
		clock:     p.Clock,
		metrics:   p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	equipmentID, err := domain.ParseID(strings.TrimSpace(req.EquipmentID))
	if err != nil || equipmentID == 0 {
		return nil, domain.ErrInvalidID
	}

	equip, err := s.equipment.GetByID(ctx, strings.TrimSpace(req.EquipmentID))
	if err != nil {
		switch {
		case errors.Is(err, equipmentdomain.ErrNotFound), errors.Is(err, equipmentdomain.ErrInvalidID):
			return nil, domain.ErrInvalidEquipment
		default:
			return nil, err
		}
	}

	day, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	for _, v := range []*float64{req.HourMeter, req.Odometer, req.PrevHourMeter, req.PrevOdometer} {
		if v != nil && *v < 0 {
			return nil, domain.ErrNegativeValue
		}
	}

	latest, err := s.repo.FindLatestByEquipment(ctx, s.db, equipmentID)
	if err != nil {
		return nil, err
	}

	prevHour := req.PrevHourMeter
	prevOdo := req.PrevOdometer
	if latest != nil {
		if prevHour == nil {
			prevHour = latest.HourMeter
		}
		if prevOdo == nil {
			prevOdo = latest.Odometer
		}
		s.advise(ctx, equip.Code, "hour_meter", req.HourMeter, latest.HourMeter)
		s.advise(ctx, equip.Code, "odometer", req.Odometer, latest.Odometer)
	}

	now := s.clock.Now()
	record := &domain.Reading{
		ID:            s.genID.Generate(),
		EquipmentID:   equipmentID,
		ReadingDate:   day,
		HourMeter:     req.HourMeter,
		Odometer:      req.Odometer,
		PrevHourMeter: prevHour,
		PrevOdometer:  prevOdo,
		Operator:      strings.TrimSpace(req.Operator),
		Observation:   strings.TrimSpace(req.Observation),
		Source:        domain.SourceDBReading,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if len(req.PhotoURLs) > 0 {
		record.PhotoURLs = pq.StringArray(req.PhotoURLs)
	}

	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReadingIngested(ctx, domain.SourceDBReading)
	}

	s.mirror(ctx, equip.Code, record)

	resp := toResponse(record)
	return &resp, nil
}

func (s *service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	var filter domain.Filter
	if v := strings.TrimSpace(req.EquipmentID); v != "" {
		id, err := domain.ParseID(v)
		if err != nil || id == 0 {
			return nil, domain.ErrInvalidID
		}
		filter.EquipmentID = id
	}
	if v := strings.TrimSpace(req.From); v != "" {
		parsed := normalize.ParseDate(v)
		if parsed == nil {
			return nil, domain.ErrInvalidDate
		}
		from := dateOnly(*parsed)
		filter.From = &from
	}
	if v := strings.TrimSpace(req.To); v != "" {
		parsed := normalize.ParseDate(v)
		if parsed == nil {
			return nil, domain.ErrInvalidDate
		}
		to := dateOnly(*parsed).Add(24*time.Hour - time.Second)
		filter.To = &to
	}

	readings, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(readings))
	for i := range readings {
		out = append(out, toResponse(&readings[i]))
	}
	return out, nil
}

func (s *service) Latest(ctx context.Context, equipmentID snowflake.ID) (*domain.Reading, error) {
	return s.repo.FindLatestByEquipment(ctx, s.db, equipmentID)
}

func (s *service) Coverage(ctx context.Context, from, to time.Time) ([]domain.CoveragePair, error) {
	return s.repo.CoveragePairs(ctx, s.db, dateOnly(from), dateOnly(to).Add(24*time.Hour-time.Second))
}

func (s *service) All(ctx context.Context) ([]domain.Reading, error) {
	return s.repo.ListAll(ctx, s.db)
}

func (s *service) ApplyPatch(ctx context.Context, id snowflake.ID, patch domain.Patch) error {
	return s.repo.Update(ctx, s.db, id, patch)
}

// resolveDate interprets the submitted date, defaulting to today when the
// form leaves it blank.
func (s *service) resolveDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dateOnly(s.clock.Now()), nil
	}
	parsed := normalize.ParseDate(raw)
	if parsed == nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return *parsed, nil
}

// advise logs counters that moved backwards. Submissions are accepted anyway;
// operators sometimes correct an earlier typo with a smaller true value.
func (s *service) advise(ctx context.Context, code, kind string, submitted, last *float64) {
	if submitted == nil || last == nil || *submitted <= 0 || *last <= 0 {
		return
	}
	if *submitted >= *last {
		return
	}
	s.log.Warn("counter moved backwards",
		zap.String("equipment_code", code),
		zap.String("kind", kind),
		zap.Float64("submitted", *submitted),
		zap.Float64("last", *last),
	)
	if s.metrics != nil {
		s.metrics.RecordMonotonicityAdvisory(ctx, kind)
	}
}

// mirror pushes the stored reading back to the readings sheet. Failures are
// logged and counted but never fail the submission.
func (s *service) mirror(ctx context.Context, code string, record *domain.Reading) {
	if s.sheets == nil {
		return
	}
	err := s.sheets.MirrorReading(ctx, sheetsdomain.MirrorReading{
		Code:        code,
		Date:        record.ReadingDate,
		HourMeter:   record.HourMeter,
		Odometer:    record.Odometer,
		Operator:    record.Operator,
		Observation: record.Observation,
	})
	if err != nil {
		s.log.Warn("reading mirror failed",
			zap.String("equipment_code", code),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.RecordSheetMirror(ctx, "error")
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordSheetMirror(ctx, "ok")
	}
}

func toResponse(r *domain.Reading) domain.Response {
	return domain.Response{
		ID:            r.ID.String(),
		EquipmentID:   r.EquipmentID.String(),
		Date:          normalize.FormatDate(r.ReadingDate),
		HourMeter:     r.HourMeter,
		Odometer:      r.Odometer,
		PrevHourMeter: r.PrevHourMeter,
		PrevOdometer:  r.PrevOdometer,
		Operator:      r.Operator,
		Observation:   r.Observation,
		Source:        r.Source,
		PhotoURLs:     []string(r.PhotoURLs),
		CreatedAt:     r.CreatedAt,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
