package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/fueling/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("fueling.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	code := strings.TrimSpace(req.EquipmentCode)
	normalized := normalize.EquipmentCode(code)
	if normalized == "" {
		return nil, domain.ErrInvalidCode
	}

	if req.Liters <= 0 || math.IsNaN(req.Liters) || math.IsInf(req.Liters, 0) {
		return nil, domain.ErrInvalidLiters
	}
	for _, v := range []*float64{req.HourMeter, req.Odometer} {
		if v != nil && *v < 0 {
			return nil, domain.ErrNegativeValue
		}
	}

	day, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &domain.FuelEvent{
		ID:             s.genID.Generate(),
		EquipmentCode:  code,
		NormalizedCode: normalized,
		EventDate:      day,
		HourMeter:      req.HourMeter,
		Odometer:       req.Odometer,
		Liters:         req.Liters,
		Operator:       strings.TrimSpace(req.Operator),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, event); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReadingIngested(ctx, readingdomain.SourceDBFuelEvent)
	}

	resp := toResponse(event)
	return &resp, nil
}

func (s *service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	var filter domain.Filter
	if code := normalize.EquipmentCode(req.EquipmentCode); code != "" {
		filter.NormalizedCode = code
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

	events, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(events))
	for i := range events {
		out = append(out, toResponse(&events[i]))
	}
	return out, nil
}

func (s *service) LatestByCode(ctx context.Context, code string) (*domain.FuelEvent, error) {
	normalized := normalize.EquipmentCode(code)
	if normalized == "" {
		return nil, nil
	}
	return s.repo.FindLatestByCode(ctx, s.db, normalized)
}

func (s *service) Coverage(ctx context.Context, from, to time.Time) ([]domain.CoveragePair, error) {
	return s.repo.CoveragePairs(ctx, s.db, dateOnly(from), dateOnly(to).Add(24*time.Hour-time.Second))
}

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

func toResponse(e *domain.FuelEvent) domain.Response {
	return domain.Response{
		ID:            e.ID.String(),
		EquipmentCode: e.EquipmentCode,
		Date:          normalize.FormatDate(e.EventDate),
		HourMeter:     e.HourMeter,
		Odometer:      e.Odometer,
		Liters:        e.Liters,
		Operator:      e.Operator,
		CreatedAt:     e.CreatedAt,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
