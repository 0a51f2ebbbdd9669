package service

import (
	"context"
	"strings"

	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo equipmentdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo equipmentdomain.Repository
}

func New(p Params) equipmentdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("equipment.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req equipmentdomain.ListRequest) ([]equipmentdomain.Response, error) {
	items, err := s.repo.List(ctx, s.db, req.ActiveOnly)
	if err != nil {
		return nil, err
	}

	query := normalize.Key(req.Query)
	resp := make([]equipmentdomain.Response, 0, len(items))
	for i := range items {
		if query != "" && !matchesQuery(&items[i], query) {
			continue
		}
		resp = append(resp, *toResponse(&items[i]))
	}

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*equipmentdomain.Response, error) {
	equipmentID, err := equipmentdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, equipmentdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, equipmentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, equipmentdomain.ErrNotFound
	}

	return toResponse(item), nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*equipmentdomain.Response, error) {
	item, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

func (s *Service) Roster(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	return s.repo.List(ctx, s.db, true)
}

func (s *Service) Catalog(ctx context.Context) ([]equipmentdomain.Equipment, error) {
	return s.repo.List(ctx, s.db, false)
}

func (s *Service) Lookup(ctx context.Context, code string) (*equipmentdomain.Equipment, error) {
	normalized := normalize.EquipmentCode(code)
	if normalized == "" {
		return nil, equipmentdomain.ErrInvalidCode
	}

	items, err := s.repo.FindByNormalizedCode(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, equipmentdomain.ErrNotFound
	case 1:
		return &items[0], nil
	default:
		s.log.Warn("equipment code matches several catalog entries",
			zap.String("equipment_code", normalized),
			zap.Int("matches", len(items)),
		)
		return nil, equipmentdomain.ErrAmbiguousCode
	}
}

func matchesQuery(e *equipmentdomain.Equipment, query string) bool {
	for _, field := range []string{e.Code, e.Name, e.Category, e.Description} {
		if strings.Contains(normalize.Key(field), query) {
			return true
		}
	}
	return false
}

func toResponse(e *equipmentdomain.Equipment) *equipmentdomain.Response {
	return &equipmentdomain.Response{
		ID:          e.ID.String(),
		Code:        e.Code,
		Name:        e.Name,
		Slug:        e.Slug,
		Category:    e.Category,
		Kind:        string(e.MandatoryKind()),
		Description: e.Description,
		Active:      e.Active,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
