package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/obralog/fleetmeter/internal/clock"
	"github.com/obralog/fleetmeter/internal/config"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	fuelingdomain "github.com/obralog/fleetmeter/internal/fueling/domain"
	"github.com/obralog/fleetmeter/internal/gaps/domain"
	"github.com/obralog/fleetmeter/internal/normalize"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	sheetsdomain "github.com/obralog/fleetmeter/internal/sheets/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Clock     clock.Clock
	Equipment equipmentdomain.Service
	Readings  readingdomain.Service
	Fueling   fuelingdomain.Service
	Sheets    sheetsdomain.Service
}

type service struct {
	log         *zap.Logger
	clock       clock.Clock
	equipment   equipmentdomain.Service
	readings    readingdomain.Service
	fueling     fuelingdomain.Service
	sheets      sheetsdomain.Service
	defaultDays int
}

func New(p Params) domain.Service {
	return &service{
		log:         p.Log.Named("gaps.service"),
		clock:       p.Clock,
		equipment:   p.Equipment,
		readings:    p.Readings,
		fueling:     p.Fueling,
		sheets:      p.Sheets,
		defaultDays: p.Cfg.PendingDefaultDays,
	}
}

const dateKeyLayout = "2006-01-02"

// coverKey identifies one (equipment, date) pair in the covered set.
type coverKey struct {
	equipmentID string
	date        string
}

func (s *service) FindGaps(ctx context.Context, window domain.Window, filter string) (*domain.Result, error) {
	days, err := s.windowDates(window)
	if err != nil {
		return nil, err
	}

	roster, err := s.equipment.Roster(ctx)
	if err != nil {
		return nil, err
	}
	roster = filterRoster(roster, filter)
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Name != roster[j].Name {
			return roster[i].Name < roster[j].Name
		}
		return roster[i].Code < roster[j].Code
	})

	byCode := s.rosterByCode(roster)

	from, to := days[0], days[len(days)-1]
	covered, warnings := s.coveredSet(ctx, from, to, byCode)

	pending := make(map[string][]domain.PendingEntry, len(days))
	for _, day := range days {
		key := day.Format(dateKeyLayout)
		entries := make([]domain.PendingEntry, 0)
		for _, e := range roster {
			if _, ok := covered[coverKey{equipmentID: e.ID.String(), date: key}]; ok {
				continue
			}
			entries = append(entries, domain.PendingEntry{
				EquipmentID: e.ID.String(),
				Code:        e.Code,
				Name:        e.Name,
				Category:    e.Category,
			})
		}
		pending[key] = entries
	}

	return &domain.Result{Pending: pending, Warnings: warnings}, nil
}

// rosterByCode indexes the roster by normalized code for matching coverage
// reported by code instead of ID. When two entries share a normalized code
// the match is ambiguous, so neither gets credited and both stay pending.
func (s *service) rosterByCode(roster []equipmentdomain.Equipment) map[string]string {
	byCode := make(map[string]string, len(roster))
	ambiguous := make(map[string]struct{})
	for _, e := range roster {
		code := e.NormalizedCode
		if _, seen := byCode[code]; seen {
			ambiguous[code] = struct{}{}
			continue
		}
		byCode[code] = e.ID.String()
	}
	for code := range ambiguous {
		s.log.Warn("normalized code shared by multiple equipment, skipping code match",
			zap.String("normalized_code", code),
		)
		delete(byCode, code)
	}
	return byCode
}

// coveredSet unions the (equipment, date) pairs that have any reading.
// A failing source degrades to zero coverage with a warning; the scan
// never fails because one collaborator is down.
func (s *service) coveredSet(ctx context.Context, from, to time.Time, byCode map[string]string) (map[coverKey]struct{}, []string) {
	covered := make(map[coverKey]struct{})
	var warnings []string

	readingPairs, err := s.readings.Coverage(ctx, from, to)
	if err != nil {
		s.log.Warn("reading coverage failed", zap.Error(err))
		warnings = append(warnings, readingdomain.SourceDBReading)
	}
	for _, p := range readingPairs {
		covered[coverKey{
			equipmentID: p.EquipmentID.String(),
			date:        p.ReadingDate.Format(dateKeyLayout),
		}] = struct{}{}
	}

	fuelPairs, err := s.fueling.Coverage(ctx, from, to)
	if err != nil {
		s.log.Warn("fuel event coverage failed", zap.Error(err))
		warnings = append(warnings, readingdomain.SourceDBFuelEvent)
	}
	for _, p := range fuelPairs {
		id, ok := byCode[p.NormalizedCode]
		if !ok {
			continue
		}
		covered[coverKey{
			equipmentID: id,
			date:        p.EventDate.Format(dateKeyLayout),
		}] = struct{}{}
	}

	for _, src := range s.sheets.Sources() {
		pairs, err := s.sheets.Coverage(ctx, src, from, to)
		if err != nil {
			s.log.Warn("sheet coverage failed",
				zap.String("source", src.Tag),
				zap.Error(err),
			)
			warnings = append(warnings, src.Tag)
			continue
		}
		for _, p := range pairs {
			id, ok := byCode[normalize.EquipmentCode(p.Code)]
			if !ok {
				continue
			}
			covered[coverKey{
				equipmentID: id,
				date:        p.Date.Format(dateKeyLayout),
			}] = struct{}{}
		}
	}

	return covered, warnings
}

// windowDates expands the window into calendar days, oldest first.
func (s *service) windowDates(window domain.Window) ([]time.Time, error) {
	if window.Date != nil {
		return []time.Time{dateOnly(*window.Date)}, nil
	}
	days := window.Days
	if days == 0 {
		days = s.defaultDays
	}
	if days <= 0 {
		return nil, domain.ErrInvalidWindow
	}
	today := dateOnly(s.clock.Now())
	out := make([]time.Time, 0, days)
	for i := days - 1; i >= 0; i-- {
		out = append(out, today.AddDate(0, 0, -i))
	}
	return out, nil
}

func filterRoster(roster []equipmentdomain.Equipment, filter string) []equipmentdomain.Equipment {
	q := normalize.Key(filter)
	if q == "" {
		return roster
	}
	out := make([]equipmentdomain.Equipment, 0, len(roster))
	for _, e := range roster {
		haystack := normalize.Key(e.Code + " " + e.Name + " " + e.Category + " " + e.Description)
		if strings.Contains(haystack, q) {
			out = append(out, e)
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
