package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/obralog/fleetmeter/internal/config"
	"github.com/obralog/fleetmeter/internal/normalize"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/obralog/fleetmeter/internal/sheets/domain"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg     config.Config
	Aliases *config.AliasHolder
	Client  domain.Client
	Log     *zap.Logger
}

type service struct {
	cfg     config.Config
	aliases *config.AliasHolder
	client  domain.Client
	log     *zap.Logger
}

func New(p Params) domain.Service {
	return &service{
		cfg:     p.Cfg,
		aliases: p.Aliases,
		client:  p.Client,
		log:     p.Log.Named("sheets.service"),
	}
}

func (s *service) Sources() []domain.Source {
	var sources []domain.Source
	if sheet := strings.TrimSpace(s.cfg.Sheets.ReadingsSheet); sheet != "" {
		sources = append(sources, domain.Source{Sheet: sheet, Tag: readingdomain.SourceSheetReadings})
	}
	if sheet := strings.TrimSpace(s.cfg.Sheets.FuelLogSheet); sheet != "" {
		sources = append(sources, domain.Source{Sheet: sheet, Tag: readingdomain.SourceSheetFuelLog})
	}
	return sources
}

func (s *service) ReadingsByCode(ctx context.Context, source domain.Source, code string) ([]domain.RowReading, error) {
	normalized := normalize.EquipmentCode(code)
	if normalized == "" {
		return nil, nil
	}

	data, err := s.client.GetRows(ctx, source.Sheet)
	if err != nil {
		return nil, err
	}

	table := s.aliases.Table()
	var out []domain.RowReading
	for _, row := range data.Rows {
		rawCode, ok := table.Value(row, normalize.FieldEquipmentCode)
		if !ok {
			continue
		}
		rowCode := stringValue(rawCode)
		if normalize.EquipmentCode(rowCode) != normalized {
			continue
		}

		reading := domain.RowReading{
			Code:   rowCode,
			Source: source.Tag,
		}
		if raw, ok := table.Value(row, normalize.FieldHourMeter); ok {
			if f, positive := normalize.PositiveNumber(raw); positive {
				reading.HourMeter = &f
			}
		}
		if raw, ok := table.Value(row, normalize.FieldOdometer); ok {
			if f, positive := normalize.PositiveNumber(raw); positive {
				reading.Odometer = &f
			}
		}
		if raw, ok := table.Value(row, normalize.FieldLiters); ok {
			if f, positive := normalize.PositiveNumber(raw); positive {
				reading.Liters = &f
			}
		}
		// Rows with no usable measurement are noise, usually headers typed
		// again mid-sheet or rows where only the code was filled in.
		if reading.HourMeter == nil && reading.Odometer == nil && reading.Liters == nil {
			continue
		}

		if raw, ok := table.Value(row, normalize.FieldDate); ok {
			if d := normalize.ParseDate(raw); d != nil {
				if rawTime, hasTime := table.Value(row, normalize.FieldTime); hasTime {
					combined := normalize.CombineDateTime(*d, rawTime)
					d = &combined
				}
				reading.Date = d
			}
		}
		if raw, ok := table.Value(row, normalize.FieldOperator); ok {
			reading.Operator = stringValue(raw)
		}

		out = append(out, reading)
	}
	return out, nil
}

func (s *service) Coverage(ctx context.Context, source domain.Source, from, to time.Time) ([]domain.CodeDate, error) {
	data, err := s.client.GetRows(ctx, source.Sheet)
	if err != nil {
		return nil, err
	}

	from = dateOnly(from)
	to = dateOnly(to)

	table := s.aliases.Table()
	var out []domain.CodeDate
	for _, row := range data.Rows {
		rawCode, ok := table.Value(row, normalize.FieldEquipmentCode)
		if !ok {
			continue
		}
		code := normalize.EquipmentCode(stringValue(rawCode))
		if code == "" {
			continue
		}
		rawDate, ok := table.Value(row, normalize.FieldDate)
		if !ok {
			continue
		}
		parsed := normalize.ParseDate(rawDate)
		if parsed == nil {
			continue
		}
		if !rowHasMeasurement(table, row) {
			continue
		}
		day := dateOnly(*parsed)
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, domain.CodeDate{Code: code, Date: day})
	}
	return out, nil
}

func (s *service) MirrorReading(ctx context.Context, row domain.MirrorReading) error {
	sheet := strings.TrimSpace(s.cfg.Sheets.ReadingsSheet)
	if sheet == "" {
		s.log.Debug("reading mirror skipped, no readings sheet configured")
		return nil
	}

	table := s.aliases.Table()
	values := map[string]any{
		headerFor(table, normalize.FieldEquipmentCode): row.Code,
		headerFor(table, normalize.FieldDate):          normalize.FormatDate(row.Date),
	}
	if row.HourMeter != nil {
		values[headerFor(table, normalize.FieldHourMeter)] = *row.HourMeter
	}
	if row.Odometer != nil {
		values[headerFor(table, normalize.FieldOdometer)] = *row.Odometer
	}
	if row.Operator != "" {
		values[headerFor(table, normalize.FieldOperator)] = row.Operator
	}
	if row.Observation != "" {
		values[headerFor(table, normalize.FieldObservation)] = row.Observation
	}

	return s.client.AppendOrUpsertRow(ctx, sheet, values)
}

func rowHasMeasurement(table normalize.AliasTable, row map[string]any) bool {
	for _, field := range []normalize.Field{normalize.FieldHourMeter, normalize.FieldOdometer, normalize.FieldLiters} {
		raw, ok := table.Value(row, field)
		if !ok {
			continue
		}
		if _, positive := normalize.PositiveNumber(raw); positive {
			return true
		}
	}
	return false
}

// headerFor picks the outbound header for a canonical field. The first alias
// is the preferred spelling; the sync service matches headers on its side the
// same way inbound lookups do.
func headerFor(table normalize.AliasTable, field normalize.Field) string {
	if aliases := table[field]; len(aliases) > 0 {
		return aliases[0]
	}
	return string(field)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
