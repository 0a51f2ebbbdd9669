package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/obralog/fleetmeter/internal/backfill/domain"
	"github.com/obralog/fleetmeter/internal/clock"
	equipmentdomain "github.com/obralog/fleetmeter/internal/equipment/domain"
	obsmetrics "github.com/obralog/fleetmeter/internal/observability/metrics"
	readingdomain "github.com/obralog/fleetmeter/internal/reading/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Equipment equipmentdomain.Service
	Readings  readingdomain.Service
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	log       *zap.Logger
	clock     clock.Clock
	equipment equipmentdomain.Service
	readings  readingdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("backfill.service"),
		clock:     p.Clock,
		equipment: p.Equipment,
		readings:  p.Readings,
		metrics:   p.Metrics,
	}
}

// column is one tracked counter cell. Current and previous of a kind are
// interchangeable donors; the legacy generic value maps to whichever kind
// the equipment's category mandates.
type column struct {
	name string
	kind func(equipmentdomain.Equipment) equipmentdomain.Kind
	get  func(*readingdomain.Reading) *float64
	set  func(*readingdomain.Patch, float64)
}

func fixedKind(k equipmentdomain.Kind) func(equipmentdomain.Equipment) equipmentdomain.Kind {
	return func(equipmentdomain.Equipment) equipmentdomain.Kind { return k }
}

var trackedColumns = []column{
	{
		name: "hour_meter",
		kind: fixedKind(equipmentdomain.KindHourMeter),
		get:  func(r *readingdomain.Reading) *float64 { return r.HourMeter },
		set:  func(p *readingdomain.Patch, v float64) { p.HourMeter = &v },
	},
	{
		name: "prev_hour_meter",
		kind: fixedKind(equipmentdomain.KindHourMeter),
		get:  func(r *readingdomain.Reading) *float64 { return r.PrevHourMeter },
		set:  func(p *readingdomain.Patch, v float64) { p.PrevHourMeter = &v },
	},
	{
		name: "odometer",
		kind: fixedKind(equipmentdomain.KindOdometer),
		get:  func(r *readingdomain.Reading) *float64 { return r.Odometer },
		set:  func(p *readingdomain.Patch, v float64) { p.Odometer = &v },
	},
	{
		name: "prev_odometer",
		kind: fixedKind(equipmentdomain.KindOdometer),
		get:  func(r *readingdomain.Reading) *float64 { return r.PrevOdometer },
		set:  func(p *readingdomain.Patch, v float64) { p.PrevOdometer = &v },
	},
	{
		name: "value",
		kind: func(e equipmentdomain.Equipment) equipmentdomain.Kind { return e.MandatoryKind() },
		get:  func(r *readingdomain.Reading) *float64 { return r.Value },
		set:  func(p *readingdomain.Patch, v float64) { p.Value = &v },
	},
}

func (s *service) Run(ctx context.Context) (*domain.Report, error) {
	readings, err := s.readings.All(ctx)
	if err != nil {
		return nil, err
	}
	return s.RunReadings(ctx, readings)
}

func (s *service) RunReadings(ctx context.Context, readings []readingdomain.Reading) (*domain.Report, error) {
	runID := ulid.Make().String()
	log := s.log.With(zap.String("run_id", runID))
	log.Info("backfill run starting", zap.Int("readings", len(readings)))

	catalog, err := s.equipment.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]equipmentdomain.Equipment, len(catalog))
	for _, e := range catalog {
		byID[e.ID] = e
	}

	report := &domain.Report{RunID: runID}
	affected := make(map[string]struct{})

	for i := range readings {
		r := &readings[i]
		equip, ok := byID[r.EquipmentID]
		if !ok {
			report.SkippedNoColumns++
			continue
		}

		zeros, allAbsent := zeroColumns(r)
		if allAbsent {
			report.SkippedNoColumns++
			continue
		}
		if len(zeros) == 0 {
			continue
		}

		var patch readingdomain.Patch
		for _, col := range zeros {
			donor := s.findDonor(readings, i, col.kind(equip), equip)
			if donor == nil {
				continue
			}
			col.set(&patch, *donor)
			if s.metrics != nil {
				s.metrics.RecordBackfillFix(ctx, col.name)
			}
		}

		if patch.Empty() {
			report.SkippedNoHistory++
			continue
		}

		obs := annotate(r.Observation, s.clock.Now())
		patch.Observation = &obs

		if err := s.readings.ApplyPatch(ctx, r.ID, patch); err != nil {
			log.Warn("backfill write failed",
				zap.String("reading_id", r.ID.String()),
				zap.String("equipment_code", equip.Code),
				zap.Error(err),
			)
			report.Errors++
			continue
		}

		applyPatch(r, patch)
		report.Fixed++
		affected[equip.Code] = struct{}{}
	}

	report.EquipmentAffected = sortedKeys(affected)
	log.Info("backfill run finished",
		zap.Int("fixed", report.Fixed),
		zap.Int("skipped_no_history", report.SkippedNoHistory),
		zap.Int("skipped_no_columns", report.SkippedNoColumns),
		zap.Int("errors", report.Errors),
	)
	return report, nil
}

// zeroColumns returns the tracked columns holding an exact zero. Nil means
// "not measured on this form" and never qualifies. allAbsent reports a
// record carrying no tracked column at all.
func zeroColumns(r *readingdomain.Reading) (zeros []column, allAbsent bool) {
	allAbsent = true
	for _, col := range trackedColumns {
		v := col.get(r)
		if v == nil {
			continue
		}
		allAbsent = false
		if *v == 0 {
			zeros = append(zeros, col)
		}
	}
	return zeros, allAbsent
}

// findDonor locates the most recent positive value of the wanted kind on a
// sibling record of the same equipment. When the record's own date is
// known the search only looks at records dated on or before it; a record
// without a usable date falls back to insertion-order recency.
func (s *service) findDonor(readings []readingdomain.Reading, idx int, kind equipmentdomain.Kind, equip equipmentdomain.Equipment) *float64 {
	target := &readings[idx]
	dated := !target.ReadingDate.IsZero()

	siblings := make([]int, 0)
	for j := range readings {
		if j == idx || readings[j].EquipmentID != target.EquipmentID {
			continue
		}
		if dated {
			d := readings[j].ReadingDate
			if d.IsZero() || d.After(target.ReadingDate) {
				continue
			}
		} else if j > idx {
			continue
		}
		siblings = append(siblings, j)
	}

	if dated {
		sort.SliceStable(siblings, func(a, b int) bool {
			da, db := readings[siblings[a]].ReadingDate, readings[siblings[b]].ReadingDate
			if !da.Equal(db) {
				return da.After(db)
			}
			return readings[siblings[a]].CreatedAt.After(readings[siblings[b]].CreatedAt)
		})
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(siblings)))
	}

	for _, j := range siblings {
		if v := kindValue(&readings[j], kind, equip); v != nil {
			return v
		}
	}
	return nil
}

// kindValue picks the donor cell: current first, then the previous
// snapshot, then the legacy generic value when it maps to this kind.
func kindValue(r *readingdomain.Reading, kind equipmentdomain.Kind, equip equipmentdomain.Equipment) *float64 {
	var cells []*float64
	switch kind {
	case equipmentdomain.KindHourMeter:
		cells = []*float64{r.HourMeter, r.PrevHourMeter}
	default:
		cells = []*float64{r.Odometer, r.PrevOdometer}
	}
	if equip.MandatoryKind() == kind {
		cells = append(cells, r.Value)
	}
	for _, v := range cells {
		if v != nil && *v > 0 {
			return v
		}
	}
	return nil
}

// annotate appends the auto-corrected marker, keeping whatever the
// operator wrote.
func annotate(observation string, now time.Time) string {
	marker := fmt.Sprintf("[auto-corrected %s]", now.Format("02/01/2006 15:04"))
	if observation == "" {
		return marker
	}
	return observation + " " + marker
}

// applyPatch mirrors the persisted correction onto the in-memory batch so
// later records can carry the repaired value forward.
func applyPatch(r *readingdomain.Reading, patch readingdomain.Patch) {
	if patch.HourMeter != nil {
		r.HourMeter = patch.HourMeter
	}
	if patch.Odometer != nil {
		r.Odometer = patch.Odometer
	}
	if patch.PrevHourMeter != nil {
		r.PrevHourMeter = patch.PrevHourMeter
	}
	if patch.PrevOdometer != nil {
		r.PrevOdometer = patch.PrevOdometer
	}
	if patch.Value != nil {
		r.Value = patch.Value
	}
	if patch.Observation != nil {
		r.Observation = *patch.Observation
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
