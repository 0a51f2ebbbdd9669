package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	readingsIngested       metric.Int64Counter
	candidateSources       metric.Int64Counter
	resolveResults         metric.Int64Counter
	backfillFixes          metric.Int64Counter
	sheetMirror            metric.Int64Counter
	monotonicityAdvisories metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fleetmeter"
	}
	meter := provider.Meter(name)

	readingsIngested, err := meter.Int64Counter("fleetmeter_readings_ingested_total")
	if err != nil {
		return nil, err
	}
	candidateSources, err := meter.Int64Counter("fleetmeter_candidate_sources_total")
	if err != nil {
		return nil, err
	}
	resolveResults, err := meter.Int64Counter("fleetmeter_resolve_results_total")
	if err != nil {
		return nil, err
	}
	backfillFixes, err := meter.Int64Counter("fleetmeter_backfill_fixes_total")
	if err != nil {
		return nil, err
	}
	sheetMirror, err := meter.Int64Counter("fleetmeter_sheet_mirror_total")
	if err != nil {
		return nil, err
	}
	monotonicityAdvisories, err := meter.Int64Counter("fleetmeter_monotonicity_advisories_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		readingsIngested:       readingsIngested,
		candidateSources:       candidateSources,
		resolveResults:         resolveResults,
		backfillFixes:          backfillFixes,
		sheetMirror:            sheetMirror,
		monotonicityAdvisories: monotonicityAdvisories,
	}, nil
}

// RecordReadingIngested increments reading ingest counts.
func (m *Metrics) RecordReadingIngested(ctx context.Context, source string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.readingsIngested.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCandidateSource increments per-source candidate collection counts.
func (m *Metrics) RecordCandidateSource(ctx context.Context, source, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("source", strings.TrimSpace(source)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.candidateSources.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordResolveResult increments resolution outcome counts.
func (m *Metrics) RecordResolveResult(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.resolveResults.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBackfillFix increments corrected column counts.
func (m *Metrics) RecordBackfillFix(ctx context.Context, column string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("column", strings.TrimSpace(column)))
	m.backfillFixes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSheetMirror increments sheet mirror attempt counts.
func (m *Metrics) RecordSheetMirror(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.sheetMirror.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMonotonicityAdvisory counts submissions whose counter moved backwards
// against the latest stored reading.
func (m *Metrics) RecordMonotonicityAdvisory(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.monotonicityAdvisories.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"source":      {},
	"outcome":     {},
	"column":      {},
	"kind":        {},
	"endpoint":    {},
	"status_code": {},
	"reason":      {},
	"job":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
