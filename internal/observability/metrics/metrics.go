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
	commissionSnapshots metric.Int64Counter
	commissionCents     metric.Int64Counter
	incentivesFired     metric.Int64Counter
	incentiveCents      metric.Int64Counter
	referralDeltas      metric.Int64Counter
	importRows          metric.Int64Counter
	stageTransitions    metric.Int64Counter
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
		name = "salesdesk"
	}
	meter := provider.Meter(name)

	commissionSnapshots, err := meter.Int64Counter("salesdesk_commission_snapshots_total")
	if err != nil {
		return nil, err
	}
	commissionCents, err := meter.Int64Counter("salesdesk_commission_cents_total", metric.WithUnit("{cent}"))
	if err != nil {
		return nil, err
	}
	incentivesFired, err := meter.Int64Counter("salesdesk_incentives_total")
	if err != nil {
		return nil, err
	}
	incentiveCents, err := meter.Int64Counter("salesdesk_incentive_cents_total", metric.WithUnit("{cent}"))
	if err != nil {
		return nil, err
	}
	referralDeltas, err := meter.Int64Counter("salesdesk_referral_deltas_total")
	if err != nil {
		return nil, err
	}
	importRows, err := meter.Int64Counter("salesdesk_referral_import_rows_total")
	if err != nil {
		return nil, err
	}
	stageTransitions, err := meter.Int64Counter("salesdesk_stage_transitions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		commissionSnapshots: commissionSnapshots,
		commissionCents:     commissionCents,
		incentivesFired:     incentivesFired,
		incentiveCents:      incentiveCents,
		referralDeltas:      referralDeltas,
		importRows:          importRows,
		stageTransitions:    stageTransitions,
	}, nil
}

// NewNoop returns instruments backed by a no-op provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordCommissionSnapshot counts one onboarding and the amount it snapshotted.
func (m *Metrics) RecordCommissionSnapshot(ctx context.Context, closeType string, cents int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("close_type", strings.TrimSpace(closeType)))
	m.commissionSnapshots.Add(ctx, 1, metric.WithAttributes(attrs...))
	if cents > 0 {
		m.commissionCents.Add(ctx, cents, metric.WithAttributes(attrs...))
	}
}

// RecordIncentive counts an incentive by source: rule, referral or grant.
func (m *Metrics) RecordIncentive(ctx context.Context, source string, cents int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("source", strings.TrimSpace(source)))
	m.incentivesFired.Add(ctx, 1, metric.WithAttributes(attrs...))
	if cents > 0 {
		m.incentiveCents.Add(ctx, cents, metric.WithAttributes(attrs...))
	}
}

// RecordReferralDelta counts referral count changes by direction.
func (m *Metrics) RecordReferralDelta(ctx context.Context, direction string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("direction", strings.TrimSpace(direction)))
	m.referralDeltas.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordImportRows counts report rows by outcome.
func (m *Metrics) RecordImportRows(ctx context.Context, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.importRows.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordStageTransition counts a pipeline move.
func (m *Metrics) RecordStageTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from_stage", strings.TrimSpace(from)),
		attribute.String("to_stage", strings.TrimSpace(to)),
	)
	m.stageTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"close_type":  {},
	"source":      {},
	"direction":   {},
	"outcome":     {},
	"from_stage":  {},
	"to_stage":    {},
	"route":       {},
	"status_code": {},
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
