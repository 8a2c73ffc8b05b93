package telemetry

import (
	"context"
	"fmt"

	"github.com/tallyhq/tally/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "tally"
	serviceVersion = "1.0.0"
)

// Exporter records time tracking metrics and pushes them to an OTLP collector.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	timersStarted metric.Int64Counter
	entriesTotal  metric.Int64Counter
	hoursTotal    metric.Float64Counter
	entryHours    metric.Float64Histogram
	entriesGone   metric.Int64Counter
}

// NewExporter creates an exporter sending to cfg.Endpoint over gRPC.
func NewExporter(ctx context.Context, cfg config.Telemetry) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)
	return newExporter(provider)
}

func newExporter(provider *sdkmetric.MeterProvider) (*Exporter, error) {
	meter := provider.Meter(serviceName)

	timersStarted, err := meter.Int64Counter(
		"tally_timers_started_total",
		metric.WithDescription("Timers started"),
		metric.WithUnit("{timer}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timers counter: %w", err)
	}

	entriesTotal, err := meter.Int64Counter(
		"tally_entries_completed_total",
		metric.WithDescription("Completed time entries by source"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating entries counter: %w", err)
	}

	hoursTotal, err := meter.Float64Counter(
		"tally_tracked_hours_total",
		metric.WithDescription("Hours tracked in completed entries"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating hours counter: %w", err)
	}

	entryHours, err := meter.Float64Histogram(
		"tally_entry_duration_hours",
		metric.WithDescription("Length of completed time entries"),
		metric.WithUnit("h"),
		metric.WithExplicitBucketBoundaries(0.25, 0.5, 1, 2, 4, 8, 12),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	entriesGone, err := meter.Int64Counter(
		"tally_entries_deleted_total",
		metric.WithDescription("Deleted time entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deleted counter: %w", err)
	}

	return &Exporter{
		provider:      provider,
		timersStarted: timersStarted,
		entriesTotal:  entriesTotal,
		hoursTotal:    hoursTotal,
		entryHours:    entryHours,
		entriesGone:   entriesGone,
	}, nil
}

func (e *Exporter) TimerStarted(ctx context.Context) {
	e.timersStarted.Add(ctx, 1)
}

func (e *Exporter) EntryCompleted(ctx context.Context, source string, hours float64, billable bool) {
	opt := metric.WithAttributes(
		attribute.String("source", source),
		attribute.Bool("billable", billable),
	)
	e.entriesTotal.Add(ctx, 1, opt)
	e.hoursTotal.Add(ctx, hours, opt)
	e.entryHours.Record(ctx, hours, opt)
}

func (e *Exporter) EntryDeleted(ctx context.Context, running bool) {
	e.entriesGone.Add(ctx, 1, metric.WithAttributes(attribute.Bool("running", running)))
}

// Close shuts down the exporter and flushes any pending metrics.
func (e *Exporter) Close(ctx context.Context) error {
	return e.provider.Shutdown(ctx)
}
