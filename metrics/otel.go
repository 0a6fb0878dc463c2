package metrics

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTELProtocol selects the OTLP transport.
type OTELProtocol string

const (
	OTELProtocolGRPC OTELProtocol = "grpc"
	OTELProtocolHTTP OTELProtocol = "http"
)

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint     string
	Protocol     OTELProtocol
	PushInterval time.Duration
	Insecure     bool
}

// OTELExporter pushes ledger metrics to an OpenTelemetry collector.
type OTELExporter struct {
	collector     *Collector
	config        OTELConfig
	meterProvider *sdkmetric.MeterProvider

	deploymentGauge metric.Int64Gauge
	containersGauge metric.Int64Gauge
	ingestedGauge   metric.Int64Gauge
	droppedGauge    metric.Int64Gauge

	ctx    context.Context
	cancel context.CancelFunc
}

// NewOTELExporter creates a new OTLP metrics exporter.
func NewOTELExporter(ctx context.Context, collector *Collector, config OTELConfig) (*OTELExporter, error) {
	exporter, err := newOTLPExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("deploytrace"),
			semconv.ServiceVersionKey.String(collector.infoProvider.GetVersion()),
			attribute.String("deployment.type", collector.infoProvider.GetDeploymentType()),
			attribute.String("deployment.name", collector.infoProvider.GetDeploymentName()),
			attribute.String("deployment.uuid", collector.deploymentUUID),
		),
	)
	if err != nil {
		return nil, err
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(config.PushInterval))),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter("deploytrace")

	deploymentGauge, err := meter.Int64Gauge("deploytrace_deployment",
		metric.WithDescription("Deploytrace deployment information"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	containersGauge, err := meter.Int64Gauge("deploytrace_registered_containers",
		metric.WithDescription("Number of containers in the registry"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	ingestedGauge, err := meter.Int64Gauge("deploytrace_reports_ingested_total",
		metric.WithDescription("Reports ingested since process start"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}
	droppedGauge, err := meter.Int64Gauge("deploytrace_reports_dropped_total",
		metric.WithDescription("Reports dropped since process start"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	exporterCtx, cancel := context.WithCancel(ctx)

	return &OTELExporter{
		collector:       collector,
		config:          config,
		meterProvider:   meterProvider,
		deploymentGauge: deploymentGauge,
		containersGauge: containersGauge,
		ingestedGauge:   ingestedGauge,
		droppedGauge:    droppedGauge,
		ctx:             exporterCtx,
		cancel:          cancel,
	}, nil
}

// newOTLPExporter creates the configured OTLP transport.
func newOTLPExporter(ctx context.Context, config OTELConfig) (sdkmetric.Exporter, error) {
	switch config.Protocol {
	case OTELProtocolHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case OTELProtocolGRPC, "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(config.Endpoint)}
		if config.Insecure {
			opts = append(opts, otlpmetricgrpc.WithTLSCredentials(insecure.NewCredentials()))
			opts = append(opts, otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
	return nil, fmt.Errorf("unknown OTLP protocol %q", config.Protocol)
}

// Start begins pushing metrics to the OTEL collector.
func (e *OTELExporter) Start() {
	go e.pushMetrics()
}

// pushMetrics periodically records the current ledger metrics.
func (e *OTELExporter) pushMetrics() {
	e.recordMetrics()

	ticker := time.NewTicker(e.config.PushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.recordMetrics()
		case <-e.ctx.Done():
			return
		}
	}
}

// recordMetrics records the current gauge values.
func (e *OTELExporter) recordMetrics() {
	c := e.collector
	uuidAttr := metric.WithAttributes(attribute.String("deployment_uuid", c.deploymentUUID))

	e.deploymentGauge.Record(e.ctx, 1,
		metric.WithAttributes(
			attribute.String("deployment_uuid", c.deploymentUUID),
			attribute.String("deployment_name", c.infoProvider.GetDeploymentName()),
			attribute.String("deployment_type", c.infoProvider.GetDeploymentType()),
			attribute.String("deploytrace_version", c.infoProvider.GetVersion()),
		),
	)

	if c.stats != nil {
		if count, err := c.stats.RegisteredContainerCount(); err == nil {
			e.containersGauge.Record(e.ctx, int64(count), uuidAttr)
		} else {
			log.Printf("OTEL: failed to count registered containers: %v", err)
		}
	}
	if c.counters != nil {
		e.ingestedGauge.Record(e.ctx, c.counters.ReportsIngested(), uuidAttr)
		e.droppedGauge.Record(e.ctx, c.counters.ReportsDropped(), uuidAttr)
	}
}

// Shutdown gracefully shuts down the OTEL exporter.
func (e *OTELExporter) Shutdown() error {
	e.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.meterProvider.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down OTEL meter provider: %v", err)
		return err
	}
	return nil
}
