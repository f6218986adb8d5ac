// Package telemetry provides OpenTelemetry metrics for a cancellation pass.
//
// Telemetry is disabled by default and installs a no-op meter provider.
// When enabled, metrics go to stdout, to an OTLP/HTTP endpoint, or both, and
// are flushed by the shutdown function returned from Init.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const instrumentationScope = "github.com/hugo-lorenzo-mato/supersede"

// Config selects the exporters.
type Config struct {
	Enabled  bool
	Stdout   bool
	Endpoint string    // OTLP/HTTP endpoint URL, empty to skip
	Output   io.Writer // stdout exporter destination, defaults to os.Stderr
}

// ShutdownFunc flushes and stops the installed provider.
type ShutdownFunc func(context.Context) error

// Init installs the global meter provider.
func Init(ctx context.Context, cfg Config, serviceName, version string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Stdout || cfg.Endpoint == "" {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	if cfg.Endpoint != "" {
		exp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpointURL(cfg.Endpoint))
		if err != nil {
			return nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// Meter returns a meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationScope)
}

// Metrics holds the instruments recorded during a pass.
type Metrics struct {
	APICalls       metric.Int64Counter
	RunsCancelled  metric.Int64Counter
	CancelFailures metric.Int64Counter
	PipelineErrors metric.Int64Counter
	GateWait       metric.Float64Histogram
}

// NewMetrics creates the instruments on the given meter. Instrument creation
// errors fall back to no-op instruments.
func NewMetrics(m metric.Meter) *Metrics {
	noop := metricnoop.NewMeterProvider().Meter(instrumentationScope)

	apiCalls, err := m.Int64Counter("supersede.api.calls",
		metric.WithDescription("CI API requests issued, by operation"))
	if err != nil {
		apiCalls, _ = noop.Int64Counter("supersede.api.calls")
	}
	cancelled, err := m.Int64Counter("supersede.runs.cancelled",
		metric.WithDescription("Runs for which cancellation was accepted"))
	if err != nil {
		cancelled, _ = noop.Int64Counter("supersede.runs.cancelled")
	}
	failures, err := m.Int64Counter("supersede.runs.cancel_failures",
		metric.WithDescription("Cancellation requests that failed"))
	if err != nil {
		failures, _ = noop.Int64Counter("supersede.runs.cancel_failures")
	}
	pipelineErrs, err := m.Int64Counter("supersede.pipelines.errors",
		metric.WithDescription("Target workflow pipelines aborted by an error"))
	if err != nil {
		pipelineErrs, _ = noop.Int64Counter("supersede.pipelines.errors")
	}
	gateWait, err := m.Float64Histogram("supersede.gate.wait",
		metric.WithDescription("Time spent waiting for the gate job"),
		metric.WithUnit("s"))
	if err != nil {
		gateWait, _ = noop.Float64Histogram("supersede.gate.wait")
	}

	return &Metrics{
		APICalls:       apiCalls,
		RunsCancelled:  cancelled,
		CancelFailures: failures,
		PipelineErrors: pipelineErrs,
		GateWait:       gateWait,
	}
}

// NopMetrics returns instruments that record nothing.
func NopMetrics() *Metrics {
	return NewMetrics(metricnoop.NewMeterProvider().Meter(instrumentationScope))
}
