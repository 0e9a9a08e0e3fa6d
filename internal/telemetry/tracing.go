// Package telemetry wires tracing and metrics for the server.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// TracingOptions controls trace export.
type TracingOptions struct {
	// Endpoint is the OTLP/HTTP collector URL. Empty disables export.
	Endpoint string
	Enabled  bool
}

// SetupTracing initialises OpenTelemetry tracing for serviceName.
//
// When tracing is disabled or no endpoint is set, the global no-op provider is
// left in place and the returned shutdown does nothing. The shutdown function
// flushes pending spans and should be deferred by the caller.
func SetupTracing(ctx context.Context, serviceName string, opts TracingOptions) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if !opts.Enabled || opts.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(opts.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
