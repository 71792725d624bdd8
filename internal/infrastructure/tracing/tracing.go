package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	stdout "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	Enabled     bool
	ServiceName string
	PrettyPrint bool
	Writer      io.Writer
}

// Setup installs the global tracer provider and propagator. With tracing disabled the
// global no-op provider stays in place and the returned shutdown does nothing.
func Setup(config Config) (func(context.Context) error, error) {
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	options := []stdout.Option{}
	if config.Writer != nil {
		options = append(options, stdout.WithWriter(config.Writer))
	}
	if config.PrettyPrint {
		options = append(options, stdout.WithPrettyPrint())
	}

	exporter, err := stdout.New(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", config.ServiceName))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
