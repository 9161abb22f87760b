// Package trace wires OpenTelemetry tracing for the generation chain.
package trace

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/your-org/fluxpost/internal/version"
)

// Options selects the exporter. With no Endpoint spans are printed to
// Writer, which defaults to stderr so CLI output on stdout stays clean.
type Options struct {
	Enabled  bool
	Endpoint string
	// Insecure dials the OTLP collector without TLS.
	Insecure bool
	Writer   io.Writer
}

// OTelRuntime is the tracer handed to the chain plus the provider's shutdown.
type OTelRuntime struct {
	Tracer   oteltrace.Tracer
	Shutdown func(context.Context) error
}

// Setup installs a tracer provider for serviceName. Disabled tracing returns
// the global tracer, which is a no-op until something installs a provider.
func Setup(serviceName string, opts Options) (OTelRuntime, error) {
	if !opts.Enabled {
		return OTelRuntime{
			Tracer:   otel.Tracer(serviceName),
			Shutdown: func(context.Context) error { return nil },
		}, nil
	}

	ctx := context.Background()
	exp, err := newExporter(ctx, opts)
	if err != nil {
		return OTelRuntime{}, err
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version.Version),
	))
	if err != nil {
		_ = exp.Shutdown(ctx)
		return OTelRuntime{}, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)
	return OTelRuntime{Tracer: tp.Tracer(serviceName), Shutdown: tp.Shutdown}, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	if opts.Endpoint == "" {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("otel stdout exporter: %w", err)
		}
		return exp, nil
	}

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel otlp exporter %s: %w", opts.Endpoint, err)
	}
	return exp, nil
}

// EndSpan marks span failed when err is set, ok otherwise, and ends it.
func EndSpan(span oteltrace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		span.End()
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
