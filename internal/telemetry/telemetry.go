package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Tracer and Logger are usable before InitTelemetry runs; they start as
	// no-op implementations.
	Tracer      trace.Tracer = otel.Tracer("connector-switch")
	Logger      *zap.Logger  = zap.NewNop()
	ServiceName string
)

// Version is stamped into the trace resource; set with -ldflags at build time.
var Version = "dev"

// InitTelemetry builds the production logger and the OTLP trace pipeline.
// An empty otlpEndpoint falls back to the local collector.
func InitTelemetry(serviceName, otlpEndpoint string) error {
	ServiceName = serviceName

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	Logger = logger.With(zap.String("service", serviceName))

	tp, err := newTracerProvider(context.Background(), serviceName, otlpEndpoint)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(serviceName)

	Logger.Info("Telemetry initialized", zap.String("otlp_endpoint", otlpEndpoint))
	return nil
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func newTracerProvider(ctx context.Context, serviceName, endpoint string) (*sdktrace.TracerProvider, error) {
	if endpoint == "" {
		endpoint = "jaeger:4318"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	), nil
}

// Shutdown gracefully shuts down telemetry
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			return err
		}
	}
	return Logger.Sync()
}

// FromContext returns the global logger annotated with the active span's ids.
func FromContext(ctx context.Context) *zap.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return Logger
	}
	return Logger.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}

// StartConnectorSpan opens the span wrapping one connector flow invocation.
func StartConnectorSpan(ctx context.Context, connector, flow string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "connector."+flow,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("connector.name", connector),
			attribute.String("connector.flow", flow),
		),
	)
}

// StartWebhookSpan opens the span wrapping one webhook pipeline run.
func StartWebhookSpan(ctx context.Context, connector, merchantID string) (context.Context, trace.Span) {
	return Tracer.Start(ctx, "webhook."+connector,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("connector.name", connector),
			attribute.String("merchant.id", merchantID),
		),
	)
}
