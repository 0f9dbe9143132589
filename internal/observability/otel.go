package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/andywolf/prompttoproduct/internal/logging"
)

const instrumentationScope = "github.com/andywolf/prompttoproduct"

// Config controls tracing.
type Config struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Stdout  bool `mapstructure:"stdout" yaml:"stdout"`
}

// OTelTracer records runs and stage attempts as OpenTelemetry spans.
type OTelTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New returns a NoOpTracer unless cfg enables tracing. With Stdout set,
// spans are pretty-printed to w.
func New(ctx context.Context, cfg Config, serviceVersion string, w io.Writer) (Tracer, error) {
	if !cfg.Enabled {
		return &NoOpTracer{}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("p2p"),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return NewOTelTracer(sdktrace.NewTracerProvider(opts...)), nil
}

// NewOTelTracer wraps an existing provider.
func NewOTelTracer(tp *sdktrace.TracerProvider) *OTelTracer {
	return &OTelTracer{
		provider: tp,
		tracer:   tp.Tracer(instrumentationScope),
	}
}

func (o *OTelTracer) StartTrace(ctx context.Context, runID string, opts TraceOptions) (context.Context, TraceContext) {
	ctx, span := o.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("request.prompt", logging.Redact(opts.Prompt)),
			attribute.String("signal.intent", opts.Intent),
			attribute.Float64("signal.confidence", opts.Confidence),
			attribute.StringSlice("signal.domains", opts.Domains),
		),
	)
	return ctx, TraceContext{
		TraceID: span.SpanContext().TraceID().String(),
		RunID:   runID,
		span:    span,
	}
}

func (o *OTelTracer) StartStage(ctx context.Context, tc TraceContext, stage string, opts SpanOptions) (context.Context, SpanContext) {
	ctx, span := o.tracer.Start(ctx, "stage."+stage,
		trace.WithAttributes(
			attribute.String("run.id", tc.RunID),
			attribute.String("stage.name", stage),
			attribute.Int("stage.attempt", opts.Attempt),
			attribute.Int("run.error_count", opts.ErrorCount),
		),
	)
	return ctx, SpanContext{
		SpanID:    span.SpanContext().SpanID().String(),
		StageName: stage,
		TraceID:   tc.TraceID,
		span:      span,
	}
}

func (o *OTelTracer) EndStage(sc SpanContext, opts EndOptions) {
	if sc.span == nil {
		return
	}
	sc.span.SetAttributes(
		attribute.String("stage.status", opts.Status),
		attribute.Int64("stage.duration_ms", opts.DurationMs),
	)
	if opts.Status == "failed" {
		sc.span.SetStatus(codes.Error, logging.Redact(opts.Reason))
	} else {
		sc.span.SetStatus(codes.Ok, "")
	}
	sc.span.End()
}

func (o *OTelTracer) CompleteTrace(tc TraceContext, opts CompleteOptions) {
	if tc.span == nil {
		return
	}
	tc.span.SetAttributes(
		attribute.String("run.status", opts.Status),
		attribute.Int("run.error_count", opts.ErrorCount),
	)
	if opts.Status == "failed" {
		tc.span.SetStatus(codes.Error, logging.Redact(opts.LastError))
	} else {
		tc.span.SetStatus(codes.Ok, "")
	}
	tc.span.End()
}

func (o *OTelTracer) Flush(ctx context.Context) error {
	return o.provider.ForceFlush(ctx)
}

func (o *OTelTracer) Stop(ctx context.Context) error {
	return o.provider.Shutdown(ctx)
}

var (
	_ Tracer = (*OTelTracer)(nil)
	_ Tracer = (*NoOpTracer)(nil)
)
