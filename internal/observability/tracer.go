package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// Tracer defines the interface for observability tracing.
// Implementations track a workflow run through its stages.
//
// Trace hierarchy:
//
//	Run (Trace, carries the classification)
//	  ├── GENERATE (Span, one per attempt)
//	  ├── VALIDATE (Span)
//	  └── FINALIZE (Span)
type Tracer interface {
	StartTrace(ctx context.Context, runID string, opts TraceOptions) (context.Context, TraceContext)
	StartStage(ctx context.Context, trace TraceContext, stage string, opts SpanOptions) (context.Context, SpanContext)
	EndStage(span SpanContext, opts EndOptions)
	CompleteTrace(trace TraceContext, opts CompleteOptions)
	Flush(ctx context.Context) error
	Stop(ctx context.Context) error
}

// TraceContext holds the context for an active trace (run level).
type TraceContext struct {
	TraceID string
	RunID   string
	span    trace.Span
}

// SpanContext holds the context for an active span (stage level).
type SpanContext struct {
	SpanID    string
	StageName string
	TraceID   string
	span      trace.Span
}

// TraceOptions configures a new trace.
type TraceOptions struct {
	Prompt     string // recorded after credential redaction
	Intent     string
	Confidence float64
	Domains    []string
}

// SpanOptions configures a new span.
type SpanOptions struct {
	Attempt    int
	ErrorCount int
}

// EndOptions describes how a stage attempt ended.
type EndOptions struct {
	Status     string // "ok" or "failed"
	Reason     string
	DurationMs int64
}

// CompleteOptions configures trace completion.
type CompleteOptions struct {
	Status     string // "completed" or "failed"
	ErrorCount int
	LastError  string
}
