package observability

import "context"

// NoOpTracer is a tracer that does nothing. It is used when telemetry
// is not enabled.
type NoOpTracer struct{}

func (n *NoOpTracer) StartTrace(ctx context.Context, runID string, _ TraceOptions) (context.Context, TraceContext) {
	return ctx, TraceContext{RunID: runID}
}

func (n *NoOpTracer) StartStage(ctx context.Context, _ TraceContext, stage string, _ SpanOptions) (context.Context, SpanContext) {
	return ctx, SpanContext{StageName: stage}
}

func (n *NoOpTracer) EndStage(_ SpanContext, _ EndOptions) {}

func (n *NoOpTracer) CompleteTrace(_ TraceContext, _ CompleteOptions) {}

func (n *NoOpTracer) Flush(_ context.Context) error { return nil }

func (n *NoOpTracer) Stop(_ context.Context) error { return nil }
