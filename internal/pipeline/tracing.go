// Tracing instrumentation for pipeline passes and stages.
package pipeline

import (
	"context"

	"github.com/vinayprograms/agentkit/telemetry"
	"github.com/vinayprograms/growwit/internal/session"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startRunSpan starts the span of one pass.
func startRunSpan(ctx context.Context, sess *session.Session) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("session.kind", string(sess.Kind)),
		attribute.String("product", sess.Product),
	)
	return ctx, span
}

// endRunSpan ends the pass span with its outcome.
func endRunSpan(span trace.Span, sess *session.Session, err error) {
	span.SetAttributes(
		attribute.Int("output.bytes", sess.Bytes()),
		attribute.Int64("duration_ms", sess.Duration().Milliseconds()),
	)
	if err != nil {
		span.SetAttributes(attribute.String("status", session.StatusFailed))
		span.RecordError(err)
	} else {
		span.SetAttributes(attribute.String("status", session.StatusComplete))
	}
	span.End()
}

// startStageSpan starts the span of one stage.
func startStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "stage."+stage)
	span.SetAttributes(attribute.String("stage", stage))
	return ctx, span
}

func endStageSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
