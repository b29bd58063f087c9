// Tracing instrumentation for agents.
package agents

import (
	"context"
	"encoding/json"

	"github.com/vinayprograms/agentkit/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startAgentSpan starts a span for one agent call.
func (a *Agent) startAgentSpan(ctx context.Context, streaming bool) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "agent."+a.def.Name)
	span.SetAttributes(
		attribute.String("agent.name", a.def.Name),
		attribute.String("agent.profile", a.def.Profile),
		attribute.String("agent.provider", a.providerName),
		attribute.Bool("agent.streaming", streaming),
	)
	return ctx, span
}

// endAgentSpan ends the agent span with output info.
func (a *Agent) endAgentSpan(span trace.Span, output string, err error) {
	tracer := telemetry.GetTracer()
	if tracer.Debug() && output != "" {
		span.SetAttributes(attribute.String("agent.output", truncateForLog(output, 2000)))
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// startToolSpan starts a span for a tool call.
func startToolSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	tracer := telemetry.GetTracer()
	ctx, span := tracer.StartSpan(ctx, "tool."+name)
	span.SetAttributes(attribute.String("tool.name", name))
	return ctx, span
}

// endToolSpan ends the tool span.
func endToolSpan(span trace.Span, result interface{}, err error) {
	tracer := telemetry.GetTracer()
	if tracer.Debug() && result != nil {
		if data, merr := json.Marshal(result); merr == nil {
			span.SetAttributes(attribute.String("tool.result", truncateForLog(string(data), 2000)))
		}
	}
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
