package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/hupe1980/cognisphere"

// Attribute keys attached to spans and measurements.
const (
	AttrAgentName    = "cognisphere.agent.name"
	AttrOperation    = "cognisphere.agent.operation"
	AttrSessionID    = "cognisphere.session.id"
	AttrWorkflowKind = "cognisphere.workflow.kind"
	AttrIteration    = "cognisphere.loop.iteration"
	AttrSuccess      = "cognisphere.success"
)

// InstrumentOptions select the providers instruments are created from.
type InstrumentOptions struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Instruments bundle the tracer and meters used by executors and façades.
// A nil *Instruments is valid and records nothing.
type Instruments struct {
	tracer        trace.Tracer
	agentCalls    metric.Int64Counter
	agentDuration metric.Float64Histogram
	workflowRuns  metric.Int64Counter
}

// NewInstruments creates instruments from the global providers unless
// overridden. Global providers installed later by Init are picked up through
// otel's delegation.
func NewInstruments(optFns ...func(o *InstrumentOptions)) (*Instruments, error) {
	opts := InstrumentOptions{
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	meter := opts.MeterProvider.Meter(instrumentationName)

	agentCalls, err := meter.Int64Counter(
		"cognisphere.agent.calls",
		metric.WithDescription("Agent invocations by agent and outcome"),
	)
	if err != nil {
		return nil, err
	}

	agentDuration, err := meter.Float64Histogram(
		"cognisphere.agent.duration",
		metric.WithDescription("Agent invocation latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	workflowRuns, err := meter.Int64Counter(
		"cognisphere.workflow.runs",
		metric.WithDescription("Composition strategy runs by kind and outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		tracer:        opts.TracerProvider.Tracer(instrumentationName),
		agentCalls:    agentCalls,
		agentDuration: agentDuration,
		workflowRuns:  workflowRuns,
	}, nil
}

var defaultInstruments, _ = NewInstruments()

// Default returns instruments bound to the global providers.
func Default() *Instruments { return defaultInstruments }

// StartAgentCall opens a span around one agent invocation. The returned
// function ends the span and records the call metrics.
func (i *Instruments) StartAgentCall(ctx context.Context, agent, operation, sessionID string) (context.Context, func(error)) {
	if i == nil {
		return ctx, func(error) {}
	}
	start := time.Now()
	ctx, span := i.tracer.Start(ctx, "agent "+agent, trace.WithAttributes(
		attribute.String(AttrAgentName, agent),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrSessionID, sessionID),
	))
	return ctx, func(err error) {
		endSpan(span, err)
		attrs := metric.WithAttributes(
			attribute.String(AttrAgentName, agent),
			attribute.Bool(AttrSuccess, err == nil),
		)
		i.agentCalls.Add(ctx, 1, attrs)
		i.agentDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}
}

// StartWorkflow opens a span around one composition strategy run.
func (i *Instruments) StartWorkflow(ctx context.Context, kind, name, sessionID string) (context.Context, func(error)) {
	if i == nil {
		return ctx, func(error) {}
	}
	ctx, span := i.tracer.Start(ctx, kind+" "+name, trace.WithAttributes(
		attribute.String(AttrWorkflowKind, kind),
		attribute.String(AttrAgentName, name),
		attribute.String(AttrSessionID, sessionID),
	))
	return ctx, func(err error) {
		endSpan(span, err)
		i.workflowRuns.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrWorkflowKind, kind),
			attribute.Bool(AttrSuccess, err == nil),
		))
	}
}

// AddEvent records a named event with attributes on the span in ctx.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
