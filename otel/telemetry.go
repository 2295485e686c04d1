package otel

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	traceNoop "go.opentelemetry.io/otel/trace/noop"
)

const scopeName = "github.com/hugolhafner/streamtable"

// Telemetry holds all OpenTelemetry instruments for the streamtable runtime
// When no providers are configured, all instruments are noops with zero overhead
type Telemetry struct {
	Tracer     trace.Tracer
	Propagator propagation.TextMapPropagator

	// Consumer metrics
	MessagesConsumed metric.Int64Counter
	ProcessDuration  metric.Float64Histogram

	// Commit metrics
	OffsetsCommitted metric.Int64Counter
	CommitDuration   metric.Float64Histogram

	// Producer metrics
	MessagesProduced metric.Int64Counter
	ProduceDuration  metric.Float64Histogram

	// Error metrics
	Errors metric.Int64Counter
}

// NewTelemetry creates a Telemetry instance from the given providers.
// all providers are optional and defaulted to noops if nil
func NewTelemetry(tp trace.TracerProvider, mp metric.MeterProvider, prop propagation.TextMapPropagator) (
	*Telemetry, error,
) {
	if tp == nil {
		tp = traceNoop.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	if prop == nil {
		prop = propagation.TraceContext{}
	}

	tracer := tp.Tracer(scopeName)
	meter := mp.Meter(scopeName)

	messagesConsumed, err := meter.Int64Counter(
		"messaging.consumer.messages",
		metric.WithDescription("Messages consumed"),
	)
	if err != nil {
		return nil, err
	}

	processDuration, err := meter.Float64Histogram(
		"stream.process.duration",
		metric.WithDescription("End-to-end message processing time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	offsetsCommitted, err := meter.Int64Counter(
		"stream.commit.offsets",
		metric.WithDescription("Offsets committed to the backend"),
	)
	if err != nil {
		return nil, err
	}

	commitDuration, err := meter.Float64Histogram(
		"stream.commit.duration",
		metric.WithDescription("Time per backend commit call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesProduced, err := meter.Int64Counter(
		"messaging.producer.messages",
		metric.WithDescription("Messages produced"),
	)
	if err != nil {
		return nil, err
	}

	produceDuration, err := meter.Float64Histogram(
		"stream.produce.duration",
		metric.WithDescription("Time per Send() call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errors, err := meter.Int64Counter(
		"stream.errors",
		metric.WithDescription("Processing errors encountered"),
	)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Tracer:           tracer,
		Propagator:       prop,
		MessagesConsumed: messagesConsumed,
		ProcessDuration:  processDuration,
		OffsetsCommitted: offsetsCommitted,
		CommitDuration:   commitDuration,
		MessagesProduced: messagesProduced,
		ProduceDuration:  produceDuration,
		Errors:           errors,
	}, nil
}

// Noop returns a Telemetry instance with all noop instruments
func Noop() *Telemetry {
	t, _ := NewTelemetry(nil, nil, nil)
	return t
}
