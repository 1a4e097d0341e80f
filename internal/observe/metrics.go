// Package observe records voce's OpenTelemetry metrics and serves them in
// Prometheus text format.
//
// Tests should build [Metrics] with [NewMetrics] over a meter provider backed
// by a manual reader; [Discard] is for callers that run without metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for every voce instrument.
const meterName = "github.com/rbright/voce"

// Activation outcomes recorded on voce.activations.
const (
	OutcomeWake     = "wake"
	OutcomeManual   = "manual"
	OutcomeConsumed = "consumed"
	OutcomeExpired  = "expired"
	OutcomeReset    = "reset"
)

// Metrics holds the instruments the session loop records into. All fields
// are safe for concurrent use.
type Metrics struct {
	// Transcripts counts transcripts received from the engine.
	Transcripts metric.Int64Counter

	// Actions counts dispatched actions. Attribute: kind.
	Actions metric.Int64Counter

	// InjectionErrors counts dispatches that failed to inject input.
	InjectionErrors metric.Int64Counter

	// EngineErrors counts recoverable engine failures.
	EngineErrors metric.Int64Counter

	// Activations counts activation state changes. Attribute: outcome.
	Activations metric.Int64Counter

	// DispatchDuration tracks input injection latency per action.
	DispatchDuration metric.Float64Histogram
}

// dispatchBuckets are seconds; injection is usually a few milliseconds.
var dispatchBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Transcripts, err = m.Int64Counter("voce.transcripts",
		metric.WithDescription("Transcripts received from the speech engine."),
	); err != nil {
		return nil, err
	}
	if met.Actions, err = m.Int64Counter("voce.actions",
		metric.WithDescription("Parsed actions dispatched, by kind."),
	); err != nil {
		return nil, err
	}
	if met.InjectionErrors, err = m.Int64Counter("voce.injection.errors",
		metric.WithDescription("Input injection failures."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("voce.engine.errors",
		metric.WithDescription("Recoverable speech engine failures."),
	); err != nil {
		return nil, err
	}
	if met.Activations, err = m.Int64Counter("voce.activations",
		metric.WithDescription("Activation state changes, by outcome."),
	); err != nil {
		return nil, err
	}
	if met.DispatchDuration, err = m.Float64Histogram("voce.dispatch.duration",
		metric.WithDescription("Latency of input injection for one action."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(dispatchBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// Discard returns instruments that record nothing.
func Discard() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic(err)
	}
	return met
}

// RecordTranscript counts one transcript.
func (m *Metrics) RecordTranscript(ctx context.Context) {
	m.Transcripts.Add(ctx, 1)
}

// RecordDispatch records one dispatched action and its outcome.
func (m *Metrics) RecordDispatch(ctx context.Context, kind string, elapsed time.Duration, err error) {
	kindAttr := metric.WithAttributes(attribute.String("kind", kind))
	m.Actions.Add(ctx, 1, kindAttr)
	m.DispatchDuration.Record(ctx, elapsed.Seconds(), kindAttr)
	if err != nil {
		m.InjectionErrors.Add(ctx, 1, kindAttr)
	}
}

// RecordEngineError counts one recoverable engine failure.
func (m *Metrics) RecordEngineError(ctx context.Context) {
	m.EngineErrors.Add(ctx, 1)
}

// RecordActivation counts one activation state change.
func (m *Metrics) RecordActivation(ctx context.Context, outcome string) {
	m.Activations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
