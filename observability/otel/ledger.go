package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope used by the ledger.
const TracerName = "stakeledger"

const (
	AttrOperation = attribute.Key("ledger.op")
	AttrHeight    = attribute.Key("ledger.height")
	AttrRejection = attribute.Key("ledger.rejection")
	AttrOutcome   = attribute.Key("ledger.outcome")
)

var (
	operationsOnce    sync.Once
	operationsCounter metric.Int64Counter
)

// Tracer returns the ledger tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Meter returns the ledger meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(TracerName)
}

func operations() metric.Int64Counter {
	operationsOnce.Do(func() {
		counter, err := Meter().Int64Counter("stakeledger.operations",
			metric.WithDescription("Atomic ledger operations by outcome."),
			metric.WithUnit("{operation}"))
		if err != nil {
			otel.Handle(err)
		}
		operationsCounter = counter
	})
	return operationsCounter
}

// StartOperation opens the span covering one atomic ledger operation.
func StartOperation(ctx context.Context, op string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return Tracer().Start(ctx, "ledger."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrOperation.String(op)))
}

// EndCommitted closes span for an operation committed at height.
func EndCommitted(ctx context.Context, span trace.Span, op string, height uint64) {
	span.SetAttributes(AttrHeight.Int64(int64(height)))
	span.SetStatus(codes.Ok, "")
	span.End()
	if counter := operations(); counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(AttrOperation.String(op), AttrOutcome.String("committed")))
	}
}

// EndRejected closes span for an operation whose state was rolled back.
func EndRejected(ctx context.Context, span trace.Span, op, reason string, err error) {
	span.SetAttributes(AttrRejection.String(reason))
	if err != nil {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, reason)
	span.End()
	if counter := operations(); counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(
			AttrOperation.String(op),
			AttrOutcome.String("rejected"),
			AttrRejection.String(reason)))
	}
}
