package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startTransitionSpan creates the span covering one transition, from
// acceptance until the delegate reports the outcome. Uses the global tracer
// initialized by github.com/amp-labs/amp-lifecycle/telemetry.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (ended in complete)
func startTransitionSpan(ctx context.Context, info TransitionInfo) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "statemachine.transition."+info.Transition)
	span.SetAttributes(
		attribute.String("machine", info.Machine),
		attribute.String("request_id", info.RequestID),
		attribute.String("transition", info.Transition),
		attribute.String("from_state", info.From),
		attribute.String("to_state", info.To),
	)

	return ctx, span
}

// endTransitionSpan records the outcome on the span and ends it.
func endTransitionSpan(span trace.Span, succeeded bool, err error) {
	span.SetAttributes(attribute.Bool("succeeded", succeeded))

	switch {
	case succeeded:
		span.SetStatus(codes.Ok, "completed")
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetStatus(codes.Error, "transition failed")
	}

	span.End()
}

// addRejectionEvent annotates the caller's span (if any) with a rejected request.
func addRejectionEvent(ctx context.Context, info TransitionInfo, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.AddEvent("statemachine.transition_rejected", trace.WithAttributes(
		attribute.String("machine", info.Machine),
		attribute.String("request_id", info.RequestID),
		attribute.String("transition", info.Transition),
		attribute.String("error", err.Error()),
	))
}
