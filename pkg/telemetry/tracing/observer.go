package tracing

import (
	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/jsonrules"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpanObserver turns engine reports into events on the exchange span.
type SpanObserver struct {
	span trace.Span
}

// NewSpanObserver returns an exchange.Observer bound to span.
func NewSpanObserver(span trace.Span) SpanObserver {
	return SpanObserver{span: span}
}

func (o SpanObserver) HeadersApplied(d exchange.Direction, changed int) {
	if !o.span.IsRecording() {
		return
	}
	o.span.AddEvent(EventHeadersApplied, trace.WithAttributes(
		attribute.String(AttrDirection, d.String()),
		attribute.Int(AttrHeadersChanged, changed),
	))
}

func (o SpanObserver) BodyFinalized(d exchange.Direction, outcome jsonrules.Outcome, inBytes, outBytes int) {
	if !o.span.IsRecording() {
		return
	}
	o.span.AddEvent(EventBodyFinalized, trace.WithAttributes(
		attribute.String(AttrDirection, d.String()),
		attribute.String(AttrBodyOutcome, outcome.String()),
		attribute.Int(AttrBodyBytesIn, inBytes),
		attribute.Int(AttrBodyBytesOut, outBytes),
	))
}

func (o SpanObserver) BufferReleased(d exchange.Direction, bytes int) {
	if !o.span.IsRecording() {
		return
	}
	o.span.AddEvent(EventBufferReleased, trace.WithAttributes(
		attribute.String(AttrDirection, d.String()),
		attribute.Int(AttrBufferBytes, bytes),
	))
}
