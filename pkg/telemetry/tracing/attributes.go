package tracing

import (
	"strconv"

	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set by the enricher. Standard HTTP keys come from semconv.
const (
	AttrExchangeID = "enricher.exchange.id"
	AttrRequestID  = "enricher.request_id"
	AttrPath       = "enricher.path"

	AttrDirection      = "enricher.direction"
	AttrHeadersChanged = "enricher.headers.changed"
	AttrBodyOutcome    = "enricher.body.outcome"
	AttrBodyBytesIn    = "enricher.body.bytes_in"
	AttrBodyBytesOut   = "enricher.body.bytes_out"
	AttrBufferBytes    = "enricher.buffer.bytes"
)

// Span event names, one per engine report.
const (
	EventHeadersApplied = "headers_applied"
	EventBodyFinalized  = "body_finalized"
	EventBufferReleased = "buffer_released"
)

// SetHTTPStatus records the upstream status code and marks 5xx answers as
// errors.
func SetHTTPStatus(span trace.Span, code int) {
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(code))
	if code >= 500 {
		span.SetStatus(codes.Error, "upstream returned "+strconv.Itoa(code))
	}
}

// SetError records err on span and marks it failed.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
