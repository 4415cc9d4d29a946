package exchange

import (
	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
)

// Direction is the request-bound or response-bound half of an exchange.
type Direction int

const (
	Request Direction = iota
	Response
)

// String returns the metric label for the direction.
func (d Direction) String() string {
	if d == Request {
		return "request"
	}
	return "response"
}

// Phase is the body state of one direction.
type Phase int

const (
	// Idle: no header event seen yet.
	Idle Phase = iota
	// Accumulating: headers handled, body chunks are being buffered.
	Accumulating
	// Finalized: end of stream seen and the transformed body written back,
	// or the direction had no body.
	Finalized
	// Aborted: the host tore the exchange down before end of stream.
	Aborted
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Status is the directive returned to the host from every event.
type Status int

const (
	// Continue lets the host forward what it holds.
	Continue Status = iota
	// StopAndBuffer asks the host to hold headers and body bytes and keep
	// delivering chunks.
	StopAndBuffer
)

func (s Status) String() string {
	if s == Continue {
		return "continue"
	}
	return "stop_and_buffer"
}

// DestroyReason tells why the host is tearing down an exchange.
type DestroyReason int

const (
	Normal DestroyReason = iota
	Terminate
)

// Host is what the engine needs from the intermediary runtime.
type Host interface {
	// Headers returns the live, mutable header set of a direction.
	Headers(d Direction) headerrules.Map

	// BodyChunk returns size bytes of the chunk just delivered, starting at
	// offset.
	BodyChunk(d Direction, offset, size int) []byte

	// ReplaceBody replaces the whole outgoing body of a direction.
	ReplaceBody(d Direction, body []byte)
}

// Observer receives a report for every state change worth measuring.
type Observer interface {
	HeadersApplied(d Direction, changed int)
	BodyFinalized(d Direction, outcome jsonrules.Outcome, inBytes, outBytes int)
	BufferReleased(d Direction, bytes int)
}

type nopObserver struct{}

func (nopObserver) HeadersApplied(Direction, int)                        {}
func (nopObserver) BodyFinalized(Direction, jsonrules.Outcome, int, int) {}
func (nopObserver) BufferReleased(Direction, int)                        {}

type multiObserver []Observer

// MultiObserver fans every report out to each non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nopObserver{}
	case 1:
		return m[0]
	}
	return m
}

func (m multiObserver) HeadersApplied(d Direction, changed int) {
	for _, o := range m {
		o.HeadersApplied(d, changed)
	}
}

func (m multiObserver) BodyFinalized(d Direction, outcome jsonrules.Outcome, inBytes, outBytes int) {
	for _, o := range m {
		o.BodyFinalized(d, outcome, inBytes, outBytes)
	}
}

func (m multiObserver) BufferReleased(d Direction, bytes int) {
	for _, o := range m {
		o.BufferReleased(d, bytes)
	}
}
