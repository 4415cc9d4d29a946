// Package exchange drives header and body transformation for one
// request/response pair.
//
// Each direction moves Idle -> Accumulating -> Finalized. Header rules run
// once, when the headers arrive. Body chunks are buffered while the host is
// told to hold them. On the end-of-stream chunk the full body goes through
// the JSON rules, the result replaces the outgoing body, and content-length
// is set to its exact length. Tearing the exchange down early releases the
// buffers and moves unfinished directions to Aborted.
//
// A Context is owned by one exchange and is not safe for concurrent use.
// Exchanges share nothing but the read-only rule set.
package exchange

import (
	"log/slog"
	"strconv"
	"time"

	"mercator-hq/enricher/pkg/transform/buffer"
	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

type directionState struct {
	phase Phase
	acc   buffer.Accumulator
	out   []byte
}

// Context is the per-exchange orchestrator.
type Context struct {
	id       string
	host     Host
	rules    *ruleset.Set
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	dirs [2]directionState
}

// Option configures a Context.
type Option func(*Context)

// WithID sets the exchange id used in log lines.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the observer notified on header and body events.
func WithObserver(o Observer) Option {
	return func(c *Context) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock overrides the time source handed to rules.
func WithClock(now func() time.Time) Option {
	return func(c *Context) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates the context for one exchange. rules must not be modified while
// the exchange is alive; a nil set means the built-in defaults.
func New(host Host, rules *ruleset.Set, opts ...Option) *Context {
	if rules == nil {
		rules = ruleset.Default()
	}
	c := &Context{
		host:     host,
		rules:    rules,
		logger:   slog.Default(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("exchange_id", c.id)
	return c
}

// ID returns the exchange id.
func (c *Context) ID() string { return c.id }

// Phase returns the current phase of a direction.
func (c *Context) Phase(d Direction) Phase { return c.dirs[d].phase }

// Body returns the body written back for a finalized direction.
func (c *Context) Body(d Direction) []byte { return c.dirs[d].out }

// OnRequestHeaders handles the arrival of request headers.
func (c *Context) OnRequestHeaders(endOfStream bool) Status {
	return c.onHeaders(Request, endOfStream)
}

// OnRequestBody handles one request body chunk of size bytes.
func (c *Context) OnRequestBody(size int, endOfStream bool) Status {
	return c.onBody(Request, size, endOfStream)
}

// OnResponseHeaders handles the arrival of response headers.
func (c *Context) OnResponseHeaders(endOfStream bool) Status {
	return c.onHeaders(Response, endOfStream)
}

// OnResponseBody handles one response body chunk of size bytes.
func (c *Context) OnResponseBody(size int, endOfStream bool) Status {
	return c.onBody(Response, size, endOfStream)
}

// OnDestroy releases the exchange. Directions that have not finalized drop
// their buffers without transforming anything.
func (c *Context) OnDestroy(reason DestroyReason) {
	for d := Request; d <= Response; d++ {
		st := &c.dirs[d]
		if st.phase == Finalized || st.phase == Aborted {
			continue
		}
		released := st.acc.Len()
		st.acc.Release()
		if st.phase == Accumulating {
			c.observer.BufferReleased(d, released)
			c.logger.Debug("released unfinished body",
				"direction", d.String(),
				"bytes", released,
				"terminated", reason == Terminate,
			)
		}
		st.phase = Aborted
	}
}

func (c *Context) onHeaders(d Direction, endOfStream bool) Status {
	st := &c.dirs[d]
	if st.phase != Idle {
		c.logger.Error("header event out of order",
			"direction", d.String(),
			"phase", st.phase.String(),
		)
		return Continue
	}

	changed := headerrules.Apply(c.host.Headers(d), c.headerRules(d), headerrules.Context{
		Now:     c.now,
		Request: c.host.Headers(Request),
	})
	c.observer.HeadersApplied(d, changed)

	if endOfStream {
		st.phase = Finalized
		return Continue
	}
	st.phase = Accumulating
	// Hold the headers as well: content-length is rewritten once the body is known.
	return StopAndBuffer
}

func (c *Context) onBody(d Direction, size int, endOfStream bool) Status {
	st := &c.dirs[d]
	switch st.phase {
	case Idle:
		c.logger.Warn("body chunk before headers", "direction", d.String())
		st.phase = Accumulating
	case Finalized, Aborted:
		c.logger.Error("body chunk after stream end",
			"direction", d.String(),
			"phase", st.phase.String(),
		)
		return Continue
	}

	chunk := c.host.BodyChunk(d, 0, size)
	if err := st.acc.Append(chunk, endOfStream); err != nil {
		c.logger.Error("dropping body chunk", "direction", d.String(), "error", err)
		return Continue
	}
	if !endOfStream {
		return StopAndBuffer
	}

	c.finalize(d)
	return Continue
}

func (c *Context) finalize(d Direction) {
	st := &c.dirs[d]
	body, err := st.acc.TakeAll()
	if err != nil {
		c.logger.Error("finalize without end of stream", "direction", d.String(), "error", err)
		return
	}

	out, outcome := jsonrules.Transform(body, c.bodyRules(d), jsonrules.Context{
		Now:          c.now,
		HeaderLookup: c.host.Headers(Request).Get,
	})

	c.host.ReplaceBody(d, out)
	c.host.Headers(d).Set(ruleset.HeaderContentLength, strconv.Itoa(len(out)))

	st.out = out
	st.acc.Release()
	st.phase = Finalized

	if outcome == jsonrules.OutcomePassThrough {
		c.logger.Debug("body passed through unmodified",
			"direction", d.String(),
			"bytes", len(body),
		)
	}
	c.observer.BodyFinalized(d, outcome, len(body), len(out))
}

func (c *Context) headerRules(d Direction) []headerrules.Rule {
	if d == Request {
		return c.rules.RequestHeaders
	}
	return c.rules.ResponseHeaders
}

func (c *Context) bodyRules(d Direction) []jsonrules.Rule {
	if d == Request {
		return c.rules.RequestBody
	}
	return c.rules.ResponseBody
}
