package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"

	"mercator-hq/enricher/pkg/config"
	"mercator-hq/enricher/pkg/proxy/types"
	"mercator-hq/enricher/pkg/telemetry/logging"
	"mercator-hq/enricher/pkg/telemetry/tracing"
	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/jsonrules"
	"mercator-hq/enricher/pkg/transform/ruleset"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// RuleSource supplies the rule set each new exchange captures.
// *ruleset.Live implements it.
type RuleSource interface {
	Load() *ruleset.Set
}

// Recorder receives exchange events. *metrics.Collector implements it.
type Recorder interface {
	exchange.Observer
	RecordExchange()
}

// Options configures a Handler.
type Options struct {
	// Upstream is the origin every exchange is forwarded to. Required.
	Upstream *url.URL

	// Rules defaults to the built-in rule set.
	Rules RuleSource

	// ChunkSize is the size of the body chunks handed to the engine.
	ChunkSize int

	Recorder Recorder

	// Tracer records a span per exchange. A noop tracer is used when nil.
	Tracer *tracing.Tracer

	Logger    *slog.Logger
	Transport http.RoundTripper
}

type staticRules struct{ set *ruleset.Set }

func (s staticRules) Load() *ruleset.Set { return s.set }

type nopRecorder struct{}

func (nopRecorder) HeadersApplied(exchange.Direction, int)                        {}
func (nopRecorder) BodyFinalized(exchange.Direction, jsonrules.Outcome, int, int) {}
func (nopRecorder) BufferReleased(exchange.Direction, int)                        {}
func (nopRecorder) RecordExchange()                                               {}

// Handler forwards every request to the upstream and runs both directions
// through a transformation exchange on the way.
type Handler struct {
	upstream  *url.URL
	rules     RuleSource
	chunkSize int
	recorder  Recorder
	tracer    *tracing.Tracer
	logger    *slog.Logger
	proxy     *httputil.ReverseProxy
}

type exchangeKey struct{}

// exchangeState travels in the request context from ServeHTTP to the
// response hooks of the reverse proxy.
type exchangeState struct {
	ex   *exchange.Context
	host *httpHost
}

// NewHandler creates a proxying handler.
func NewHandler(opts Options) (*Handler, error) {
	if opts.Upstream == nil {
		return nil, errors.New("upstream URL is required")
	}
	if opts.Upstream.Scheme != "http" && opts.Upstream.Scheme != "https" {
		return nil, fmt.Errorf("unsupported upstream scheme %q", opts.Upstream.Scheme)
	}

	h := &Handler{
		upstream:  opts.Upstream,
		rules:     opts.Rules,
		chunkSize: opts.ChunkSize,
		recorder:  opts.Recorder,
		tracer:    opts.Tracer,
		logger:    opts.Logger,
	}
	if h.rules == nil {
		h.rules = staticRules{set: ruleset.Default()}
	}
	if h.chunkSize <= 0 {
		h.chunkSize = config.DefaultChunkSize
	}
	if h.recorder == nil {
		h.recorder = nopRecorder{}
	}
	if h.tracer == nil {
		h.tracer = tracing.Noop()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.logger = h.logger.With("component", "proxy")

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(h.upstream)
			pr.SetXForwarded()
			h.tracer.Inject(pr.Out.Context(), pr.Out.Header)
		},
		ModifyResponse: h.modifyResponse,
		ErrorHandler:   h.handleError,
		Transport:      opts.Transport,
		ErrorLog:       slog.NewLogLogger(h.logger.Handler(), slog.LevelError),
	}

	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	exLogger := logging.FromContext(r.Context(), h.logger)
	ctx := logging.WithExchangeID(r.Context(), id)

	ctx, span := h.tracer.StartExchange(ctx, r, id)
	defer span.End()

	host := newHTTPHost(r)
	ex := exchange.New(host, h.rules.Load(),
		exchange.WithID(id),
		exchange.WithLogger(exLogger),
		exchange.WithObserver(exchange.MultiObserver(h.recorder, tracing.NewSpanObserver(span))),
	)
	h.recorder.RecordExchange()

	defer func() {
		reason := exchange.Normal
		if ctx.Err() != nil {
			reason = exchange.Terminate
		}
		ex.OnDestroy(reason)
	}()

	if ex.OnRequestHeaders(!hasBody(r)) == exchange.StopAndBuffer {
		if err := h.feed(ex, host, exchange.Request, r.Body); err != nil {
			ex.OnDestroy(exchange.Terminate)
			logging.FromContext(ctx, h.logger).Warn("failed to read request body", "error", err)
			tracing.SetError(span, err)
			reqErr := &RequestError{Message: "failed to read request body", Code: types.CodeBodyRead, Err: err}
			_ = WriteErrorResponse(w, HandleError(reqErr).WithRequestID(ExtractRequestID(r)))
			return
		}
	}

	ctx = context.WithValue(ctx, exchangeKey{}, &exchangeState{ex: ex, host: host})
	h.proxy.ServeHTTP(w, r.WithContext(ctx))
}

func (h *Handler) modifyResponse(resp *http.Response) error {
	st, ok := resp.Request.Context().Value(exchangeKey{}).(*exchangeState)
	if !ok {
		return nil
	}
	st.host.resp = resp
	tracing.SetHTTPStatus(trace.SpanFromContext(resp.Request.Context()), resp.StatusCode)

	if st.ex.OnResponseHeaders(!hasResponseBody(resp)) != exchange.StopAndBuffer {
		return nil
	}

	body := resp.Body
	defer body.Close()
	if err := h.feed(st.ex, st.host, exchange.Response, body); err != nil {
		st.ex.OnDestroy(exchange.Terminate)
		return fmt.Errorf("failed to read upstream body: %w", err)
	}
	return nil
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if st, ok := r.Context().Value(exchangeKey{}).(*exchangeState); ok {
		st.ex.OnDestroy(exchange.Terminate)
	}

	tracing.SetError(trace.SpanFromContext(r.Context()), err)

	logger := logging.FromContext(r.Context(), h.logger)
	if errors.Is(err, context.Canceled) {
		logger.Debug("client went away before the upstream answered")
		return
	}

	logger.Warn("upstream request failed",
		"upstream", h.upstream.Redacted(),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	_ = WriteErrorResponse(w, HandleError(err).WithRequestID(ExtractRequestID(r)))
}

// feed reads body in chunkSize pieces and hands each to the exchange. The
// last chunk carries end of stream and may be empty.
func (h *Handler) feed(ex *exchange.Context, host *httpHost, d exchange.Direction, body io.Reader) error {
	buf := make([]byte, h.chunkSize)
	for {
		n, err := io.ReadFull(body, buf)
		eos := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !eos {
			return err
		}

		host.setChunk(d, buf[:n])
		if d == exchange.Request {
			ex.OnRequestBody(n, eos)
		} else {
			ex.OnResponseBody(n, eos)
		}
		host.setChunk(d, nil)

		if eos {
			return nil
		}
	}
}
