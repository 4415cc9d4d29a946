// Package proxy hosts the transformation engine behind a reverse proxy.
//
// Every request that reaches the Handler becomes one exchange. The request
// headers go through the request header rules, the body is read in
// proxy.chunk_size pieces and buffered until end of stream, and the
// transformed body is forwarded upstream with a corrected Content-Length.
// The upstream response takes the same path in the other direction before it
// is written to the client.
//
// # Basic Usage
//
//	upstream, _ := url.Parse(cfg.Proxy.UpstreamURL)
//	live := ruleset.NewLive(rules)
//	handler, err := proxy.NewHandler(proxy.Options{
//	    Upstream:  upstream,
//	    Rules:     live,
//	    ChunkSize: cfg.Proxy.ChunkSize,
//	    Recorder:  collector,
//	    Logger:    logger,
//	})
//
// # Headers
//
// The request side also exposes the pseudo-headers :method, :path,
// :authority and :scheme for reading. Writes to them are ignored: the
// scheme and authority of the upstream connection belong to the proxy, not to
// header rules.
//
// # Tracing
//
// With Options.Tracer set, each exchange gets a server span. Header and body
// milestones are recorded as span events and the trace context is injected
// into the upstream request.
//
// # Error Handling
//
// Failures are answered with a JSON body:
//
//	{
//	  "error": {
//	    "message": "upstream unreachable",
//	    "type": "bad_gateway",
//	    "code": "upstream_error",
//	    "request_id": "3f0c..."
//	  }
//	}
//
// A body that cannot be read from the client is a 400. Upstream failures are
// a 502, or a 504 on timeout. In every case the exchange is destroyed and its
// buffers are released.
//
// # Thread Safety
//
// A Handler is safe for concurrent use. Each exchange is confined to the
// goroutine serving its request.
package proxy
