package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/headerrules"
)

// Pseudo-header names readable on the request side.
const (
	PseudoMethod    = ":method"
	PseudoPath      = ":path"
	PseudoAuthority = ":authority"
	PseudoScheme    = ":scheme"
)

// httpHost adapts a net/http request and its response to exchange.Host.
// The chunk for each direction is the slice most recently read from the
// wire; BodyChunk serves windows of it.
type httpHost struct {
	req  *http.Request
	resp *http.Response

	chunk [2][]byte
}

var _ exchange.Host = (*httpHost)(nil)

func newHTTPHost(req *http.Request) *httpHost {
	return &httpHost{req: req}
}

// Headers implements exchange.Host.
func (h *httpHost) Headers(d exchange.Direction) headerrules.Map {
	if d == exchange.Request {
		return &headerMap{
			header: h.req.Header,
			pseudo: h.req,
			length: func(n int64) { h.req.ContentLength = n },
		}
	}
	if h.resp == nil {
		return &headerMap{header: http.Header{}}
	}
	return &headerMap{
		header: h.resp.Header,
		length: func(n int64) { h.resp.ContentLength = n },
	}
}

// BodyChunk implements exchange.Host.
func (h *httpHost) BodyChunk(d exchange.Direction, offset, size int) []byte {
	chunk := h.chunk[d]
	if offset >= len(chunk) {
		return nil
	}
	end := offset + size
	if end > len(chunk) {
		end = len(chunk)
	}
	return chunk[offset:end]
}

// ReplaceBody implements exchange.Host.
func (h *httpHost) ReplaceBody(d exchange.Direction, body []byte) {
	n := int64(len(body))
	if d == exchange.Request {
		h.req.Body = io.NopCloser(bytes.NewReader(body))
		h.req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		h.req.ContentLength = n
		h.req.TransferEncoding = nil
		return
	}
	if h.resp == nil {
		return
	}
	h.resp.Body = io.NopCloser(bytes.NewReader(body))
	h.resp.ContentLength = n
	h.resp.TransferEncoding = nil
	h.resp.Uncompressed = false
}

// setChunk records the bytes of the next body chunk for d.
func (h *httpHost) setChunk(d exchange.Direction, b []byte) {
	h.chunk[d] = b
}

// headerMap is headerrules.Map over http.Header. When pseudo is set the
// request pseudo-headers are readable; writes to them are ignored.
type headerMap struct {
	header http.Header
	pseudo *http.Request
	length func(int64)
}

var (
	_ headerrules.Map      = (*headerMap)(nil)
	_ headerrules.ReadOnly = (*headerMap)(nil)
)

// ReadOnly reports the pseudo-headers, which belong to the upstream
// connection.
func (m *headerMap) ReadOnly(name string) bool {
	return strings.HasPrefix(name, ":")
}

func (m *headerMap) Get(name string) (string, bool) {
	if strings.HasPrefix(name, ":") {
		return m.pseudoValue(name)
	}
	values := m.header.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

func (m *headerMap) Add(name, value string) {
	if strings.HasPrefix(name, ":") {
		return
	}
	m.header.Add(name, value)
}

func (m *headerMap) Set(name, value string) {
	if strings.HasPrefix(name, ":") {
		return
	}
	m.header.Set(name, value)
	m.syncLength(name, value)
}

func (m *headerMap) SetFirst(name, value string) {
	if strings.HasPrefix(name, ":") {
		return
	}
	key := http.CanonicalHeaderKey(name)
	if values := m.header[key]; len(values) > 0 {
		values[0] = value
		m.syncLength(name, value)
	}
}

func (m *headerMap) Del(name string) {
	if strings.HasPrefix(name, ":") {
		return
	}
	m.header.Del(name)
}

func (m *headerMap) syncLength(name, value string) {
	if m.length == nil || !strings.EqualFold(name, "content-length") {
		return
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil && n >= 0 {
		m.length(n)
	}
}

func (m *headerMap) pseudoValue(name string) (string, bool) {
	r := m.pseudo
	if r == nil {
		return "", false
	}
	switch strings.ToLower(name) {
	case PseudoMethod:
		return r.Method, true
	case PseudoPath:
		return r.URL.RequestURI(), true
	case PseudoAuthority:
		return r.Host, r.Host != ""
	case PseudoScheme:
		if r.TLS != nil {
			return "https", true
		}
		return "http", true
	}
	return "", false
}
