package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"mercator-hq/enricher/pkg/proxy/types"
	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/jsonrules"
)

// upstreamRecord is what the fake upstream saw.
type upstreamRecord struct {
	mu            sync.Mutex
	header        http.Header
	body          []byte
	contentLength int64
}

func (u *upstreamRecord) snapshot() (http.Header, []byte, int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.header, u.body, u.contentLength
}

func newUpstream(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *upstreamRecord) {
	t.Helper()
	rec := &upstreamRecord{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.header = r.Header.Clone()
		rec.body = body
		rec.contentLength = r.ContentLength
		rec.mu.Unlock()
		respond(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func jsonResponder(body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func newTestHandler(t *testing.T, upstream string, opts Options) *Handler {
	t.Helper()
	u, err := url.Parse(upstream)
	if err != nil {
		t.Fatal(err)
	}
	opts.Upstream = u
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h, err := NewHandler(opts)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	return h
}

func decodeObject(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal(b, &obj); err != nil {
		t.Fatalf("body is not a JSON object: %v: %s", err, b)
	}
	return obj
}

func TestNewHandler_Validation(t *testing.T) {
	tests := []struct {
		name     string
		upstream *url.URL
		wantErr  bool
	}{
		{name: "missing upstream", upstream: nil, wantErr: true},
		{name: "bad scheme", upstream: &url.URL{Scheme: "ftp", Host: "example.com"}, wantErr: true},
		{name: "http", upstream: &url.URL{Scheme: "http", Host: "example.com"}},
		{name: "https", upstream: &url.URL{Scheme: "https", Host: "example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHandler(Options{Upstream: tt.upstream})
			if (err != nil) != tt.wantErr {
				t.Errorf("NewHandler() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandler_RequestTransformed(t *testing.T) {
	upstream, seen := newUpstream(t, jsonResponder(`{}`))
	h := newTestHandler(t, upstream.URL, Options{})

	body := `{"user_id":"42","email":"a@b.co","password":"hunter2","name":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/things", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	req.Header.Set("X-Internal-Token", "secret")
	req.Header.Set("User-Agent", "curl/8.0")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	header, got, length := seen.snapshot()
	obj := decodeObject(t, got)

	if obj["user_id"] != "user_42" {
		t.Errorf("user_id = %v, want user_42", obj["user_id"])
	}
	if obj["processed_by"] != "wasm-filter" {
		t.Errorf("processed_by = %v", obj["processed_by"])
	}
	if _, ok := obj["password"]; ok {
		t.Error("password should be removed")
	}
	if obj["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", obj["request_id"])
	}
	if _, ok := obj["validation_error"]; ok {
		t.Error("valid email should not be flagged")
	}
	if length != int64(len(got)) {
		t.Errorf("upstream content length = %d, body is %d bytes", length, len(got))
	}

	if header.Get("X-Custom-Header") != "processed-by-wasm" {
		t.Errorf("X-Custom-Header = %q", header.Get("X-Custom-Header"))
	}
	if header.Get("X-Internal-Token") != "" {
		t.Error("X-Internal-Token should be removed")
	}
	if header.Get("User-Agent") != "Transformed-curl/8.0" {
		t.Errorf("User-Agent = %q", header.Get("User-Agent"))
	}
	if _, err := strconv.ParseInt(header.Get("X-Request-Time"), 10, 64); err != nil {
		t.Errorf("X-Request-Time = %q, want unix seconds", header.Get("X-Request-Time"))
	}
}

func TestHandler_ResponseTransformed(t *testing.T) {
	upstream, _ := newUpstream(t, jsonResponder(`{"items":[1,2,3],"internal_id":"db-7","data":"ok"}`))
	h := newTestHandler(t, upstream.URL, Options{})

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set("X-Request-ID", "req-9")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := rec.Body.Bytes()
	obj := decodeObject(t, body)

	if obj["total_count"] != float64(3) {
		t.Errorf("total_count = %v, want 3", obj["total_count"])
	}
	if obj["success"] != true {
		t.Errorf("success = %v", obj["success"])
	}
	if obj["version"] != "v1.0.0" {
		t.Errorf("version = %v", obj["version"])
	}
	if obj["request_id"] != "req-9" {
		t.Errorf("request_id = %v", obj["request_id"])
	}
	if _, ok := obj["internal_id"]; ok {
		t.Error("internal_id should be removed")
	}

	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length = %q, body is %d bytes", got, len(body))
	}
	for name, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-Processed-By":         "wasm-filter",
	} {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("no CORS headers expected without Origin")
	}
}

func TestHandler_NonJSONPassesThrough(t *testing.T) {
	const payload = "plain text, not json"
	upstream, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, payload)
	})
	h := newTestHandler(t, upstream.URL, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Body.String() != payload {
		t.Errorf("body = %q, want %q", rec.Body.String(), payload)
	}
	if got := rec.Header().Get("Content-Length"); got != strconv.Itoa(len(payload)) {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestHandler_CORSEcho(t *testing.T) {
	upstream, _ := newUpstream(t, jsonResponder(`{}`))
	h := newTestHandler(t, upstream.URL, Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("Access-Control-Allow-Methods missing")
	}
}

func TestHandler_ChunkSizeDoesNotChangeResult(t *testing.T) {
	body := `{"user_id":"7","email":"not-an-email","api_key":"k","nested":{"a":[1,2,3]}}`

	run := func(chunk int) map[string]any {
		upstream, seen := newUpstream(t, jsonResponder(`{}`))
		h := newTestHandler(t, upstream.URL, Options{ChunkSize: chunk})

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("X-Request-ID", "fixed")
		h.ServeHTTP(httptest.NewRecorder(), req)

		_, got, _ := seen.snapshot()
		obj := decodeObject(t, got)
		delete(obj, "processed_at")
		return obj
	}

	whole := run(0)
	for _, chunk := range []int{1, 3, len(body), len(body) + 1} {
		got := run(chunk)
		a, _ := json.Marshal(whole)
		b, _ := json.Marshal(got)
		if !bytes.Equal(a, b) {
			t.Errorf("chunk %d: %s, want %s", chunk, b, a)
		}
	}
	if whole["validation_error"] != "Invalid email format" {
		t.Errorf("validation_error = %v", whole["validation_error"])
	}
}

func TestHandler_HeadKeepsContentLength(t *testing.T) {
	upstream, _ := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1234")
		w.WriteHeader(http.StatusOK)
	})
	h := newTestHandler(t, upstream.URL, Options{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/", nil))

	if got := rec.Header().Get("Content-Length"); got != "1234" {
		t.Errorf("Content-Length = %q, want 1234", got)
	}
	if rec.Header().Get("X-Processed-By") != "wasm-filter" {
		t.Error("response header rules should still run")
	}
}

func TestHandler_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	recorder := &countingRecorder{}
	h := newTestHandler(t, addr, Options{Recorder: recorder})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	req.Header.Set("X-Request-ID", "req-down")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var errResp types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if errResp.Error.Type != types.ErrorTypeBadGateway {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
	if errResp.Error.RequestID != "req-down" {
		t.Errorf("request id = %q", errResp.Error.RequestID)
	}
	if recorder.exchanges != 1 {
		t.Errorf("exchanges = %d, want 1", recorder.exchanges)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestHandler_RequestBodyReadError(t *testing.T) {
	upstream, seen := newUpstream(t, jsonResponder(`{}`))
	recorder := &countingRecorder{}
	h := newTestHandler(t, upstream.URL, Options{Recorder: recorder})

	req := httptest.NewRequest(http.MethodPost, "/", io.MultiReader(strings.NewReader(`{"a":`), failingReader{}))
	req.ContentLength = -1
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if header, _, _ := seen.snapshot(); header != nil {
		t.Error("upstream should not be called")
	}
	if len(recorder.released) != 1 || recorder.released[0] != exchange.Request {
		t.Errorf("released = %v, want [request]", recorder.released)
	}
}

func TestHandler_RecorderSeesBothDirections(t *testing.T) {
	upstream, _ := newUpstream(t, jsonResponder(`{"ok":true}`))
	recorder := &countingRecorder{}
	h := newTestHandler(t, upstream.URL, Options{Recorder: recorder})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	h.ServeHTTP(httptest.NewRecorder(), req)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.exchanges != 1 {
		t.Errorf("exchanges = %d", recorder.exchanges)
	}
	if recorder.outcomes[exchange.Request] != jsonrules.OutcomeTransformed {
		t.Errorf("request outcome = %v", recorder.outcomes[exchange.Request])
	}
	if recorder.outcomes[exchange.Response] != jsonrules.OutcomeTransformed {
		t.Errorf("response outcome = %v", recorder.outcomes[exchange.Response])
	}
	if len(recorder.released) != 0 {
		t.Errorf("released = %v, want none", recorder.released)
	}
}

type countingRecorder struct {
	mu        sync.Mutex
	exchanges int
	outcomes  map[exchange.Direction]jsonrules.Outcome
	released  []exchange.Direction
}

func (r *countingRecorder) RecordExchange() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exchanges++
}

func (r *countingRecorder) HeadersApplied(exchange.Direction, int) {}

func (r *countingRecorder) BodyFinalized(d exchange.Direction, o jsonrules.Outcome, _, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = make(map[exchange.Direction]jsonrules.Outcome)
	}
	r.outcomes[d] = o
}

func (r *countingRecorder) BufferReleased(d exchange.Direction, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, d)
}

func BenchmarkHandler_ServeHTTP(b *testing.B) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, `{"items":[1,2,3]}`)
	}))
	defer upstream.Close()

	u, _ := url.Parse(upstream.URL)
	h, err := NewHandler(Options{Upstream: u, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		b.Fatal(err)
	}
	body := []byte(`{"user_id":"1","email":"a@b.co"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
