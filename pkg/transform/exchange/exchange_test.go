package exchange

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
	"mercator-hq/enricher/pkg/transform/ruleset"
)

var fixedTime = time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)

// fakeHost keeps headers and bodies in memory. deliver stages the chunk the
// next body event reads.
type fakeHost struct {
	headers  [2]*headerrules.List
	chunk    [2][]byte
	replaced [2][]byte
	replaces [2]int
}

func newFakeHost(req, resp []headerrules.Field) *fakeHost {
	return &fakeHost{headers: [2]*headerrules.List{
		headerrules.NewList(req...),
		headerrules.NewList(resp...),
	}}
}

func (h *fakeHost) Headers(d Direction) headerrules.Map { return h.headers[d] }

func (h *fakeHost) BodyChunk(d Direction, offset, size int) []byte {
	return h.chunk[d][offset : offset+size]
}

func (h *fakeHost) ReplaceBody(d Direction, body []byte) {
	h.replaced[d] = body
	h.replaces[d]++
}

func (h *fakeHost) deliver(d Direction, chunk string) int {
	h.chunk[d] = []byte(chunk)
	return len(chunk)
}

type recordingObserver struct {
	headers  []int
	outcomes []jsonrules.Outcome
	released []int
}

func (o *recordingObserver) HeadersApplied(_ Direction, changed int) {
	o.headers = append(o.headers, changed)
}

func (o *recordingObserver) BodyFinalized(_ Direction, outcome jsonrules.Outcome, _, _ int) {
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) BufferReleased(_ Direction, n int) {
	o.released = append(o.released, n)
}

func newTestContext(host Host, opts ...Option) *Context {
	opts = append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)
	return New(host, ruleset.Default(), opts...)
}

func sendBody(t *testing.T, c *Context, h *fakeHost, d Direction, chunks ...string) {
	t.Helper()
	for i, chunk := range chunks {
		last := i == len(chunks)-1
		size := h.deliver(d, chunk)
		var status Status
		if d == Request {
			status = c.OnRequestBody(size, last)
		} else {
			status = c.OnResponseBody(size, last)
		}
		want := StopAndBuffer
		if last {
			want = Continue
		}
		if status != want {
			t.Fatalf("chunk %d: status = %v, want %v", i, status, want)
		}
	}
}

func TestExchange_RequestEndToEnd(t *testing.T) {
	h := newFakeHost([]headerrules.Field{
		{Name: ":scheme", Value: "http"},
		{Name: "user-agent", Value: "curl/8"},
		{Name: "X-Internal-Token", Value: "t"},
		{Name: "content-length", Value: "53"},
	}, nil)
	c := newTestContext(h)

	if got := c.OnRequestHeaders(false); got != StopAndBuffer {
		t.Fatalf("OnRequestHeaders() = %v, want StopAndBuffer", got)
	}
	if c.Phase(Request) != Accumulating {
		t.Fatalf("Phase = %v, want accumulating", c.Phase(Request))
	}

	sendBody(t, c, h, Request, `{"user_id":"42",`, `"email":"bademail",`, `"password":"x"}`)

	if c.Phase(Request) != Finalized {
		t.Fatalf("Phase = %v, want finalized", c.Phase(Request))
	}
	if h.replaces[Request] != 1 {
		t.Fatalf("ReplaceBody called %d times, want 1", h.replaces[Request])
	}

	var m map[string]any
	if err := json.Unmarshal(h.replaced[Request], &m); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if m["user_id"] != "user_42" {
		t.Errorf("user_id = %v", m["user_id"])
	}
	if m["validation_error"] != "Invalid email format" {
		t.Errorf("validation_error = %v", m["validation_error"])
	}
	if _, ok := m["password"]; ok {
		t.Error("password should be removed")
	}
	if m["processed_at"] != "2025-11-20T10:30:00Z" {
		t.Errorf("processed_at = %v", m["processed_at"])
	}

	req := h.headers[Request]
	if got, _ := req.Get(":scheme"); got != "https" {
		t.Errorf(":scheme = %q", got)
	}
	if got, _ := req.Get("user-agent"); got != "Transformed-curl/8" {
		t.Errorf("user-agent = %q", got)
	}
	if _, ok := req.Get("x-internal-token"); ok {
		t.Error("x-internal-token should be removed")
	}
	if got, _ := req.Get("X-Request-Time"); got != strconv.FormatInt(fixedTime.Unix(), 10) {
		t.Errorf("X-Request-Time = %q", got)
	}
}

func TestExchange_ContentLengthMatchesBody(t *testing.T) {
	bodies := []string{
		`{"user_id":"42"}`,
		`{"note":"héllo wörld"}`,
		`not json at all`,
		`[1, 2, 3]`,
		"",
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			h := newFakeHost([]headerrules.Field{{Name: "Content-Length", Value: "999"}}, nil)
			c := newTestContext(h)

			c.OnRequestHeaders(false)
			sendBody(t, c, h, Request, body)

			values := h.headers[Request].Values("content-length")
			if len(values) != 1 {
				t.Fatalf("content-length values = %v, want exactly one", values)
			}
			if values[0] != strconv.Itoa(len(h.replaced[Request])) {
				t.Errorf("content-length = %s, body length = %d", values[0], len(h.replaced[Request]))
			}
			if string(c.Body(Request)) != string(h.replaced[Request]) {
				t.Error("Body() differs from the replaced body")
			}
		})
	}
}

func TestExchange_ChunkingDoesNotChangeResult(t *testing.T) {
	body := `{"items":[1,2,3],"internal_id":"x","name":"widget"}`

	run := func(chunks ...string) []byte {
		h := newFakeHost([]headerrules.Field{{Name: "x-request-id", Value: "abc"}}, nil)
		c := newTestContext(h)
		c.OnRequestHeaders(true)
		c.OnResponseHeaders(false)
		sendBody(t, c, h, Response, chunks...)
		return h.replaced[Response]
	}

	whole := run(body)
	for _, split := range []int{1, 7, 20, len(body) - 1} {
		got := run(body[:split], body[split:])
		if string(got) != string(whole) {
			t.Errorf("split at %d: got %s, want %s", split, got, whole)
		}
	}
	bytewise := make([]string, len(body))
	for i := range body {
		bytewise[i] = body[i : i+1]
	}
	if got := run(bytewise...); string(got) != string(whole) {
		t.Errorf("byte chunks: got %s, want %s", got, whole)
	}

	var m map[string]any
	if err := json.Unmarshal(whole, &m); err != nil {
		t.Fatal(err)
	}
	if m["total_count"] != float64(3) || m["request_id"] != "abc" || m["success"] != true {
		t.Errorf("response body = %s", whole)
	}
}

func TestExchange_EmptyFinalChunk(t *testing.T) {
	h := newFakeHost(nil, nil)
	c := newTestContext(h)

	c.OnResponseHeaders(false)
	sendBody(t, c, h, Response, `{"a":1}`, "")

	if c.Phase(Response) != Finalized {
		t.Fatalf("Phase = %v", c.Phase(Response))
	}
	var m map[string]any
	if err := json.Unmarshal(h.replaced[Response], &m); err != nil {
		t.Fatal(err)
	}
	if m["a"] != float64(1) || m["version"] != "v1.0.0" {
		t.Errorf("body = %s", h.replaced[Response])
	}
}

func TestExchange_HeadersOnly(t *testing.T) {
	h := newFakeHost(nil, []headerrules.Field{{Name: "content-type", Value: "text/plain"}})
	c := newTestContext(h)

	if got := c.OnResponseHeaders(true); got != Continue {
		t.Fatalf("OnResponseHeaders(true) = %v, want Continue", got)
	}
	if c.Phase(Response) != Finalized {
		t.Errorf("Phase = %v, want finalized", c.Phase(Response))
	}
	if h.replaces[Response] != 0 {
		t.Error("headers-only direction must not write a body")
	}
	if _, ok := h.headers[Response].Get("content-length"); ok {
		t.Error("headers-only direction must not get content-length")
	}
	if got, _ := h.headers[Response].Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestExchange_CORSEcho(t *testing.T) {
	t.Run("with origin", func(t *testing.T) {
		h := newFakeHost([]headerrules.Field{{Name: "Origin", Value: "https://app.test"}}, nil)
		c := newTestContext(h)
		c.OnRequestHeaders(true)
		c.OnResponseHeaders(true)

		resp := h.headers[Response]
		if got, _ := resp.Get("access-control-allow-origin"); got != "https://app.test" {
			t.Errorf("allow-origin = %q", got)
		}
		if _, ok := resp.Get("access-control-allow-methods"); !ok {
			t.Error("allow-methods missing")
		}
	})

	t.Run("without origin", func(t *testing.T) {
		h := newFakeHost(nil, nil)
		c := newTestContext(h)
		c.OnRequestHeaders(true)
		c.OnResponseHeaders(true)

		for _, name := range []string{"access-control-allow-origin", "access-control-allow-methods", "access-control-allow-headers"} {
			if _, ok := h.headers[Response].Get(name); ok {
				t.Errorf("%s should be absent", name)
			}
		}
	})
}

func TestExchange_Destroy(t *testing.T) {
	h := newFakeHost(nil, nil)
	obs := &recordingObserver{}
	c := newTestContext(h, WithObserver(obs))

	c.OnRequestHeaders(false)
	c.OnRequestBody(h.deliver(Request, `{"partial":`), false)

	c.OnDestroy(Terminate)

	if c.Phase(Request) != Aborted {
		t.Errorf("request phase = %v, want aborted", c.Phase(Request))
	}
	if c.Phase(Response) != Aborted {
		t.Errorf("response phase = %v, want aborted", c.Phase(Response))
	}
	if h.replaces[Request] != 0 {
		t.Error("aborted direction must not write a body")
	}
	if len(obs.released) != 1 || obs.released[0] != len(`{"partial":`) {
		t.Errorf("released = %v", obs.released)
	}

	// Late events are ignored.
	if got := c.OnRequestBody(h.deliver(Request, `1}`), true); got != Continue {
		t.Errorf("late body = %v, want Continue", got)
	}
	if h.replaces[Request] != 0 {
		t.Error("late body must not be transformed")
	}
}

func TestExchange_DestroyAfterFinalize(t *testing.T) {
	h := newFakeHost(nil, nil)
	obs := &recordingObserver{}
	c := newTestContext(h, WithObserver(obs))

	c.OnRequestHeaders(false)
	sendBody(t, c, h, Request, `{}`)
	c.OnDestroy(Normal)

	if c.Phase(Request) != Finalized {
		t.Errorf("request phase = %v, want finalized", c.Phase(Request))
	}
	if len(obs.released) != 0 {
		t.Errorf("released = %v, want none", obs.released)
	}
}

func TestExchange_BodyAfterFinalize(t *testing.T) {
	h := newFakeHost(nil, nil)
	c := newTestContext(h)

	c.OnRequestHeaders(false)
	sendBody(t, c, h, Request, `{"a":1}`)
	first := string(h.replaced[Request])

	if got := c.OnRequestBody(h.deliver(Request, `{"b":2}`), true); got != Continue {
		t.Errorf("status = %v, want Continue", got)
	}
	if h.replaces[Request] != 1 || string(h.replaced[Request]) != first {
		t.Error("body after end of stream must be ignored")
	}
}

func TestExchange_HeadersTwice(t *testing.T) {
	h := newFakeHost(nil, nil)
	obs := &recordingObserver{}
	c := newTestContext(h, WithObserver(obs))

	c.OnResponseHeaders(false)
	c.OnResponseHeaders(false)

	if len(obs.headers) != 1 {
		t.Errorf("header rules ran %d times, want 1", len(obs.headers))
	}
	if got := len(h.headers[Response].Values("X-Processed-By")); got != 1 {
		t.Errorf("X-Processed-By count = %d, want 1", got)
	}
}

func TestExchange_BodyBeforeHeaders(t *testing.T) {
	h := newFakeHost(nil, nil)
	c := newTestContext(h)

	sendBody(t, c, h, Response, `{"a":1}`)

	if c.Phase(Response) != Finalized {
		t.Errorf("Phase = %v, want finalized", c.Phase(Response))
	}
	if h.replaces[Response] != 1 {
		t.Errorf("ReplaceBody called %d times", h.replaces[Response])
	}
}

func TestExchange_ObserverOutcomes(t *testing.T) {
	h := newFakeHost(nil, nil)
	obs := &recordingObserver{}
	c := newTestContext(h, WithObserver(obs))

	c.OnRequestHeaders(false)
	sendBody(t, c, h, Request, "\xff\xfe")
	c.OnResponseHeaders(false)
	sendBody(t, c, h, Response, `{"ok":true}`)

	want := []jsonrules.Outcome{jsonrules.OutcomePassThrough, jsonrules.OutcomeTransformed}
	if len(obs.outcomes) != len(want) {
		t.Fatalf("outcomes = %v, want %v", obs.outcomes, want)
	}
	for i := range want {
		if obs.outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %v, want %v", i, obs.outcomes[i], want[i])
		}
	}
	if string(h.replaced[Request]) != "\xff\xfe" {
		t.Errorf("invalid UTF-8 body changed: %q", h.replaced[Request])
	}
}

func TestExchange_IndependentExchanges(t *testing.T) {
	rules := ruleset.Default()
	h1 := newFakeHost([]headerrules.Field{{Name: "x-request-id", Value: "one"}}, nil)
	h2 := newFakeHost([]headerrules.Field{{Name: "x-request-id", Value: "two"}}, nil)
	c1 := New(h1, rules, WithID("1"))
	c2 := New(h2, rules, WithID("2"))

	c1.OnRequestHeaders(false)
	c2.OnRequestHeaders(false)
	c1.OnRequestBody(h1.deliver(Request, `{"n":`), false)
	c2.OnRequestBody(h2.deliver(Request, `{"n":`), false)
	c2.OnRequestBody(h2.deliver(Request, `2}`), true)
	c1.OnRequestBody(h1.deliver(Request, `1}`), true)

	for _, tc := range []struct {
		h    *fakeHost
		n    float64
		id   string
		ctxt *Context
	}{{h1, 1, "one", c1}, {h2, 2, "two", c2}} {
		var m map[string]any
		if err := json.Unmarshal(tc.h.replaced[Request], &m); err != nil {
			t.Fatal(err)
		}
		if m["n"] != tc.n || m["request_id"] != tc.id {
			t.Errorf("exchange %s body = %s", tc.ctxt.ID(), tc.h.replaced[Request])
		}
	}
}

func TestStrings(t *testing.T) {
	if Request.String() != "request" || Response.String() != "response" {
		t.Error("Direction.String")
	}
	if Accumulating.String() != "accumulating" || Phase(9).String() != "unknown" {
		t.Error("Phase.String")
	}
	if StopAndBuffer.String() != "stop_and_buffer" || Continue.String() != "continue" {
		t.Error("Status.String")
	}
}

func TestMultiObserver(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}

	if _, ok := MultiObserver().(nopObserver); !ok {
		t.Error("empty MultiObserver should be a no-op")
	}
	if got := MultiObserver(nil, a); got != Observer(a) {
		t.Error("single observer should be returned as is")
	}

	obs := MultiObserver(a, nil, b)
	obs.HeadersApplied(Request, 3)
	obs.BodyFinalized(Response, jsonrules.OutcomePassThrough, 4, 4)
	obs.BufferReleased(Response, 4)

	for name, o := range map[string]*recordingObserver{"first": a, "second": b} {
		if len(o.headers) != 1 || o.headers[0] != 3 {
			t.Errorf("%s headers = %v", name, o.headers)
		}
		if len(o.outcomes) != 1 || o.outcomes[0] != jsonrules.OutcomePassThrough {
			t.Errorf("%s outcomes = %v", name, o.outcomes)
		}
		if len(o.released) != 1 || o.released[0] != 4 {
			t.Errorf("%s released = %v", name, o.released)
		}
	}
}
