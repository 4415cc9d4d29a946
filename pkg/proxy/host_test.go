package proxy

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/enricher/pkg/transform/exchange"
	"mercator-hq/enricher/pkg/transform/headerrules"
)

func TestHeaderMap_Pseudo(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "http://api.example/v1/items?q=1", nil)
	host := newHTTPHost(req)
	m := host.Headers(exchange.Request)

	tests := []struct {
		name string
		want string
	}{
		{PseudoMethod, "POST"},
		{PseudoPath, "/v1/items?q=1"},
		{PseudoAuthority, "api.example"},
		{PseudoScheme, "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Get(tt.name)
			if !ok || got != tt.want {
				t.Errorf("Get(%q) = %q, %v, want %q", tt.name, got, ok, tt.want)
			}
		})
	}

	t.Run("tls scheme", func(t *testing.T) {
		req.TLS = &tls.ConnectionState{}
		defer func() { req.TLS = nil }()
		if got, _ := m.Get(PseudoScheme); got != "https" {
			t.Errorf("scheme = %q, want https", got)
		}
	})

	t.Run("writes ignored", func(t *testing.T) {
		m.Set(PseudoScheme, "https")
		m.Add(PseudoMethod, "GET")
		m.Del(PseudoPath)
		if got, _ := m.Get(PseudoScheme); got != "http" {
			t.Errorf("scheme = %q after write", got)
		}
		if got, _ := m.Get(PseudoMethod); got != "POST" {
			t.Errorf("method = %q after write", got)
		}
		if len(req.Header) != 0 {
			t.Errorf("pseudo writes leaked into header: %v", req.Header)
		}
	})

	t.Run("rules on pseudo names change nothing", func(t *testing.T) {
		rules := []headerrules.Rule{
			headerrules.RewriteIf{Name: PseudoScheme, Value: "http", NewValue: "https"},
			headerrules.RemoveHeader{Name: PseudoPath},
			headerrules.AddHeader{Name: PseudoMethod, Value: "GET"},
			headerrules.AddHeader{Name: "X-Tag", Value: "a"},
		}
		changed := headerrules.Apply(m, rules, headerrules.Context{})
		if changed != 1 {
			t.Errorf("changed = %d, want 1", changed)
		}
		if got, _ := m.Get(PseudoScheme); got != "http" {
			t.Errorf("scheme = %q", got)
		}
		if got, _ := m.Get(PseudoPath); got != "/v1/items?q=1" {
			t.Errorf("path = %q", got)
		}
		req.Header.Del("X-Tag")
	})

	t.Run("unknown pseudo", func(t *testing.T) {
		if _, ok := m.Get(":status"); ok {
			t.Error(":status should not resolve on the request")
		}
	})
}

func TestHeaderMap_Operations(t *testing.T) {
	header := http.Header{}
	var length int64 = -1
	m := &headerMap{header: header, length: func(n int64) { length = n }}

	m.Add("x-multi", "a")
	m.Add("X-Multi", "b")
	if got, ok := m.Get("X-MULTI"); !ok || got != "a" {
		t.Errorf("Get = %q, %v, want first value", got, ok)
	}

	m.SetFirst("x-multi", "z")
	if got := header.Values("X-Multi"); len(got) != 2 || got[0] != "z" || got[1] != "b" {
		t.Errorf("after SetFirst values = %v", got)
	}

	m.SetFirst("absent", "v")
	if _, ok := m.Get("absent"); ok {
		t.Error("SetFirst should not create a header")
	}

	m.Set("x-multi", "one")
	if got := header.Values("X-Multi"); len(got) != 1 || got[0] != "one" {
		t.Errorf("after Set values = %v", got)
	}

	m.Del("x-multi")
	if _, ok := m.Get("x-multi"); ok {
		t.Error("header should be deleted")
	}

	m.Set("content-length", "42")
	if length != 42 {
		t.Errorf("synced length = %d, want 42", length)
	}
	m.Set("content-length", "junk")
	if length != 42 {
		t.Errorf("invalid content-length changed length to %d", length)
	}
}

func TestHTTPHost_BodyChunk(t *testing.T) {
	host := newHTTPHost(httptest.NewRequest(http.MethodPost, "/", nil))
	host.setChunk(exchange.Request, []byte("abcdef"))

	tests := []struct {
		offset, size int
		want         string
	}{
		{0, 6, "abcdef"},
		{0, 3, "abc"},
		{2, 10, "cdef"},
		{6, 1, ""},
		{9, 1, ""},
	}
	for _, tt := range tests {
		if got := string(host.BodyChunk(exchange.Request, tt.offset, tt.size)); got != tt.want {
			t.Errorf("BodyChunk(%d, %d) = %q, want %q", tt.offset, tt.size, got, tt.want)
		}
	}
	if got := host.BodyChunk(exchange.Response, 0, 4); len(got) != 0 {
		t.Errorf("response chunk = %q, want empty", got)
	}
}

func TestHTTPHost_ReplaceBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("old"))
	req.TransferEncoding = []string{"chunked"}
	host := newHTTPHost(req)

	host.ReplaceBody(exchange.Request, []byte("replaced"))

	if req.ContentLength != 8 {
		t.Errorf("request ContentLength = %d, want 8", req.ContentLength)
	}
	if req.TransferEncoding != nil {
		t.Error("transfer encoding should be cleared")
	}
	got, _ := io.ReadAll(req.Body)
	if string(got) != "replaced" {
		t.Errorf("request body = %q", got)
	}
	again, _ := req.GetBody()
	if b, _ := io.ReadAll(again); string(b) != "replaced" {
		t.Errorf("GetBody = %q", b)
	}

	// No response yet: replacing it is a no-op.
	host.ReplaceBody(exchange.Response, []byte("x"))

	resp := &http.Response{Header: http.Header{}, Body: io.NopCloser(strings.NewReader("upstream")), ContentLength: -1}
	host.resp = resp
	host.ReplaceBody(exchange.Response, []byte("{}"))
	if resp.ContentLength != 2 {
		t.Errorf("response ContentLength = %d, want 2", resp.ContentLength)
	}
	if b, _ := io.ReadAll(resp.Body); string(b) != "{}" {
		t.Errorf("response body = %q", b)
	}
}

func TestHTTPHost_ResponseHeadersBeforeResponse(t *testing.T) {
	host := newHTTPHost(httptest.NewRequest(http.MethodGet, "/", nil))
	m := host.Headers(exchange.Response)

	m.Set("x-any", "v")
	if host.resp != nil {
		t.Error("no response should be created")
	}
}
