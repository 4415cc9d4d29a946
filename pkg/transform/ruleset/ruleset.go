// Package ruleset holds the fixed header and body rule lists for both
// directions of an exchange, either the built-in defaults or lists built from
// configuration.
package ruleset

import (
	"mercator-hq/enricher/pkg/transform/headerrules"
	"mercator-hq/enricher/pkg/transform/jsonrules"
)

// Set is one immutable rule list per direction and stage. A Set is shared
// read-only by every exchange that captured it; never modify one after
// construction.
type Set struct {
	RequestHeaders  []headerrules.Rule
	ResponseHeaders []headerrules.Rule
	RequestBody     []jsonrules.Rule
	ResponseBody    []jsonrules.Rule
}

// Len returns the total number of rules in the set.
func (s *Set) Len() int {
	return len(s.RequestHeaders) + len(s.ResponseHeaders) + len(s.RequestBody) + len(s.ResponseBody)
}

// Header names the engine reads or writes outside of configured rules.
const (
	HeaderRequestID     = "x-request-id"
	HeaderContentLength = "content-length"
)

// Default returns the built-in rule set.
func Default() *Set {
	return &Set{
		RequestHeaders: []headerrules.Rule{
			headerrules.AddHeader{Name: "X-Custom-Header", Value: "processed-by-wasm"},
			headerrules.AddHeaderComputed{Name: "X-Request-Time", Fn: headerrules.UnixSeconds()},
			headerrules.RemoveHeader{Name: "X-Internal-Token"},
			headerrules.RewriteHeader{Name: "user-agent", Fn: headerrules.Prefix("Transformed-")},
			headerrules.RewriteIf{Name: ":scheme", Value: "http", NewValue: "https"},
		},
		ResponseHeaders: []headerrules.Rule{
			headerrules.AddHeader{Name: "X-Content-Type-Options", Value: "nosniff"},
			headerrules.AddHeader{Name: "X-Frame-Options", Value: "DENY"},
			headerrules.AddHeader{Name: "X-XSS-Protection", Value: "1; mode=block"},
			headerrules.AddHeader{Name: "Strict-Transport-Security", Value: "max-age=31536000; includeSubDomains"},
			headerrules.AddHeader{Name: "X-Processed-By", Value: "wasm-filter"},
			headerrules.AddHeaderComputed{Name: "X-Response-Time", Fn: headerrules.UnixMillis()},
			headerrules.EchoIf{Source: "origin", Target: "Access-Control-Allow-Origin", Scope: headerrules.ScopeRequest},
			headerrules.AddIf{Guard: "origin", Scope: headerrules.ScopeRequest, Name: "Access-Control-Allow-Methods", Value: "GET, POST, PUT, DELETE, OPTIONS"},
			headerrules.AddIf{Guard: "origin", Scope: headerrules.ScopeRequest, Name: "Access-Control-Allow-Headers", Value: "Content-Type, Authorization, X-Requested-With"},
		},
		RequestBody: []jsonrules.Rule{
			jsonrules.InsertComputed{Key: "processed_at", Fn: jsonrules.Now()},
			jsonrules.InsertConstant{Key: "processed_by", Value: "wasm-filter"},
			jsonrules.RewriteField{Key: "user_id", Fn: jsonrules.Prefix("user_")},
			jsonrules.ConditionalFlag{Source: "email", Predicate: jsonrules.EmailShape(), Flag: "validation_error", FlagValue: "Invalid email format"},
			jsonrules.RemoveFields{Keys: []string{"password", "secret_key", "api_key"}},
			jsonrules.InsertComputed{Key: "request_id", Fn: jsonrules.RequestHeader(HeaderRequestID)},
		},
		ResponseBody: []jsonrules.Rule{
			jsonrules.InsertComputed{Key: "response_time", Fn: jsonrules.Now()},
			jsonrules.InsertConstant{Key: "version", Value: "v1.0.0"},
			jsonrules.InsertComputed{Key: "request_id", Fn: jsonrules.RequestHeader(HeaderRequestID)},
			jsonrules.RemoveFields{Keys: []string{"internal_id", "debug_info", "database_query", "server_info"}},
			jsonrules.DeriveCount{From: "items", Into: "total_count"},
			jsonrules.InsertConstant{Key: "success", Value: true},
		},
	}
}
