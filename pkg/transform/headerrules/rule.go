package headerrules

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Scope selects where a rule reads its source header from.
type Scope int

const (
	// ScopeSame reads from the headers being edited.
	ScopeSame Scope = iota
	// ScopeRequest reads from the exchange's request headers. Response rules
	// use it to react to what the client sent, e.g. echoing Origin.
	ScopeRequest
)

// Context carries the read-only inputs rules may consult.
type Context struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Request is the exchange's request header set, used by ScopeRequest
	// rules. When nil, ScopeRequest falls back to the edited headers.
	Request Lookup
}

func (c Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Context) source(scope Scope, headers Map) Lookup {
	if scope == ScopeRequest && c.Request != nil {
		return c.Request
	}
	return headers
}

// ValueFunc computes a header value.
type ValueFunc func(ctx Context) string

// StringFunc rewrites a header value.
type StringFunc func(string) string

// Rule is a single header operation. The set of rules is closed; see the
// types below. apply reports whether the headers were changed.
type Rule interface {
	apply(headers Map, ctx Context) bool
}

// AddHeader appends Name: Value, even if Name is already present.
type AddHeader struct {
	Name  string
	Value string
}

func (r AddHeader) apply(h Map, _ Context) bool {
	if !writable(h, r.Name) {
		return false
	}
	h.Add(r.Name, r.Value)
	return true
}

// AddHeaderComputed appends Name with the value produced by Fn.
type AddHeaderComputed struct {
	Name string
	Fn   ValueFunc
}

func (r AddHeaderComputed) apply(h Map, ctx Context) bool {
	if r.Fn == nil || !writable(h, r.Name) {
		return false
	}
	h.Add(r.Name, r.Fn(ctx))
	return true
}

// RemoveHeader deletes every occurrence of Name.
type RemoveHeader struct {
	Name string
}

func (r RemoveHeader) apply(h Map, _ Context) bool {
	if _, ok := h.Get(r.Name); !ok || !writable(h, r.Name) {
		return false
	}
	h.Del(r.Name)
	return true
}

// RewriteHeader replaces the first occurrence of Name with Fn(value).
type RewriteHeader struct {
	Name string
	Fn   StringFunc
}

func (r RewriteHeader) apply(h Map, _ Context) bool {
	if r.Fn == nil || !writable(h, r.Name) {
		return false
	}
	v, ok := h.Get(r.Name)
	if !ok {
		return false
	}
	h.SetFirst(r.Name, r.Fn(v))
	return true
}

// RewriteIf replaces the first occurrence of Name with NewValue when its
// current value is exactly Value.
type RewriteIf struct {
	Name     string
	Value    string
	NewValue string
}

func (r RewriteIf) apply(h Map, _ Context) bool {
	v, ok := h.Get(r.Name)
	if !ok || v != r.Value || !writable(h, r.Name) {
		return false
	}
	h.SetFirst(r.Name, r.NewValue)
	return true
}

// EchoIf appends Target with the value of Source when Source is present.
type EchoIf struct {
	Source string
	Target string
	Scope  Scope
}

func (r EchoIf) apply(h Map, ctx Context) bool {
	v, ok := ctx.source(r.Scope, h).Get(r.Source)
	if !ok || !writable(h, r.Target) {
		return false
	}
	h.Add(r.Target, v)
	return true
}

// AddIf appends Name: Value when Guard is present.
type AddIf struct {
	Guard string
	Scope Scope
	Name  string
	Value string
}

func (r AddIf) apply(h Map, ctx Context) bool {
	if _, ok := ctx.source(r.Scope, h).Get(r.Guard); !ok || !writable(h, r.Name) {
		return false
	}
	h.Add(r.Name, r.Value)
	return true
}

// UnixSeconds formats the current time as whole seconds since the epoch.
func UnixSeconds() ValueFunc {
	return func(ctx Context) string {
		return strconv.FormatInt(ctx.now().Unix(), 10)
	}
}

// UnixMillis formats the current time as milliseconds since the epoch.
func UnixMillis() ValueFunc {
	return func(ctx Context) string {
		return strconv.FormatInt(ctx.now().UnixMilli(), 10)
	}
}

// RFC3339 formats the current time as an RFC 3339 UTC timestamp.
func RFC3339() ValueFunc {
	return func(ctx Context) string {
		return ctx.now().UTC().Format(time.RFC3339)
	}
}

// NewUUID produces a random UUID.
func NewUUID() ValueFunc {
	return func(Context) string { return uuid.NewString() }
}

// Prefix returns a rewrite that prepends p.
func Prefix(p string) StringFunc {
	return func(s string) string { return p + s }
}

// Suffix returns a rewrite that appends p.
func Suffix(p string) StringFunc {
	return func(s string) string { return s + p }
}
