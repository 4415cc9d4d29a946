package jsonrules

import (
	"bytes"
	"encoding/json"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a decoded top-level JSON object. Keys keep their original order;
// keys added by rules are appended. Values stay raw so untouched fields
// round-trip without being reinterpreted.
type Object = orderedmap.OrderedMap[string, json.RawMessage]

// Context carries the read-only inputs rules may consult.
type Context struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// HeaderLookup reads a request header by name. It must not mutate headers.
	HeaderLookup func(name string) (string, bool)
}

func (c Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Context) header(name string) (string, bool) {
	if c.HeaderLookup == nil {
		return "", false
	}
	return c.HeaderLookup(name)
}

// ValueFunc computes a value to insert. Returning false skips the insert.
type ValueFunc func(ctx Context) (any, bool)

// StringFunc rewrites a string field value.
type StringFunc func(string) string

// Predicate checks a string field value.
type Predicate func(string) bool

// Rule is a single field operation on a JSON object. The set of rules is
// closed; see the types below.
type Rule interface {
	apply(obj *Object, ctx Context)
}

// InsertConstant sets Key to Value, replacing any existing value.
type InsertConstant struct {
	Key   string
	Value any
}

func (r InsertConstant) apply(obj *Object, _ Context) {
	set(obj, r.Key, r.Value)
}

// InsertComputed sets Key to the value produced by Fn, when Fn yields one.
type InsertComputed struct {
	Key string
	Fn  ValueFunc
}

func (r InsertComputed) apply(obj *Object, ctx Context) {
	if r.Fn == nil {
		return
	}
	if v, ok := r.Fn(ctx); ok {
		set(obj, r.Key, v)
	}
}

// RewriteField replaces the value of Key with Fn(value). Only string values
// are rewritten; absent keys and other types are left alone.
type RewriteField struct {
	Key string
	Fn  StringFunc
}

func (r RewriteField) apply(obj *Object, _ Context) {
	if r.Fn == nil {
		return
	}
	s, ok := stringField(obj, r.Key)
	if !ok {
		return
	}
	set(obj, r.Key, r.Fn(s))
}

// ConditionalFlag sets Flag to FlagValue when the string at Source fails
// Predicate. Absent or non-string sources never raise the flag.
type ConditionalFlag struct {
	Source    string
	Predicate Predicate
	Flag      string
	FlagValue any
}

func (r ConditionalFlag) apply(obj *Object, _ Context) {
	if r.Predicate == nil {
		return
	}
	s, ok := stringField(obj, r.Source)
	if !ok {
		return
	}
	if !r.Predicate(s) {
		set(obj, r.Flag, r.FlagValue)
	}
}

// RemoveFields deletes every listed key that is present.
type RemoveFields struct {
	Keys []string
}

func (r RemoveFields) apply(obj *Object, _ Context) {
	for _, k := range r.Keys {
		obj.Delete(k)
	}
}

// DeriveCount sets Into to the length of the array at From, if From holds
// an array.
type DeriveCount struct {
	From string
	Into string
}

func (r DeriveCount) apply(obj *Object, _ Context) {
	raw, ok := obj.Get(r.From)
	if !ok {
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return
	}
	set(obj, r.Into, len(items))
}

// set encodes v and stores it under key. Values that cannot be encoded are
// dropped, leaving the object as it was.
func set(obj *Object, key string, v any) {
	raw, err := encodeValue(v)
	if err != nil {
		return
	}
	obj.Set(key, raw)
}

func stringField(obj *Object, key string) (string, bool) {
	raw, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	// null unmarshals into a string without error, so check the kind first.
	raw = bytes.TrimLeft(raw, " \t\r\n")
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
