package jsonrules

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Now yields the current time as an RFC 3339 UTC timestamp.
func Now() ValueFunc {
	return func(ctx Context) (any, bool) {
		return ctx.now().UTC().Format(time.RFC3339Nano), true
	}
}

// RequestHeader yields the value of the named request header, or nothing
// when the header is absent.
func RequestHeader(name string) ValueFunc {
	return func(ctx Context) (any, bool) {
		v, ok := ctx.header(name)
		if !ok {
			return nil, false
		}
		return v, true
	}
}

// NewUUID yields a random UUID string.
func NewUUID() ValueFunc {
	return func(Context) (any, bool) {
		return uuid.NewString(), true
	}
}

// Prefix returns a rewrite that prepends p.
func Prefix(p string) StringFunc {
	return func(s string) string { return p + s }
}

// Suffix returns a rewrite that appends p.
func Suffix(p string) StringFunc {
	return func(s string) string { return s + p }
}

// Upper upper-cases the value.
func Upper() StringFunc { return strings.ToUpper }

// Lower lower-cases the value.
func Lower() StringFunc { return strings.ToLower }

// Contains passes when the value contains sub.
func Contains(sub string) Predicate {
	return func(s string) bool { return strings.Contains(s, sub) }
}

// EmailShape is the only shape check the engine performs: an address must
// contain "@".
func EmailShape() Predicate { return Contains("@") }

// NonEmpty passes for any non-empty value.
func NonEmpty() Predicate {
	return func(s string) bool { return s != "" }
}
