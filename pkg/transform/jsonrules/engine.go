// Package jsonrules applies an ordered list of field rules to a JSON body.
//
// Transform never fails. Bodies that are not UTF-8 or not JSON pass through
// byte for byte, non-object JSON values are re-encoded as they are, and every
// rule is a no-op when its target field is missing. Rules run in declared
// order, so later rules see the edits of earlier ones.
package jsonrules

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Outcome describes what Transform did with a body.
type Outcome int

const (
	// OutcomeTransformed means the body was a JSON object and rules ran.
	OutcomeTransformed Outcome = iota
	// OutcomePassThrough means the body was not UTF-8 JSON and was returned unchanged.
	OutcomePassThrough
	// OutcomeNonObject means the body was JSON but not an object; it was
	// re-encoded without running any rule.
	OutcomeNonObject
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeTransformed:
		return "transformed"
	case OutcomePassThrough:
		return "pass_through"
	case OutcomeNonObject:
		return "non_object"
	default:
		return "unknown"
	}
}

// Transform decodes body, applies rules and re-encodes the result.
func Transform(body []byte, rules []Rule, ctx Context) ([]byte, Outcome) {
	if !utf8.Valid(body) || !json.Valid(body) {
		return body, OutcomePassThrough
	}

	if !isObject(body) {
		var out bytes.Buffer
		if err := json.Compact(&out, body); err != nil {
			return body, OutcomePassThrough
		}
		return out.Bytes(), OutcomeNonObject
	}

	obj := orderedmap.New[string, json.RawMessage]()
	if err := obj.UnmarshalJSON(body); err != nil {
		return body, OutcomePassThrough
	}

	for _, rule := range rules {
		rule.apply(obj, ctx)
	}

	out, err := encodeObject(obj)
	if err != nil {
		return body, OutcomePassThrough
	}
	return out, OutcomeTransformed
}

// Decode returns the ordered object held in body, or false when body is not
// a UTF-8 JSON object. It is meant for inspecting transformed output.
func Decode(body []byte) (*Object, bool) {
	if !utf8.Valid(body) || !json.Valid(body) || !isObject(body) {
		return nil, false
	}
	obj := orderedmap.New[string, json.RawMessage]()
	if err := obj.UnmarshalJSON(body); err != nil {
		return nil, false
	}
	return obj, true
}

func isObject(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// encodeObject writes obj as compact JSON in key order. HTML characters are
// not escaped.
func encodeObject(obj *Object) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := encodeValue(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, pair.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
