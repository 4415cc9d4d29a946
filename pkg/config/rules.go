package config

// Header rule ops.
const (
	HeaderOpAdd         = "add"
	HeaderOpAddComputed = "add_computed"
	HeaderOpRemove      = "remove"
	HeaderOpRewrite     = "rewrite"
	HeaderOpRewriteIf   = "rewrite_if"
	HeaderOpEchoIf      = "echo_if"
	HeaderOpAddIf       = "add_if"
)

// Body rule ops.
const (
	BodyOpInsert         = "insert"
	BodyOpInsertComputed = "insert_computed"
	BodyOpRewrite        = "rewrite"
	BodyOpFlag           = "flag"
	BodyOpRemove         = "remove"
	BodyOpDeriveCount    = "derive_count"
)

// Header rule scopes.
const (
	ScopeSame    = "same"
	ScopeRequest = "request"
)

// Named functions usable from rule specs.
const (
	FuncNow           = "now"
	FuncRequestHeader = "request_header"
	FuncUUID          = "uuid"
	FuncUnixSeconds   = "unix_seconds"
	FuncUnixMillis    = "unix_millis"
	FuncRFC3339       = "rfc3339"
	FuncPrefix        = "prefix"
	FuncSuffix        = "suffix"
	FuncUpper         = "upper"
	FuncLower         = "lower"
	FuncEmail         = "email"
	FuncContains      = "contains"
	FuncNonEmpty      = "non_empty"
)

var (
	headerComputedFuncs = map[string]bool{FuncUnixSeconds: true, FuncUnixMillis: true, FuncRFC3339: true, FuncUUID: true}
	headerRewriteFuncs  = map[string]bool{FuncPrefix: true, FuncSuffix: true}
	bodyComputedFuncs   = map[string]bool{FuncNow: true, FuncRequestHeader: true, FuncUUID: true}
	bodyRewriteFuncs    = map[string]bool{FuncPrefix: true, FuncSuffix: true, FuncUpper: true, FuncLower: true}
	bodyPredicateFuncs  = map[string]bool{FuncEmail: true, FuncContains: true, FuncNonEmpty: true}
)
