// Package types defines the JSON error body the enricher answers with when
// it cannot forward an exchange.
package types
