package proxy

import (
	"net/http"
)

const (
	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// If the header is not present, it returns an empty string.
//
// The request-id middleware fills the header in when the client did not
// send one, so body rules can copy it into the payload.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// hasBody reports whether a body follows the request headers.
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

// hasResponseBody reports whether a body follows the response headers.
// HEAD responses and responses without content carry http.NoBody.
func hasResponseBody(resp *http.Response) bool {
	return resp.Body != nil && resp.Body != http.NoBody && resp.ContentLength != 0
}

// RequestError is a failure caused by the client side of the exchange.
type RequestError struct {
	Message string
	Code    string
	Err     error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
