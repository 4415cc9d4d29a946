package types

import "net/http"

// ErrorResponse is the JSON body written for requests the enricher could not
// proxy.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error.
	// Possible values: "invalid_request_error", "server_error",
	// "bad_gateway", "gateway_timeout".
	Type string `json:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// RequestID correlates the error with log lines.
	RequestID string `json:"request_id,omitempty"`
}

// Error type constants.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeBadGateway indicates the upstream failed (502).
	ErrorTypeBadGateway = "bad_gateway"

	// ErrorTypeGatewayTimeout indicates the upstream timed out (504).
	ErrorTypeGatewayTimeout = "gateway_timeout"
)

// Error code constants.
const (
	// CodeBodyRead indicates the client body could not be read.
	CodeBodyRead = "body_read_failed"

	// CodeUpstreamError indicates the upstream could not be reached or
	// returned an unreadable response.
	CodeUpstreamError = "upstream_error"

	// CodeUpstreamTimeout indicates the upstream request timed out.
	CodeUpstreamTimeout = "upstream_timeout"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, CodeInternalError)
}

// NewBadGatewayError creates an error response for upstream errors (502).
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeBadGateway, CodeUpstreamError)
}

// NewGatewayTimeoutError creates an error response for upstream timeouts (504).
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, CodeUpstreamTimeout)
}

// WithRequestID returns e with the request id set.
func (e *ErrorResponse) WithRequestID(id string) *ErrorResponse {
	e.Error.RequestID = id
	return e
}

// HTTPStatusCode returns the appropriate HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeServerError:
		return http.StatusInternalServerError
	case ErrorTypeBadGateway:
		return http.StatusBadGateway
	case ErrorTypeGatewayTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
