package proxy

import (
	"context"
	"errors"
	"net"

	"mercator-hq/enricher/pkg/proxy/types"
)

// HandleError converts an error raised while proxying an exchange into the
// error body written to the client.
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return types.NewInvalidRequestError(reqErr.Message, reqErr.Code)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewGatewayTimeoutError("upstream request timed out")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewGatewayTimeoutError("upstream request timed out")
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return types.NewBadGatewayError("upstream unreachable")
	}

	return types.NewBadGatewayError("upstream request failed")
}
