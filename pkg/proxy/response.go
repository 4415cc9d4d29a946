package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"

	"mercator-hq/enricher/pkg/proxy/types"
)

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes an error response. The status code comes from
// the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}
