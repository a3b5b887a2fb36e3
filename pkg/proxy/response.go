package proxy

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"mercator-hq/ganymede/pkg/proxy/types"
)

// WriteJSONResponse writes a JSON response with the given status code.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes an error response. The HTTP status is
// derived from the error code; quota rejections additionally carry a
// Retry-After header.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	if errResp.RetryAfter > 0 {
		seconds := int(math.Ceil(errResp.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	return WriteJSONResponse(w, errResp.Error.HTTPStatusCode(), errResp)
}
