package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/dispatch"
	"inferd/pkg/types"
)

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

// writeDispatchError maps well-known dispatch errors to HTTP status codes:
// unknown server 404, no qualifying server 503, backend timeout 504, other
// backend failures 502.
func (s *server) writeDispatchError(w http.ResponseWriter, r *http.Request, err error) {
	// Client gone; nothing useful to write.
	if r.Context().Err() != nil {
		return
	}
	switch {
	case dispatch.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case dispatch.IsUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
	case dispatch.IsExecutionTimeout(err):
		writeJSONError(w, http.StatusGatewayTimeout, err.Error())
	case dispatch.IsExecutionFailure(err):
		writeJSONError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
