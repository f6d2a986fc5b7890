package api

import (
	"encoding/json"
	"net/http"
)

// Error is the body of every non-2xx response outside the management
// topics, which answer 200 and carry failures in their own envelope.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Error codes, one per HTTP status the API returns.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:         ErrCodeBadRequest,
	http.StatusUnauthorized:       ErrCodeUnauthorized,
	http.StatusForbidden:          ErrCodeForbidden,
	http.StatusNotFound:           ErrCodeNotFound,
	http.StatusServiceUnavailable: ErrCodeUnavailable,
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeProblem writes an Error for status, tagged with the request id the
// request was logged under.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, message string) {
	code, ok := statusCodes[status]
	if !ok {
		code = ErrCodeInternal
	}
	id, _ := r.Context().Value(ctxKeyRequestID).(string)
	writeJSON(w, status, Error{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: id,
	})
}
