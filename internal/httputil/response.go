package httputil

import (
	"encoding/json"
	"net/http"

	"rulebase/internal/domain"
)

// Envelope is the uniform response shape: success with optional data, or
// failure with a machine-readable error.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a stable error code plus a human-readable message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondJSON writes a success envelope with the given status code.
// It marshals first so an encoding failure never produces a partial body
// after headers are sent.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(Envelope{Success: true, Data: data})
	if err != nil {
		RespondError(w, http.StatusInternalServerError, domain.CodeInternal, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError writes a failure envelope.
func RespondError(w http.ResponseWriter, status int, code, message string) {
	payload, err := json.Marshal(Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
	if err != nil {
		// fall back to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
