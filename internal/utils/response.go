package utils

import (
	"encoding/json"
	"net/http"
	"time"

	"ms-engagement/internal/rejection"
)

type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

func ErrorResponse(message, error string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		Error:     error,
		Timestamp: time.Now(),
	}
}

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteSuccess answers 200 with the success envelope.
func WriteSuccess(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse(message, data))
}

// WriteError answers with the status matching the rejection kind of err.
// Only the operator-facing reason is exposed; the wrapped cause stays in the logs.
func WriteError(w http.ResponseWriter, message string, err error) error {
	kind := rejection.KindOf(err)
	resp := ErrorResponse(message, rejection.ReasonOf(err, "internal error"))
	if kind != rejection.KindUnknown {
		resp.Kind = kind.String()
	}
	return WriteJSON(w, kind.HTTPStatus(), resp)
}
