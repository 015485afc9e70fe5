// Package httpapi holds the JSON response shapes shared by the HTTP surface.
package httpapi

import (
	"encoding/json"
	"net/http"
)

const internalServerError = "Internal server error"

// ErrorEnvelope is the body of router-level errors such as unknown routes.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Failure is the body returned when a request was routed but could not be served.
type Failure struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteInternalError writes a 500 Failure carrying message.
func WriteInternalError(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusInternalServerError, Failure{
		Error:   internalServerError,
		Message: message,
	})
}
