package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-devices/internal/device"
	"github.com/nerrad567/gray-logic-devices/internal/location"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeUnauthorized  = "unauthorised"
	ErrCodeForbidden     = "forbidden"
	ErrCodeConflict      = "conflict"
	ErrCodeInternal      = "internal_error"
	ErrCodeValidation    = "validation_error"
	ErrCodeTypeUndefined = "type_undefined"
	ErrCodeNotification  = "notification_failed"
	ErrCodeRateLimited   = "rate_limited"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeValidationError writes a 400 response for input that parsed but is not acceptable.
func writeValidationError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeValidation, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps device and location errors onto HTTP responses.
// Anything unrecognised, persistence failures included, becomes a 500 with
// the fallback message so storage details do not leak to clients.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrLinkNotFound):
		writeNotFound(w, "link not found")
	case errors.Is(err, location.ErrLocationNotFound):
		writeNotFound(w, "location not found")
	case errors.Is(err, device.ErrTypeUndefined):
		writeError(w, http.StatusUnprocessableEntity, ErrCodeTypeUndefined, err.Error())
	case errors.Is(err, device.ErrInvalidSettings),
		errors.Is(err, device.ErrUnknownAbility),
		errors.Is(err, device.ErrUIDRequired),
		errors.Is(err, location.ErrInvalidLocation),
		errors.Is(err, location.ErrInvalidName),
		errors.Is(err, location.ErrInvalidSettings):
		writeValidationError(w, err.Error())
	case errors.Is(err, device.ErrLinkExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device is already linked to that location")
	case errors.Is(err, location.ErrLocationHasChildren):
		writeError(w, http.StatusConflict, ErrCodeConflict, "location still has children")
	case errors.Is(err, device.ErrNotPersisted):
		writeError(w, http.StatusConflict, ErrCodeConflict, "device has not been stored yet")
	case errors.Is(err, device.ErrNotification):
		writeError(w, http.StatusBadGateway, ErrCodeNotification, "notification could not be delivered")
	default:
		writeInternalError(w, fallback)
	}
}
