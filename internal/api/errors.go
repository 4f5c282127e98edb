package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/almue/almue-core/internal/controller"
	"github.com/almue/almue-core/internal/device"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeNotFound      = "not_found"
	ErrCodeConflict      = "capability_mismatch"
	ErrCodeInternal      = "internal_error"
	ErrCodeUnavailable   = "service_unavailable"
	ErrCodeCommandFailed = "command_failed"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnavailable(w http.ResponseWriter, message string) {
	writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDispatchError maps a controller error to a response. Errors the
// caller can fix are 4xx; a device that failed to act is 422.
func writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, controller.ErrDeviceNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, controller.ErrCapabilityMismatch):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, device.ErrInvalidTimeOfDay), errors.Is(err, device.ErrInvalidAction):
		writeBadRequest(w, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, ErrCodeCommandFailed, err.Error())
	}
}
