// Package httpserver contains HTTP handlers and middleware.
//
// It provides the broker's REST API endpoints, including prompt
// submission and status, worker check-ins, and kudos transfers.
// The package follows clean architecture principles and provides
// a clear separation between HTTP concerns and business logic.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/khbroker/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNoEligibleWorker):
		code = http.StatusConflict
		codeStr = "NO_ELIGIBLE_WORKER"
	case errors.Is(err, domain.ErrInsufficientKudos):
		code = http.StatusConflict
		codeStr = "INSUFFICIENT_KUDOS"
	case errors.Is(err, domain.ErrUnknownUser):
		code = http.StatusNotFound
		codeStr = "UNKNOWN_USER"
	case errors.Is(err, domain.ErrAnonymousForbidden):
		code = http.StatusForbidden
		codeStr = "ANONYMOUS_FORBIDDEN"
	case errors.Is(err, domain.ErrSelfTransfer):
		code = http.StatusBadRequest
		codeStr = "SELF_TRANSFER"
	case errors.Is(err, domain.ErrStaleDispatch):
		code = http.StatusOK
		codeStr = "STALE_DISPATCH"
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
