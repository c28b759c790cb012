package http

import (
	"errors"
	"net/http"
	"strings"

	"fina/internal/core"
	"fina/internal/log"
	"fina/internal/middleware/trace"
)

// errorStatus maps an error from the parsing layer or the ledger to an
// HTTP status and a stable error code. A failed pair is a 500 whatever
// its cause.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMalformedBody), errors.Is(err, ErrBadParameter):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrUnsupportedMIME):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, core.ErrPairCreation):
		return http.StatusInternalServerError, "pair_creation"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, core.ErrHasTransactions):
		return http.StatusConflict, "has_transactions"
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, core.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, "invalid_category"
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity, "validation"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError logs err and writes the JSON error body. Internal details of
// 5xx errors are not echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code := errorStatus(err)
	message := err.Error()

	logger := log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
	fields := log.NewFields().WithError(err).WithOperation(operation).WithErrorType(errorType(status))
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
		message = http.StatusText(status)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	body := ErrorBody{Error: message, Code: code, RequestID: trace.GetRequestID(r.Context())}
	NewJSONResponse().Status(status).Data(body).Write(w)
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusUnauthorized:
		return log.ErrorTypeAuth
	case http.StatusInternalServerError:
		return log.ErrorTypeInternal
	default:
		return log.ErrorTypeValidation
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Data(v).Write(w)
}

// sanitizeInput removes control characters other than tab and newlines,
// and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
