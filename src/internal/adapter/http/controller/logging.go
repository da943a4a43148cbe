package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/api-sage/vault-ledger-engine/src/internal/commons"
	"github.com/api-sage/vault-ledger-engine/src/internal/logger"
)

func logRequest(r *http.Request, payload any) {
	logger.Info("http request", logger.Fields{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"payload": logger.SanitizePayload(payload),
	})
}

func logResponse(r *http.Request, status int, payload any, start time.Time) {
	logger.Info("http response", logger.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"durationMs": time.Since(start).Milliseconds(),
		"response":   logger.SanitizePayload(payload),
	})
}

func logError(r *http.Request, err error, extra logger.Fields) {
	fields := logger.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.Error("http handler error", err, fields)
}

// errorStatus maps service errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, commons.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, commons.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, commons.ErrInsufficientFunds), errors.Is(err, commons.ErrAccountNotActive):
		return http.StatusUnprocessableEntity
	case errors.Is(err, commons.ErrAlreadyFinalized),
		errors.Is(err, commons.ErrAlreadyDecided),
		errors.Is(err, commons.ErrDuplicateApproval):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
