package controllers

import (
	"errors"
	"net/http"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
)

// writeDomainError maps domain errors onto HTTP statuses and the shared
// response envelope. Anything unmapped is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var templateErr *domain.TemplateNotFoundError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateStudent):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		helpers.WriteJSONError(w, http.StatusTooManyRequests, helpers.ErrCodeQuotaExceeded, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeStorageUnavailable, err.Error())
	case errors.As(err, &templateErr):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	default:
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
