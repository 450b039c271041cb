package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/corebank/ledgersvc/internal/adapter/http/dto"
	"github.com/corebank/ledgersvc/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	var (
		unbalanced *domain.UnbalancedPostingError
		transition *domain.InvalidTransitionError
		cycle      *domain.CycleError
	)

	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrParentNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrDuplicateCode),
		errors.Is(err, domain.ErrAlreadyPosted),
		errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoLegs),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnsupportedCurrency),
		errors.Is(err, domain.ErrAmountScale),
		errors.Is(err, domain.ErrInvalidLegType),
		errors.Is(err, domain.ErrInvalidAccount),
		errors.Is(err, domain.ErrAccountInactive):
		return http.StatusBadRequest
	case errors.As(err, &unbalanced),
		errors.As(err, &cycle):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
