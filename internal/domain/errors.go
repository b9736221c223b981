// Package domain holds what the entity packages share: validation errors and
// their mapping onto HTTP responses.
package domain

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medops/hospitalops/internal/store"
)

// ValidationError is returned by services for bad input. Its message is
// safe to show to API clients as is.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func Invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// HTTPError maps a service error onto a response. Backend failures get a
// generic message; the backend's own message is kept on the store state.
func HTTPError(err error, entity string) *echo.HTTPError {
	switch {
	case IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, entity+" not found")
	case errors.Is(err, store.ErrDisposed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store is shutting down")
	default:
		return echo.NewHTTPError(http.StatusBadGateway, "failed to reach the record backend for "+entity)
	}
}
