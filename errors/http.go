package errors

import (
	goerrors "errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MapToHTTPStatus translates the domain taxonomy into transport codes.
// Anything outside the taxonomy is a server fault.
func MapToHTTPStatus(err error) int {
	var validationErrs validator.ValidationErrors
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsForbidden(err):
		return http.StatusForbidden
	case IsValidation(err), goerrors.As(err, &validationErrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus is the client-side inverse of MapToHTTPStatus, so a
// caller can keep matching on the taxonomy across the wire.
func FromHTTPStatus(status int, message string) error {
	switch status {
	case http.StatusNotFound:
		return NewNotFound("%s", message)
	case http.StatusForbidden:
		return NewForbidden("%s", message)
	case http.StatusBadRequest:
		return NewValidation("%s", message)
	default:
		return goerrors.New(message)
	}
}
