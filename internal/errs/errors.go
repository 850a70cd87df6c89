// Package errs defines the error taxonomy shared by the chatview core and the
// request layer. Callers wrap these sentinels with fmt.Errorf("...: %w") and
// match them with errors.Is.
package errs

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound is returned when a chatview, user or presence record is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a non-member posts, adds, views or drains.
	ErrForbidden = errors.New("not a member of the chatview")
	// ErrUnauthenticated is returned when the identity provider cannot resolve a principal.
	ErrUnauthenticated = errors.New("sender unresolved")
	// ErrValidation marks malformed input (empty text, empty name, bad ids).
	ErrValidation = errors.New("validation failed")
	// ErrBroker wraps failures of the message broker on load-bearing paths.
	ErrBroker = errors.New("broker failure")
	// ErrQueueNotDeclared is returned by a broker when sending to a queue that does not exist.
	ErrQueueNotDeclared = errors.New("queue not declared")
)

// HTTPStatus maps an error from the core to the status the request layer returns.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrBroker), errors.Is(err, ErrQueueNotDeclared):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the short machine-readable code used in error envelopes.
func Code(err error) string {
	switch HTTPStatus(err) {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusBadGateway:
		return "BROKER_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
