package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDecode             = errors.New("failed to decode payload")
	ErrEmptyConstraints   = errors.New("empty constraints")
	ErrInvalidConstraints = errors.New("invalid constraints")
	ErrInvalidDelegation  = errors.New("invalid delegation")
	ErrInvalidRevocation  = errors.New("invalid revocation")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrStore              = errors.New("failed to store")
	ErrProof              = errors.New("invalid inclusion proofs")
	ErrInternal           = errors.New("internal error")
)

// APIError is returned by every ConstraintsAPI operation. Kind is one of the
// sentinels above and Err is the underlying cause, if any.
type APIError struct {
	Kind error
	Err  error
}

func newAPIError(kind, err error) *APIError {
	return &APIError{Kind: kind, Err: err}
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == e.Kind
}

// StatusCode maps the error kind to the HTTP status returned to the client.
func (e *APIError) StatusCode() int {
	switch e.Kind {
	case ErrStore, ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// errorStatus returns the HTTP status for any error returned by the API.
func errorStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode()
	}
	return http.StatusInternalServerError
}
