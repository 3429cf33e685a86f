package domain

import "errors"

var (
	// ErrInvalidInput is returned when a request fails validation (e.g. fewer than three participants).
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when no session exists under the requested id.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the access policy denies the request.
	ErrForbidden = errors.New("forbidden")
)
