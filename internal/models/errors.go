package models

import "errors"

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrForbidden is returned when the actor lacks the role or ownership an operation needs.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned when an operation is not permitted in the request's current status.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when a unique resource already exists
	// (a second quote or delivery proof, a taken email address).
	ErrConflict = errors.New("conflict")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}
