// Package common defines the error kinds and shared constants used across
// the catalog server. Callers should use errors.Is to match the kinds.
package common

import (
	"errors"
	"fmt"
)

var (
	// Input errors, detected before any mutation.
	ErrValidation = errors.New("validation error")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// Business-rule errors.
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Infrastructure failures. Details are logged, never shown to callers.
	ErrPersistence = errors.New("persistence error")
	ErrIO          = errors.New("io error")
)

// PublicError carries a caller-facing message alongside its kind.
// The message is returned verbatim in the API envelope.
type PublicError struct {
	Kind    error
	Message string
}

func (e *PublicError) Error() string {
	return e.Message
}

func (e *PublicError) Unwrap() error {
	return e.Kind
}

// Public builds a PublicError of the given kind.
func Public(kind error, msg string) error {
	return &PublicError{Kind: kind, Message: msg}
}

// Publicf is Public with formatting.
func Publicf(kind error, format string, args ...any) error {
	return &PublicError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Required is the validation error returned for a blank required field.
func Required(field string) error {
	return Publicf(ErrValidation, "Field '%s' is required", field)
}

// Persistence wraps a store failure so that it matches ErrPersistence
// while keeping the driver error in the chain for logging.
func Persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// IO wraps a blob storage failure so that it matches ErrIO.
func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// PublicMessage returns the caller-facing message of err, if it has one.
func PublicMessage(err error) (string, bool) {
	var pe *PublicError
	if errors.As(err, &pe) {
		return pe.Message, true
	}
	return "", false
}
