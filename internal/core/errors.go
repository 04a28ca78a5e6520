package core

import (
	"errors"
	"fmt"
)

// Error codes carried in API error bodies.
const (
	CodeValidation     = "VALIDATION_ERROR"
	CodeAuthentication = "AUTHENTICATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeDatabase       = "DATABASE_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeInternal       = "INTERNAL_ERROR"
)

var (
	ErrInvalidAmount = NewValidationError("Amount must be a valid number", "amount")

	// ErrAuthRequired is returned for any request without a valid session.
	ErrAuthRequired = &AuthenticationError{Message: "Authentication required"}
)

// ValidationError rejects bad input shape or range (HTTP 400). Field names
// the offending input field when one can be identified.
type ValidationError struct {
	Message string
	Field   string
}

func NewValidationError(message, field string) *ValidationError {
	return &ValidationError{Message: message, Field: field}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Message, e.Field)
	}
	return e.Message
}

// AuthenticationError signals a missing or invalid session (HTTP 401).
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// NotFoundError signals a missing or foreign-owned resource (HTTP 404).
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// UnavailableError wraps a database failure that must surface to the caller
// (HTTP 503): the write did not persist and the user has to know. Advisory
// reads never produce one; they fall back to documented defaults instead.
type UnavailableError struct {
	Op  string
	Err error
}

func NewUnavailableError(op string, err error) *UnavailableError {
	return &UnavailableError{Op: op, Err: err}
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return e.Op + ": database unavailable"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a NotFoundError anywhere in its chain.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
