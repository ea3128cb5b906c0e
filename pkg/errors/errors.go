package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrRateLimited        = New("RATE_LIMITED", http.StatusTooManyRequests, "too many requests, slow down")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Registration and sign-in.
	ErrEmailInUse       = New("EMAIL_IN_USE", http.StatusConflict, "email is already registered")
	ErrInvalidEmail     = New("INVALID_EMAIL", http.StatusBadRequest, "email address is not valid")
	ErrWeakPassword     = New("WEAK_PASSWORD", http.StatusBadRequest, "password does not meet requirements")
	ErrEmailNotVerified = New("EMAIL_NOT_VERIFIED", http.StatusForbidden, "email address is not verified")

	// Class membership.
	ErrClassNotFound = New("CLASS_NOT_FOUND", http.StatusNotFound, "no class with this join code")
	ErrNotMember     = New("NOT_MEMBER", http.StatusForbidden, "not a member of this class")

	// Homework validation.
	ErrPastDeadline   = New("PAST_DEADLINE", http.StatusBadRequest, "deadline is in the past")
	ErrDeadlineTooFar = New("DEADLINE_TOO_FAR", http.StatusBadRequest, "deadline is more than a year away")
	ErrSpamDetected   = New("SPAM_DETECTED", http.StatusBadRequest, "text looks like spam")

	// Proofs and completion.
	ErrDuplicateProof   = New("DUPLICATE_PROOF", http.StatusConflict, "proof already uploaded for this homework")
	ErrMissingProof     = New("MISSING_PROOF", http.StatusPreconditionFailed, "upload a proof before marking complete")
	ErrAlreadyCompleted = New("ALREADY_COMPLETED", http.StatusConflict, "homework already marked complete")
	ErrAlreadyVoted     = New("ALREADY_VOTED", http.StatusConflict, "vote already cast for this proof")

	// Uploads.
	ErrImageTooLarge     = New("IMAGE_TOO_LARGE", http.StatusRequestEntityTooLarge, "image exceeds the size limit")
	ErrUnsupportedFormat = New("UNSUPPORTED_FORMAT", http.StatusUnsupportedMediaType, "unsupported image format")

	// Boundary validation of stored records.
	ErrMalformedRecord = New("MALFORMED_RECORD", http.StatusInternalServerError, "stored record is missing required fields")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
