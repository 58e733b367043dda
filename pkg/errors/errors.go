package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind int

// Error kinds
const (
	KindNotFound Kind = iota + 1
	KindValidation
	KindAuth
	KindConflict
	KindStorage
	KindConversion
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	case KindConversion:
		return "conversion"
	default:
		return "internal"
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"-"`
	Status  int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode reports the HTTP status the error renders as.
func (e *AppError) StatusCode() int {
	return e.Status
}

// NotFound renders as 422 "<entity> does not exist", the status most
// resources answer with for an unknown id.
func NotFound(entity string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf("%s does not exist", entity),
	}
}

// Missing is a not-found error answered with 404 and a caller-supplied message.
func Missing(message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Status:  http.StatusNotFound,
		Message: message,
	}
}

func Validation(message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Kind:    KindAuth,
		Status:  http.StatusUnauthorized,
		Message: message,
		Err:     err,
	}
}

// Conflict is answered with 422 like the other domain-rule failures.
func Conflict(message string) *AppError {
	return &AppError{
		Kind:    KindConflict,
		Status:  http.StatusUnprocessableEntity,
		Message: message,
	}
}

func Storage(op string, err error) *AppError {
	return &AppError{
		Kind:    KindStorage,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("storage %s failed", op),
		Err:     err,
	}
}

func Conversion(err error) *AppError {
	return &AppError{
		Kind:    KindConversion,
		Status:  http.StatusBadGateway,
		Message: "file conversion failed",
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "Internal server error",
		Err:     err,
	}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
