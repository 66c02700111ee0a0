package errors

import "fmt"

// ErrorCode represents a Quire error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrInvalidManifest ErrorCode = "INVALID_MANIFEST" // 422
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// QuireError represents a structured error with code, status, and details.
type QuireError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *QuireError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *QuireError {
	return &QuireError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a post cannot be found.
func NewNotFound(slug string) *QuireError {
	return &QuireError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("post not found: %s", slug),
		Details: map[string]any{"slug": slug},
	}
}

// NewInvalidManifest creates a 422 error for a manifest that cannot be used.
func NewInvalidManifest(path, reason string) *QuireError {
	return &QuireError{
		Code:    ErrInvalidManifest,
		Status:  422,
		Message: fmt.Sprintf("invalid manifest %s: %s", path, reason),
		Details: map[string]any{"path": path},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *QuireError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &QuireError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a QuireError with the given code.
func Is(err error, code ErrorCode) bool {
	if qErr, ok := err.(*QuireError); ok {
		return qErr.Code == code
	}
	return false
}
