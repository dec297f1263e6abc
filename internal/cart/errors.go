package cart

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrRemoteOperation = errors.New("remote operation failed")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNotFound        = errors.New("not found")
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	ErrStoreClosed     = errors.New("store closed")
)

// RemoteError represents a failed order-form backend call. It is caught at
// the coordinator boundary: callers roll back and notify, it never propagates
// to the presentation layer as an uncaught failure.
type RemoteError struct {
	Operation  string `json:"operation"` // "addItems" or "updateItems"
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"` // HTTP status from the backend, not serialized
	Err        error  `json:"-"` // Wrapped cause, not serialized
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrRemoteOperation
}

// NewRemoteError wraps a backend failure for one remote operation.
func NewRemoteError(operation string, statusCode int, code, message string) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Err:        ErrRemoteOperation,
	}
}

// NewTransportError wraps a network-level failure (no HTTP response).
func NewTransportError(operation string, err error) *RemoteError {
	return &RemoteError{
		Operation: operation,
		Code:      "TRANSPORT_ERROR",
		Message:   "request failed",
		Err:       fmt.Errorf("%w: %v", ErrRemoteOperation, err),
	}
}

// NewValidationError reports invalid input to a mutation entry point.
func NewValidationError(field, reason string) error {
	return fmt.Errorf("%w: invalid %s: %s", ErrInvalidRequest, field, reason)
}
