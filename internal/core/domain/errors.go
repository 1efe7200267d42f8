package domain

import (
	"errors"
	"fmt"
)

// DomainError is a persistence error carrying a stable error code.
type DomainError struct {
	Code    string // Error code (e.g., "SC-STATE-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// State file errors.
var (
	// ErrStateNotFound indicates there is no core state file to restore from.
	ErrStateNotFound = NewDomainError("SC-STATE-4040", "state file not found")

	// ErrStateCorrupted indicates the core state file failed verification or decoding.
	ErrStateCorrupted = NewDomainError("SC-STATE-4220", "state file corrupted")
)

// Chunk file errors.
var (
	// ErrChunkCorrupted indicates a chunk file failed verification or decoding.
	ErrChunkCorrupted = NewDomainError("SC-CHUNK-4220", "chunk file corrupted")
)

// Codec and I/O errors.
var (
	// ErrEncodeFailed indicates the codec could not encode a value.
	ErrEncodeFailed = NewDomainError("SC-CODEC-5000", "encode failed")

	// ErrStorageIO indicates a filesystem operation failed.
	ErrStorageIO = NewDomainError("SC-IO-5000", "storage i/o failed")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("SC-SYS-5000", "internal error")
)

// Argument and configuration errors.
var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("SC-ARG-1001", "invalid argument")

	// ErrInvalidConfig indicates the configuration is unusable.
	ErrInvalidConfig = NewDomainError("SC-CONF-4000", "invalid configuration")
)
