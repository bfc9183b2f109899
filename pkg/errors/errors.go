package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Watch / ingestion errors
	ErrWatchInit  ErrorCode = "WATCH_INIT"
	ErrWatchAdd   ErrorCode = "WATCH_ADD"
	ErrWatchClose ErrorCode = "WATCH_CLOSE"

	// Routing errors
	ErrRoutingFailure     ErrorCode = "ROUTING_FAILURE"
	ErrUnknownTarget      ErrorCode = "UNKNOWN_TARGET"
	ErrSourceUndetectable ErrorCode = "SOURCE_UNDETECTABLE"

	// Engine errors
	ErrEngineTransient   ErrorCode = "ENGINE_TRANSIENT"
	ErrEngineUnsupported ErrorCode = "ENGINE_UNSUPPORTED"

	// Finalize errors
	ErrMetadataPreserve ErrorCode = "METADATA_PRESERVE"
	ErrFinalizeRename   ErrorCode = "FINALIZE_RENAME"

	// Version store errors
	ErrStoreIO      ErrorCode = "STORE_IO"
	ErrStoreCorrupt ErrorCode = "STORE_CORRUPT"

	// FileSystem errors
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess   ErrorCode = "FILE_ACCESS"
	ErrFileCreate   ErrorCode = "FILE_CREATE"
	ErrFileWrite    ErrorCode = "FILE_WRITE"
	ErrDirCreate    ErrorCode = "DIR_CREATE"
)

// MorphError represents a structured error with code and details
type MorphError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *MorphError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *MorphError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *MorphError) Is(target error) bool {
	var targetErr *MorphError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new MorphError with the given code and message
func New(code ErrorCode, message string) *MorphError {
	return &MorphError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new MorphError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *MorphError {
	return &MorphError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a MorphError
func Wrap(err error, code ErrorCode, message string) *MorphError {
	if err == nil {
		return nil
	}
	return &MorphError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *MorphError {
	if err == nil {
		return nil
	}
	return &MorphError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *MorphError) WithDetail(key string, value interface{}) *MorphError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var morphErr *MorphError
	if errors.As(err, &morphErr) {
		return morphErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a MorphError
func GetErrorCode(err error) ErrorCode {
	var morphErr *MorphError
	if errors.As(err, &morphErr) {
		return morphErr.Code
	}
	return ErrUnknown
}

// IsTransient reports whether the error is worth a single automatic retry.
// Only engine spawn/IO failures qualify; routing failures and explicitly
// unsupported format pairs never do.
func IsTransient(err error) bool {
	return IsErrorCode(err, ErrEngineTransient)
}
