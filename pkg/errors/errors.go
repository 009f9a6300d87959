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
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrPermission    ErrorCode = "PERMISSION"

	// Manifest errors
	ErrManifestLoad      ErrorCode = "MANIFEST_LOAD"
	ErrManifestParse     ErrorCode = "MANIFEST_PARSE"
	ErrManifestDuplicate ErrorCode = "MANIFEST_DUPLICATE"
	ErrEntryNotFound     ErrorCode = "ENTRY_NOT_FOUND"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Link errors
	ErrLinkConflict ErrorCode = "LINK_CONFLICT"
	ErrLinkCreate   ErrorCode = "LINK_CREATE"
	ErrStaleEntry   ErrorCode = "STALE_ENTRY"
	ErrNotManaged   ErrorCode = "NOT_MANAGED"

	// Crypto errors
	ErrCryptFormat     ErrorCode = "CRYPT_FORMAT"
	ErrCryptPassphrase ErrorCode = "CRYPT_PASSPHRASE"

	// Secrets errors
	ErrVaultLocked  ErrorCode = "VAULT_LOCKED"
	ErrVaultCommand ErrorCode = "VAULT_COMMAND"
	ErrItemNotFound ErrorCode = "ITEM_NOT_FOUND"

	// Subprocess errors
	ErrCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCommandFailed   ErrorCode = "COMMAND_FAILED"

	// Network errors
	ErrRequestFailed ErrorCode = "REQUEST_FAILED"
	ErrCheckFailed   ErrorCode = "CHECK_FAILED"

	// FileSystem errors
	ErrFileNotFound  ErrorCode = "FILE_NOT_FOUND"
	ErrFileAccess    ErrorCode = "FILE_ACCESS"
	ErrFileCreate    ErrorCode = "FILE_CREATE"
	ErrFileWrite     ErrorCode = "FILE_WRITE"
	ErrSymlinkCreate ErrorCode = "SYMLINK_CREATE"
	ErrDirCreate     ErrorCode = "DIR_CREATE"
)

// DotkeepError represents a structured error with code and details
type DotkeepError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *DotkeepError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *DotkeepError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *DotkeepError) Is(target error) bool {
	var targetErr *DotkeepError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new DotkeepError with the given code and message
func New(code ErrorCode, message string) *DotkeepError {
	return &DotkeepError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new DotkeepError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *DotkeepError {
	return &DotkeepError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a DotkeepError
func Wrap(err error, code ErrorCode, message string) *DotkeepError {
	if err == nil {
		return nil
	}
	return &DotkeepError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *DotkeepError {
	if err == nil {
		return nil
	}
	return &DotkeepError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *DotkeepError) WithDetail(key string, value interface{}) *DotkeepError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var dkErr *DotkeepError
	if errors.As(err, &dkErr) {
		return dkErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a DotkeepError
func GetErrorCode(err error) ErrorCode {
	var dkErr *DotkeepError
	if errors.As(err, &dkErr) {
		return dkErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a DotkeepError
func GetErrorDetails(err error) map[string]interface{} {
	var dkErr *DotkeepError
	if errors.As(err, &dkErr) {
		return dkErr.Details
	}
	return nil
}
