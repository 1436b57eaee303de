package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Pipeline errors
	ErrCodeDownload          ErrorCode = "DOWNLOAD"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeDecode            ErrorCode = "DECODE"
	ErrCodeRender            ErrorCode = "RENDER"

	// Configuration errors
	ErrCodeConfigInvalid ErrorCode = "CONFIG_INVALID"

	// Database errors
	ErrCodeDatabaseQuery ErrorCode = "DATABASE_QUERY"

	// Resource errors
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Validation errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Capacity errors
	ErrCodeAPITimeout      ErrorCode = "API_TIMEOUT"
	ErrCodeResourceExhaust ErrorCode = "RESOURCE_EXHAUSTED"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// MaxUserMessageLength bounds the message surfaced to end users.
const MaxUserMessageLength = 200

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Cause:    cause,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(cause error, code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Cause:    cause,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// getDefaultHTTPCode returns the default HTTP status code for an error code
func getDefaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeDownload:
		return http.StatusBadGateway
	case ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case ErrCodeDecode:
		return http.StatusUnprocessableEntity
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeAPITimeout:
		return http.StatusGatewayTimeout
	case ErrCodeResourceExhaust:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Pipeline error constructors

// DownloadError creates a download error. status is the HTTP status code,
// or 0 for transport faults.
func DownloadError(status int, cause error) *AppError {
	var err *AppError
	if status != 0 {
		err = Newf(ErrCodeDownload, "failed to download file: server returned status %d", status).
			WithDetail("status", status)
	} else {
		err = New(ErrCodeDownload, "failed to download file")
	}
	if cause != nil {
		err.Cause = cause
		if status == 0 {
			err.Message = fmt.Sprintf("failed to download file: %v", cause)
		}
	}
	return err
}

// UnsupportedFormatError creates an error listing the allowed extensions
func UnsupportedFormatError(filename string, allowed []string) *AppError {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return Newf(ErrCodeUnsupportedFormat, "unsupported file type. Supported: %s", strings.Join(sorted, ", ")).
		WithDetail("filename", filename).
		WithDetail("allowed", sorted)
}

// DecodeError creates a decode error
func DecodeError(reason string, cause error) *AppError {
	return Wrap(cause, ErrCodeDecode, fmt.Sprintf("could not decode audio: %s", reason))
}

// RenderError creates a render error
func RenderError(cause error) *AppError {
	return Wrap(cause, ErrCodeRender, "failed to render spectrogram")
}

// Common error constructors

// NotFound creates a not found error
func NotFound(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// InvalidInput creates an invalid input error
func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// DatabaseError creates a database error
func DatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation)
}

// ConfigError creates a configuration error
func ConfigError(key string, reason string) *AppError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("configuration error for '%s': %s", key, reason)).
		WithDetail("key", key).
		WithDetail("reason", reason)
}

// TimeoutError creates a timeout error
func TimeoutError(operation string, timeout string) *AppError {
	return New(ErrCodeAPITimeout, fmt.Sprintf("operation '%s' timed out after %s", operation, timeout)).
		WithDetail("operation", operation).
		WithDetail("timeout", timeout)
}

// ResourceExhausted creates a capacity error
func ResourceExhausted(resource string) *AppError {
	return New(ErrCodeResourceExhaust, fmt.Sprintf("%s is at capacity, try again later", resource)).
		WithDetail("resource", resource)
}

// As returns the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is checks if an error is of a specific type
func Is(err error, code ErrorCode) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}

// UserMessage returns the short message meant for end users, truncated to
// MaxUserMessageLength runes. Causes are never included.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := "internal error"
	if appErr, ok := As(err); ok {
		msg = appErr.Message
	}
	if utf8.RuneCountInString(msg) <= MaxUserMessageLength {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:MaxUserMessageLength-3]) + "..."
}
