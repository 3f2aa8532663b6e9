package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Graph errors: structural problems detected at build time. Fatal for the
// whole run; execution never starts.
const (
	ErrDanglingConnection ErrorCode = "DANGLING_CONNECTION"
	ErrCycleDetected      ErrorCode = "CYCLE_DETECTED"
	ErrUnknownModuleType  ErrorCode = "UNKNOWN_MODULE_TYPE"
	ErrFanInViolation     ErrorCode = "FAN_IN_VIOLATION"
)

// Config errors: a module's stored configuration does not satisfy its
// type's declared schema. Fatal for that module's execution.
const (
	ErrTypeMismatch     ErrorCode = "TYPE_MISMATCH"
	ErrInvalidEnumValue ErrorCode = "INVALID_ENUM_VALUE"
	ErrOutOfRange       ErrorCode = "OUT_OF_RANGE"
)

// Executor errors: local to one module at run time. Converted by the
// scheduler into a Failed status and propagated to dependents as Skipped.
const (
	ErrProviderError       ErrorCode = "PROVIDER_ERROR"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrMissingCredentials  ErrorCode = "MISSING_CREDENTIALS"
	ErrMissingInput        ErrorCode = "MISSING_INPUT"
	ErrMissingRuntimeInput ErrorCode = "MISSING_RUNTIME_INPUT"
	ErrConditionEval       ErrorCode = "CONDITION_EVAL"
)

// General errors.
const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrWorkflowNotFound    ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrRunCancelled        ErrorCode = "RUN_CANCELLED"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrInternalError       ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	ModuleID   string    `json:"module_id,omitempty"`
	Field      string    `json:"field,omitempty"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithModule sets the module id the error originated from.
func (e *Error) WithModule(moduleID string) *Error {
	e.ModuleID = moduleID
	return e
}

// WithField sets the config field the error refers to.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsGraphError reports whether the code belongs to the structural graph
// error family.
func IsGraphError(code ErrorCode) bool {
	switch code {
	case ErrDanglingConnection, ErrCycleDetected, ErrUnknownModuleType, ErrFanInViolation:
		return true
	}
	return false
}

// IsConfigError reports whether the code belongs to the config validation
// error family.
func IsConfigError(code ErrorCode) bool {
	switch code {
	case ErrTypeMismatch, ErrInvalidEnumValue, ErrOutOfRange:
		return true
	}
	return false
}
