package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error category independent of its message.
type ErrorCode string

const (
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrInternal ErrorCode = "INTERNAL"

	// Loading rules, replacement maps and settings
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrRuleInvalid ErrorCode = "RULE_INVALID"

	// Rendering output templates
	ErrFormatInvalid   ErrorCode = "FORMAT_INVALID"
	ErrFunctionUnknown ErrorCode = "FUNCTION_UNKNOWN"
	ErrMapUnknown      ErrorCode = "MAP_UNKNOWN"

	// Running commands
	ErrCommandStart ErrorCode = "COMMAND_START"
	ErrCapture      ErrorCode = "CAPTURE"
)

// RunnerError is a coded error with optional details and a wrapped cause.
type RunnerError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

func (e *RunnerError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *RunnerError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a RunnerError with the same code.
func (e *RunnerError) Is(target error) bool {
	var targetErr *RunnerError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

func New(code ErrorCode, message string) *RunnerError {
	return &RunnerError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func Newf(code ErrorCode, format string, args ...interface{}) *RunnerError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *RunnerError {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *RunnerError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *RunnerError) WithDetail(key string, value interface{}) *RunnerError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var runnerErr *RunnerError
	if errors.As(err, &runnerErr) {
		return runnerErr.Code == code
	}
	return false
}

// GetErrorCode returns the code of err, or ErrUnknown if err is not a RunnerError.
func GetErrorCode(err error) ErrorCode {
	var runnerErr *RunnerError
	if errors.As(err, &runnerErr) {
		return runnerErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a RunnerError
func GetErrorDetails(err error) map[string]interface{} {
	var runnerErr *RunnerError
	if errors.As(err, &runnerErr) {
		return runnerErr.Details
	}
	return nil
}

// IsConfigError reports whether err is one of the fatal configuration errors
// that must abort a run.
func IsConfigError(err error) bool {
	switch GetErrorCode(err) {
	case ErrConfigLoad, ErrConfigParse, ErrRuleInvalid, ErrFormatInvalid, ErrFunctionUnknown, ErrMapUnknown:
		return true
	}
	return false
}
