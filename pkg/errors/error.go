// Package errors provides coded errors shared by every trading component.
//
// Codes are grouped by the component that raises them:
//   - General (1-99)
//   - Validation (100-199): malformed indicator input, bad configuration
//   - Ledger (200-299): position and capital precondition violations
//   - Risk (300-399): risk manager vetoes
//   - Execution (400-499): exchange placement, fetch and cancel failures
//   - Market data (500-599): price source failures
//   - Journal (600-699): trade journal failures
//
// Every coded error is recoverable at the orchestrator level. The trading
// loop logs it and moves to the next tick.
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInsufficientFunds, "need %.2f, have %.2f", cost, cash)
//
//	if errors.HasCode(err, errors.ErrCodeInsufficientFunds) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is an error carrying an ErrorCode.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap attaches a code and message to cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf attaches a code and formatted message to cause.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether two coded errors share the same code. It lets
// errors.Is(err, errors.New(ErrCodeNoPosition, "")) match any NoPosition error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Code == e.Code
}

// Is is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from err.
// Returns ErrCodeUnknown if no *Error is found in the chain.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// Kind returns the taxonomy name of err's code, e.g. "InsufficientFunds".
func Kind(err error) string {
	return GetCode(err).String()
}
