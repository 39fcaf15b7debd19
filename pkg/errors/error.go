// Package errors carries coded errors through the engine. A code survives wrapping, so
// the dispatcher and the CLI can report it without parsing messages.
//
//	err := errors.Wrapf(errors.ErrCodeQueryFailed, cause, "upsert weights for %s", id)
//	if errors.IsDataUnavailable(err) {
//		// skip the instrument, keep the run
//	}
package errors

import (
	"errors"
	"fmt"
)

// Error is a coded error with an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches code and message to cause. A nil cause yields a plain coded error.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return Wrap(code, fmt.Sprintf(format, args...), cause)
}

// Error renders "[code] message" followed by ": cause" when there is one.
func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("[%d] %s", e.Code, e.Message)
	}

	return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is forwards to the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// GetCode returns the code of the outermost *Error in the chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var coded *Error
	if !errors.As(err, &coded) {
		return ErrCodeUnknown
	}

	return coded.Code
}

func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
