// Package errors provides the structured error type shared by every layer of
// the pipeline. The three failure kinds a caller can act on (configuration,
// shape and range) each have their own code so that the CLI and the HTTP API
// can report them without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure category.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	// CodeConfig marks an unrecognized or out-of-domain option value.
	CodeConfig ErrorCode = "CONFIG"
	// CodeShape marks a dimension mismatch between inputs.
	CodeShape ErrorCode = "SHAPE"
	// CodeRange marks a window request exceeding the observed time span.
	CodeRange ErrorCode = "RANGE"

	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeBadRequest ErrorCode = "BAD_REQUEST"
	CodeInternal   ErrorCode = "INTERNAL"
	CodeUnknown    ErrorCode = ""
)

// AppError carries a code, a message and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Detail  string
	Cause   error
}

// Error formats as "[CODE] message: detail".
func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail returns a copy of e with Detail set.
func (e *AppError) WithDetail(detail string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Detail = detail
	return &clone
}

// New constructs an AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf constructs an AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches err as the cause of a new AppError. It returns nil when err
// is nil. CodeUnknown keeps the code of an AppError already in the chain.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	if code == CodeUnknown {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		}
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Config is shorthand for a configuration error.
func Config(format string, args ...interface{}) *AppError {
	return Newf(CodeConfig, format, args...)
}

// Shape is shorthand for a shape/dimension error.
func Shape(format string, args ...interface{}) *AppError {
	return Newf(CodeShape, format, args...)
}

// Range is shorthand for a range error.
func Range(format string, args ...interface{}) *AppError {
	return Newf(CodeRange, format, args...)
}

// NotFound is shorthand for a missing resource.
func NotFound(format string, args ...interface{}) *AppError {
	return Newf(CodeNotFound, format, args...)
}

// IsCode reports whether any error in err's chain is an *AppError with code.
func IsCode(err error, code ErrorCode) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// CodeOf returns the code of the outermost AppError in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name errors keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }
