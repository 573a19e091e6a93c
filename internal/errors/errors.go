package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig    = "CONFIG"
	ErrDiscovery = "DISCOVERY"
	ErrOutput    = "OUTPUT"
	ErrPublish   = "PUBLISH"
)

// Error is a structured error carrying a code, a message, an optional
// suggestion and an optional cause. Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed>
//
//	  <How to fix it>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Newf creates a config error with a formatted message and no suggestion.
func Newf(format string, args ...any) *Error {
	return &Error{
		Code:    ErrConfig,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrConfig code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrConfig,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var dgErr *Error
	if errors.As(err, &dgErr) {
		return dgErr.Code == code
	}
	return false
}

// Prefix puts context in front of an error's message. Structured errors
// keep their code, suggestion and cause.
func Prefix(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var dgErr *Error
	if errors.As(err, &dgErr) {
		return &Error{
			Code:       dgErr.Code,
			Message:    prefix + ": " + dgErr.Message,
			Suggestion: dgErr.Suggestion,
			Cause:      dgErr.Cause,
		}
	}
	return fmt.Errorf("%s: %w", prefix, err)
}

// Join combines errors the way the standard library does. It lives here so
// callers that import this package as errors don't need a second import.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// As is errors.As re-exported for the same reason as Join.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Message returns the one-line message of err: the Message of a structured
// error, else err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var dgErr *Error
	if errors.As(err, &dgErr) {
		return dgErr.Message
	}
	return err.Error()
}
