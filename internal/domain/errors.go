// Package domain defines the error taxonomy shared by the workflow engine
// and its callers.
package domain

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure.
type Code string

// Domain error codes.
const (
	CodeNotFound          Code = "not_found"
	CodeInvalidInput      Code = "invalid_input"
	CodeIllegalTransition Code = "illegal_transition"
	CodeConflict          Code = "conflict"
)

// Error is a business-rule failure. Every validation and policy failure in
// the workflow engine surfaces as one of these; anything else is an
// infrastructure error.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound returns a not_found error.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Invalid returns an invalid_input error.
func Invalid(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// IllegalTransition returns an illegal_transition error.
func IllegalTransition(format string, args ...any) *Error {
	return &Error{Code: CodeIllegalTransition, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the domain code carried by err, or an empty code if err is
// not a domain error.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
