// Package diag defines the error values produced by the validator compiler.
//
// Two families exist:
//   - CompileError: the caller asked for something that cannot be compiled
//     (unknown name, wrong number of type arguments, an impossible type).
//   - InternalError: a stage saw input an earlier stage should have
//     removed. These always indicate a bug in the compiler itself.
package diag

import (
	"errors"
	"fmt"
)

// Code identifies the category of a CompileError.
type Code string

// Compile error codes (E200-E299).
const (
	ErrUnknownType    Code = "E201" // name not declared and not a builtin
	ErrArity          Code = "E202" // wrong number of type arguments
	ErrUnsupported    Code = "E203" // construct outside the supported surface
	ErrInvalidConfig  Code = "E204" // invalid compiler option or config file
	ErrDefaultForward Code = "E205" // default references itself or a later parameter
	ErrImpossibleType Code = "E206" // root type normalizes to never
	ErrTooManyMembers Code = "E207" // union flattening exceeds the member ceiling
	ErrSourceSyntax   Code = "E208" // declaration source failed to parse
	ErrMissingRefiner Code = "E209" // refinement referenced but not registered
)

// CompileError is a user-facing error about the requested type.
type CompileError struct {
	Code    Code   `json:"code"`
	Subject string `json:"subject,omitempty"` // declaration or type the error is about
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Subject, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Errorf creates a CompileError with a formatted message.
func Errorf(code Code, subject, format string, args ...any) *CompileError {
	return &CompileError{Code: code, Subject: subject, Message: fmt.Sprintf(format, args...)}
}

// InternalError reports a broken invariant between stages.
type InternalError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error in %s: %s (this should not happen)", e.Stage, e.Message)
}

// Internalf creates an InternalError with a formatted message.
func Internalf(stage, format string, args ...any) *InternalError {
	return &InternalError{Stage: stage, Message: fmt.Sprintf(format, args...)}
}

// IsUserError returns true if err wraps a CompileError.
func IsUserError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// IsInternal returns true if err wraps an InternalError.
func IsInternal(err error) bool {
	var ie *InternalError
	return errors.As(err, &ie)
}

// HasCode returns true if err wraps a CompileError with the given code.
func HasCode(err error, code Code) bool {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// CodeOf returns the code of a wrapped CompileError, or "" when err is
// not a CompileError.
func CodeOf(err error) Code {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
