// Package apperror provides structured application errors with specific
// codes, severity levels, and additional details, plus utilities for mapping
// them to HTTP status codes at the API boundary.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Validation
	CodeInvalidNetwork   ErrorCode = "INVALID_NETWORK"
	CodeEmptyNetwork     ErrorCode = "EMPTY_NETWORK"
	CodeInvalidSource    ErrorCode = "INVALID_SOURCE"
	CodeInvalidSink      ErrorCode = "INVALID_SINK"
	CodeDuplicateStation ErrorCode = "DUPLICATE_STATION"
	CodeDanglingPipe     ErrorCode = "DANGLING_PIPE"
	CodeSelfLoop         ErrorCode = "SELF_LOOP"
	CodeNegativeCapacity ErrorCode = "NEGATIVE_CAPACITY"
	CodeSourceEqualsSink ErrorCode = "SOURCE_EQUALS_SINK"
	CodeInvalidRecord    ErrorCode = "INVALID_RECORD"

	// Exclusions
	CodeStationNotFound ErrorCode = "STATION_NOT_FOUND"
	CodePipeNotFound    ErrorCode = "PIPE_NOT_FOUND"

	// Computation
	CodeComputationError ErrorCode = "COMPUTATION_ERROR"
	CodeTimeout          ErrorCode = "TIMEOUT"

	// Flow invariants
	CodeFlowViolation         ErrorCode = "FLOW_VIOLATION"
	CodeConservationViolation ErrorCode = "CONSERVATION_VIOLATION"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNilInput        ErrorCode = "NIL_INPUT"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error requiring immediate attention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is the application error type: a code, a human-readable message, an
// optional offending field, structured details, a wrapped cause, and a
// severity level.
type Error struct {
	Code     ErrorCode
	Message  string
	Field    string
	Details  map[string]any
	Cause    error
	Severity Severity
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidNetwork, CodeEmptyNetwork, CodeInvalidSource, CodeInvalidSink,
		CodeDuplicateStation, CodeDanglingPipe, CodeSelfLoop, CodeNegativeCapacity,
		CodeSourceEqualsSink, CodeInvalidRecord, CodeInvalidArgument, CodeNilInput:
		return http.StatusBadRequest

	case CodeStationNotFound, CodePipeNotFound, CodeNotFound:
		return http.StatusNotFound

	case CodeTimeout:
		return http.StatusGatewayTimeout

	case CodeFlowViolation, CodeConservationViolation:
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// New creates an application error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWithField creates an application error naming the offending field.
func NewWithField(code ErrorCode, message, field string) *Error {
	e := New(code, message)
	e.Field = field
	return e
}

// Wrap creates an application error wrapping a cause.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message)
	e.Cause = cause
	return e
}

// WithDetail attaches a structured detail and returns the error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithSeverity sets the severity and returns the error for chaining.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is reports whether target is an *Error with the same code, so errors.Is
// works across wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// FromError converts any error to an *Error, wrapping unknown errors as
// CodeInternal.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, err.Error(), err)
}

// Code extracts the error code, or CodeInternal for foreign errors.
func Code(err error) ErrorCode {
	if err == nil {
		return ""
	}
	return FromError(err).Code
}
