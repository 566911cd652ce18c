package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies a failed operation for the caller
type ErrorKind string

const (
	KindValidation   ErrorKind = "ValidationError"
	KindPrecondition ErrorKind = "PreconditionError"
	KindNotFound     ErrorKind = "NotFoundError"
	KindConflict     ErrorKind = "ConflictError"
	KindTransient    ErrorKind = "TransientError"
	KindInternal     ErrorKind = "InternalError"
)

// ServiceError is the failure half of every job action. Fields holds
// accumulated per-field messages for validation failures.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *ServiceError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may safely resubmit
func (e *ServiceError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindConflict
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(message string, fields map[string]string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Message: message, Fields: fields}
}

func preconditionError(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(err error, format string, args ...interface{}) *ServiceError {
	return &ServiceError{Kind: KindConflict, Message: fmt.Sprintf(format, args...), Err: err}
}

func transientError(err error, message string) *ServiceError {
	return &ServiceError{Kind: KindTransient, Message: message, Err: err}
}

func internalError(err error, message string) *ServiceError {
	return &ServiceError{Kind: KindInternal, Message: message, Err: err}
}

// FieldErrors accumulates validation messages keyed by field path
type FieldErrors map[string]string

func (f FieldErrors) Add(field, message string) {
	if _, exists := f[field]; !exists {
		f[field] = message
	}
}

// Err returns nil when nothing was recorded
func (f FieldErrors) Err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return validationError(message, map[string]string(f))
}
