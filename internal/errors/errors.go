// Package errors defines the classified application errors surfaced to callers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_failed"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInvalidState ErrorType = "invalid_state"
	ErrorTypeCompletion   ErrorType = "completion_failed"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// InternalMessage is shown to callers instead of unclassified failure details.
const InternalMessage = "服务器内部错误"

// AppError is an error with a type the boundary layer can map to a response.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
	// Fields carries per-field messages for validation failures.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError of the given type.
func NewAppError(errType ErrorType, message string, originalError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     originalError,
		Code:    generateErrorCode(errType),
	}
}

// NewValidationError creates a validation error with per-field messages.
func NewValidationError(message string, fields map[string]string) *AppError {
	err := NewAppError(ErrorTypeValidation, message, nil)
	err.Fields = fields
	return err
}

// NewFieldError is a validation error on a single field.
func NewFieldError(field, message string) *AppError {
	return NewValidationError(message, map[string]string{field: message})
}

func NewNotFoundError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, originalError)
}

func NewForbiddenError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeForbidden, message, originalError)
}

func NewUnauthorizedError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeUnauthorized, message, originalError)
}

func NewInvalidStateError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInvalidState, message, originalError)
}

func NewCompletionError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeCompletion, message, originalError)
}

func NewInternalError(message string, originalError error) *AppError {
	return NewAppError(ErrorTypeInternal, message, originalError)
}

// TypeOf returns the error type, or ErrorTypeInternal for unclassified errors.
func TypeOf(err error) ErrorType {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type
	}
	return ErrorTypeInternal
}

func isType(err error, errType ErrorType) bool {
	var appError *AppError
	if errors.As(err, &appError) {
		return appError.Type == errType
	}
	return false
}

func IsValidationError(err error) bool   { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool     { return isType(err, ErrorTypeNotFound) }
func IsForbiddenError(err error) bool    { return isType(err, ErrorTypeForbidden) }
func IsUnauthorizedError(err error) bool { return isType(err, ErrorTypeUnauthorized) }
func IsInvalidStateError(err error) bool { return isType(err, ErrorTypeInvalidState) }
func IsCompletionError(err error) bool   { return isType(err, ErrorTypeCompletion) }

// HTTPStatus maps an error to the response status code.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case ErrorTypeValidation, ErrorTypeInvalidState:
		return http.StatusBadRequest
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show to a caller.
// Unclassified and internal errors never leak their details.
func PublicMessage(err error) string {
	var appError *AppError
	if !errors.As(err, &appError) || appError.Type == ErrorTypeInternal {
		return InternalMessage
	}
	return appError.Message
}

// Collector accumulates field validation messages.
type Collector struct {
	fields map[string]string
}

// Add records message for field unless the field already failed.
func (c *Collector) Add(field, message string) {
	if c.fields == nil {
		c.fields = make(map[string]string)
	}
	if _, exists := c.fields[field]; !exists {
		c.fields[field] = message
	}
}

// Check records message when ok is false.
func (c *Collector) Check(ok bool, field, message string) {
	if !ok {
		c.Add(field, message)
	}
}

// Err returns a validation error when any field failed, otherwise nil.
func (c *Collector) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	messages := make([]string, 0, len(keys))
	for _, k := range keys {
		messages = append(messages, c.fields[k])
	}
	return NewValidationError(strings.Join(messages, "; "), c.fields)
}

func generateErrorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_FAILED"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeForbidden:
		return "FORBIDDEN"
	case ErrorTypeUnauthorized:
		return "UNAUTHORIZED"
	case ErrorTypeInvalidState:
		return "INVALID_STATE"
	case ErrorTypeCompletion:
		return "COMPLETION_FAILED"
	default:
		return "INTERNAL_ERROR"
	}
}
