package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Gateway configuration (CONFIG_*)
	ErrorCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// Processor communication (PROCESSOR_*)
	ErrorCodeTransport       ErrorCode = "TRANSPORT_ERROR"
	ErrorCodeProcessor       ErrorCode = "PROCESSOR_ERROR"
	ErrorCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	ErrorCodePaymentMismatch ErrorCode = "PAYMENT_MISMATCH"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationMissingField ErrorCode = "VALIDATION_MISSING_FIELD"

	// Host records
	ErrorCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrorCodeVaultConflict ErrorCode = "VAULT_CONFLICT"

	// Internal Errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err       error
	Details   map[string]interface{}
	Code      ErrorCode
	Message   string
	Retryable bool
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// NewConfigurationError reports a missing or invalid gateway setting.
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(ErrorCodeConfiguration, message)
}

// NewTransportError reports that the processor could not be reached.
func NewTransportError(resource string, err error) *DomainError {
	return WrapError(ErrorCodeTransport, "processor unreachable", err).
		WithDetail("resource", resource)
}

// NewProcessorError reports a non-success processor answer. The raw body is
// kept as the message so the notice shown to the shopper can be derived from it.
func NewProcessorError(statusCode int, body string) *DomainError {
	msg := body
	if msg == "" {
		msg = fmt.Sprintf("processor returned status %d", statusCode)
	}
	return NewDomainError(ErrorCodeProcessor, msg).
		WithDetail("status_code", statusCode)
}

// NewInvalidResponseError reports a processor body that could not be interpreted.
func NewInvalidResponseError(message string, err error) *DomainError {
	return WrapError(ErrorCodeInvalidResponse, message, err)
}

// NewPaymentMismatchError reports a payment whose amount or order id differs
// from the order it was created for.
func NewPaymentMismatchError(field, expected, actual string) *DomainError {
	return NewDomainError(ErrorCodePaymentMismatch, fmt.Sprintf("payment %s does not match order", field)).
		WithDetail("field", field).
		WithDetail("expected", expected).
		WithDetail("actual", actual)
}

// NewValidationError reports bad caller input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorCodeValidationFailed, message)
}

// NewNotFoundError reports a missing host record.
func NewNotFoundError(kind, id string) *DomainError {
	return NewDomainError(ErrorCodeNotFound, kind+" not found").WithDetail("id", id)
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// MessageOf returns the DomainError message without its code prefix, or
// the plain error text for any other error
func MessageOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// IsRetryable reports whether the failed call may be attempted again.
func IsRetryable(err error) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Retryable
	}
	return false
}

// IsNotFoundError checks if an error represents a "not found" condition
func IsNotFoundError(err error) bool {
	return GetErrorCode(err) == ErrorCodeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	code := GetErrorCode(err)
	return code == ErrorCodeValidationFailed ||
		code == ErrorCodeValidationMissingField
}

// IsProcessorSide reports errors that originate from the processor exchange
// rather than from local input.
func IsProcessorSide(err error) bool {
	switch GetErrorCode(err) {
	case ErrorCodeTransport, ErrorCodeProcessor, ErrorCodeInvalidResponse, ErrorCodePaymentMismatch:
		return true
	}
	return false
}
