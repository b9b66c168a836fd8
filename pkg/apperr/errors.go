// Package apperr defines the domain error taxonomy shared by the trip planner and its HTTP surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of domain error.
type Code string

const (
	CodeDomain     Code = "DOMAIN_ERROR"
	CodeValidation Code = "VALIDATION_ERROR"
	CodeNotFound   Code = "NOT_FOUND"
	CodeRemoteAPI  Code = "REMOTE_API_ERROR"
	CodeTimeout    Code = "TIMEOUT_ERROR"
	CodeInternal   Code = "INTERNAL_ERROR"
)

// Details carries field-level context for an error.
type Details struct {
	Fields []string `json:"fields,omitempty"`
}

// DomainError is the common shape of every domain error.
//
//nolint:govet // fieldalignment: logical grouping preferred
type DomainError struct {
	Code    Code
	Message string
	Details *Details
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// ValidationError reports invalid input. Fields lists every violation.
type ValidationError struct{ DomainError }

// NotFoundError reports that an upstream returned no usable data.
type NotFoundError struct{ DomainError }

// RemoteAPIError reports an upstream that answered with something unusable.
type RemoteAPIError struct{ DomainError }

// TimeoutError reports an exhausted time budget.
type TimeoutError struct{ DomainError }

func NewValidationError(message string, fields []string) *ValidationError {
	if message == "" {
		message = "Validation failed"
	}
	var details *Details
	if len(fields) > 0 {
		details = &Details{Fields: fields}
	}
	return &ValidationError{DomainError{Code: CodeValidation, Message: message, Details: details}}
}

func NewNotFoundError(message string) *NotFoundError {
	if message == "" {
		message = "Not found"
	}
	return &NotFoundError{DomainError{Code: CodeNotFound, Message: message}}
}

func NewRemoteAPIError(message string, cause error) *RemoteAPIError {
	if message == "" {
		message = "Remote API error"
	}
	return &RemoteAPIError{DomainError{Code: CodeRemoteAPI, Message: message, Err: cause}}
}

func NewTimeoutError(message string) *TimeoutError {
	if message == "" {
		message = "Timeout expired"
	}
	return &TimeoutError{DomainError{Code: CodeTimeout, Message: message}}
}

// Fields returns the validation violations, or nil.
func (e *ValidationError) Fields() []string {
	if e.Details == nil {
		return nil
	}
	return e.Details.Fields
}

// coded is satisfied by every domain error through the embedded DomainError.
type coded interface {
	error
	code() Code
	message() string
}

func (e *DomainError) code() Code      { return e.Code }
func (e *DomainError) message() string { return e.Message }

// NewDomainError builds a plain domain error with the given code.
func NewDomainError(code Code, message string, cause error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: cause}
}

// CodeOf returns the domain code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var c coded
	if errors.As(err, &c) {
		return c.code()
	}
	return CodeInternal
}

// HTTPStatus maps an error to the status code the HTTP surface answers with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeRemoteAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Body is the JSON error envelope written by the HTTP surface.
type Body struct {
	Code    Code     `json:"code"`
	Message string   `json:"message"`
	Details *Details `json:"details,omitempty"`
}

// ToBody renders err as an HTTP error envelope. Details are only exposed for validation errors.
func ToBody(err error) Body {
	var v *ValidationError
	if errors.As(err, &v) {
		return Body{Code: CodeValidation, Message: v.Message, Details: v.Details}
	}
	var c coded
	if errors.As(err, &c) {
		return Body{Code: c.code(), Message: c.message()}
	}
	msg := "Internal Server Error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Body{Code: CodeInternal, Message: msg}
}
