package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes shared by services, the event router and the ops server.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeExternalAPI   = "EXTERNAL_API_ERROR"
	CodePermission    = "PERMISSION_DENIED"
	CodeValidation    = "VALIDATION_FAILED"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
)

// ExternalKind distinguishes failure modes of an outbound API call.
type ExternalKind string

const (
	ExternalNotFound    ExternalKind = "not_found"
	ExternalTimeout     ExternalKind = "timeout"
	ExternalUnreachable ExternalKind = "unreachable"
	ExternalServerError ExternalKind = "server_error"
	ExternalBadResponse ExternalKind = "bad_response"
)

const genericUserMessage = "An error occurred while processing your request. Please try again later."

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewConfigurationError reports a required id or URL that is unset or unknown to the server.
func NewConfigurationError(setting string) error {
	return &DomainError{
		Code:       CodeConfiguration,
		Message:    fmt.Sprintf("%s is not configured. Please contact an administrator.", setting),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"setting": setting},
	}
}

// NewMissingResourceError reports a configured id that does not resolve on the server.
func NewMissingResourceError(resource string) error {
	return &DomainError{
		Code:       CodeConfiguration,
		Message:    fmt.Sprintf("%s not found. Please contact an administrator.", resource),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"resource": resource},
	}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found.", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewPermissionError(message string) error {
	return NewDomainError(CodePermission, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewExternalAPIError wraps a failed outbound call. message is shown to the user.
func NewExternalAPIError(kind ExternalKind, message string, err error) error {
	return &DomainError{
		Code:       CodeExternalAPI,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Details:    map[string]any{"kind": string(kind)},
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsCode reports whether err carries the given domain code.
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// ExternalKindOf returns the outbound failure kind, or "" when err is not an external API error.
func ExternalKindOf(err error) ExternalKind {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != CodeExternalAPI {
		return ""
	}
	kind, _ := domainErr.Details["kind"].(string)
	return ExternalKind(kind)
}

// UserMessage returns the text shown to a user for err. Internal failures never leak details.
func UserMessage(err error) string {
	domainErr := ToDomainError(err)
	if domainErr == nil {
		return ""
	}
	if domainErr.Code == CodeInternal {
		return genericUserMessage
	}
	return domainErr.Message
}
